//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestGormStore_ContractPostgres(t *testing.T) {
	ctx := context.Background()

	pg, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("campusfeed"),
		postgres.WithUsername("campusfeed"),
		postgres.WithPassword("campusfeed"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, pg)

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	s := NewGormStore(db)
	require.NoError(t, s.Migrate(ctx))
	runStoreContract(t, s)
}

func TestMongoStore_Contract(t *testing.T) {
	ctx := context.Background()

	ctr, err := testcontainers.Run(ctx, "mongo:7",
		testcontainers.WithExposedPorts("27017/tcp"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("27017/tcp")),
	)
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, ctr)

	uri, err := ctr.PortEndpoint(ctx, "27017/tcp", "mongodb")
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	runStoreContract(t, NewMongoStore(client.Database("campusfeed_test")))
}

func TestKVStore_Contract(t *testing.T) {
	ctx := context.Background()

	ctr, err := testcontainers.Run(ctx, "nats:2.10",
		testcontainers.WithCmd("-js"),
		testcontainers.WithExposedPorts("4222/tcp"),
		testcontainers.WithWaitStrategy(wait.ForLog("Server is ready")),
	)
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, ctr)

	url, err := ctr.PortEndpoint(ctx, "4222/tcp", "nats")
	require.NoError(t, err)

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	s, err := NewKVStore(ctx, js, "posts_test")
	require.NoError(t, err)
	runStoreContract(t, s)
}
