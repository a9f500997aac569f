package middleware

import (
	"strings"

	"campusfeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Auth verifies HMAC-signed bearer tokens. The token subject becomes the actor ID.
type Auth struct {
	secret []byte
}

// NewAuth returns an Auth that validates tokens against secret.
func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// Required rejects requests without a valid bearer token.
func (a *Auth) Required(c *fiber.Ctx) error {
	actorID, err := a.actorFromHeader(c.Get("Authorization"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, err)
	}
	c.Locals("actorID", actorID)
	return c.Next()
}

// Optional sets the actor when a valid token is present and otherwise lets
// the request through anonymously. A malformed token is still rejected.
func (a *Auth) Optional(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	if header == "" {
		return c.Next()
	}
	actorID, err := a.actorFromHeader(header)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, err)
	}
	c.Locals("actorID", actorID)
	return c.Next()
}

func (a *Auth) actorFromHeader(header string) (string, error) {
	if header == "" {
		return "", models.NewUnauthenticatedError("Authorization header required")
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", models.NewUnauthenticatedError("Invalid authorization header format")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", models.NewUnauthenticatedError("Invalid or expired token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", models.NewUnauthenticatedError("Invalid token subject type")
	}
	if sub == "" {
		return "", models.NewUnauthenticatedError("Invalid token structure - missing subject")
	}
	if !models.ValidID(sub) {
		return "", models.NewUnauthenticatedError("Invalid actor ID in token")
	}
	return sub, nil
}

// ActorID returns the authenticated actor for the request, or "".
func ActorID(c *fiber.Ctx) string {
	actorID, _ := c.Locals("actorID").(string)
	return actorID
}
