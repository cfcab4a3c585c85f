package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Suhaibinator/SApp/pkg/app"
)

// AuthUserKey is the state key under which the authenticated principal is
// stored.
const AuthUserKey = "auth_user"

// TokenValidator validates a bearer token and returns the authenticated
// principal. The boolean result reports whether the token was valid.
type TokenValidator func(ctx context.Context, token string) (any, bool)

// Authentication creates a handler that requires a valid bearer token.
// A missing or invalid token produces a 401 fault; on success the principal
// is stored in the context state under AuthUserKey.
func Authentication(validator TokenValidator) app.Handler {
	return func(c *app.Context, next app.Next) error {
		// Check for the presence of an Authorization header
		authHeader := c.Request.Header("Authorization")
		if authHeader == "" {
			return app.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}

		// Extract the token from the Authorization header
		token := strings.TrimPrefix(authHeader, "Bearer ")

		user, valid := validator(c.Context(), token)
		if !valid {
			return app.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}

		c.Set(AuthUserKey, user)
		return next()
	}
}

// GetAuthUser retrieves the authenticated principal from the context state.
func GetAuthUser(c *app.Context) (any, bool) {
	return c.Get(AuthUserKey)
}
