package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"zenfocus/backend/internal/identity"
)

const identityKey = "identity"

type AuthConfig struct {
	Issuer *identity.TokenIssuer
	// AllowQueryToken accepts ?token= for clients that cannot set headers,
	// such as browser websockets.
	AllowQueryToken bool
}

// AuthMiddleware requires a valid bearer token and stores the identity it
// carries on the request context.
func AuthMiddleware(config AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c, config.AllowQueryToken)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Authorization header is required",
			})
			return
		}

		id, err := config.Issuer.Parse(tokenStr)
		if err != nil {
			message := identity.MessageFor(identity.CodeInvalidToken)
			if authErr := identity.AsAuthError(err); authErr != nil {
				message = authErr.Message
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   string(identity.CodeInvalidToken),
				"message": message,
			})
			return
		}

		c.Set(identityKey, id)
		c.Set("user_id", id.UserID.String())
		c.Next()
	}
}

func bearerToken(c *gin.Context, allowQuery bool) (string, bool) {
	header := c.GetHeader("Authorization")
	if header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return "", false
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		return token, token != ""
	}
	if allowQuery {
		if token := c.Query("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// IdentityFrom returns the identity AuthMiddleware stored.
func IdentityFrom(c *gin.Context) (identity.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return identity.Identity{}, false
	}
	id, ok := v.(identity.Identity)
	return id, ok && !id.IsZero()
}
