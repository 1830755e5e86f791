package middleware

import (
	"eventops/interfaces"
	"eventops/models"
	"eventops/utils"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const identityKey = "identity"

// AuthMiddleware resolves the bearer token into a models.Identity. Session
// management lives elsewhere; this only validates and reads claims.
type AuthMiddleware struct {
	jwtService *utils.JWTService
	authorizer interfaces.Authorizer
}

func NewAuthMiddleware(jwtService *utils.JWTService, authorizer interfaces.Authorizer) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		authorizer: authorizer,
	}
}

// RequireAuth validates JWT token and sets the caller identity
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := am.extractToken(c)
		if token == "" {
			utils.UnauthorizedResponse(c, "Authentication token required")
			c.Abort()
			return
		}

		claims, err := am.jwtService.ValidateToken(token)
		if err != nil {
			logrus.WithField("request_id", c.GetString(utils.RequestIDKey)).Debugf("Invalid token: %v", err)
			utils.UnauthorizedResponse(c, "Invalid authentication token")
			c.Abort()
			return
		}

		if claims.TokenType != utils.TokenTypeAccess {
			utils.UnauthorizedResponse(c, "Invalid token type")
			c.Abort()
			return
		}

		identity := claims.Identity()
		c.Set(identityKey, identity)
		c.Set("userID", identity.UserID)
		c.Set("userRole", identity.Role)

		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			utils.UnauthorizedResponse(c, "")
			c.Abort()
			return
		}

		if !am.authorizer.IsAdministrator(identity) {
			logrus.WithFields(logrus.Fields{
				"user_id": identity.UserID,
				"role":    identity.Role,
				"path":    c.Request.URL.Path,
			}).Warn("Administrator route denied")
			utils.ForbiddenResponse(c, "Administrator privileges required")
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractToken reads the bearer header, falling back to the token query
// parameter for websocket upgrades where browsers cannot set headers.
func (am *AuthMiddleware) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	if c.IsWebsocket() {
		return c.Query("token")
	}

	return ""
}

// GetIdentity returns the authenticated caller set by RequireAuth.
func GetIdentity(c *gin.Context) (models.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := value.(models.Identity)
	return identity, ok
}

// SetIdentity places identity in the context. Used by tests and by callers
// that authenticate through other means.
func SetIdentity(c *gin.Context, identity models.Identity) {
	c.Set(identityKey, identity)
	c.Set("userID", identity.UserID)
	c.Set("userRole", identity.Role)
}
