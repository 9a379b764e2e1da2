package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/matchday-ai/internal/auth"
	"github.com/suPer8Hu/matchday-ai/internal/common"
)

const (
	UserIDKey   = "user_id"
	UserTypeKey = "user_type"
)

func identify(c *gin.Context, secret string) bool {
	if _, ok := c.Get(UserIDKey); ok {
		return true
	}
	token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return false
	}
	uid, userType, err := auth.ParseJWT(token, secret)
	if err != nil {
		return false
	}
	c.Set(UserIDKey, uid)
	c.Set(UserTypeKey, userType)
	return true
}

// Authenticate stores the bearer token's user in the context when the token
// is valid. It never aborts; handlers that need a user check for it.
func Authenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identify(c, secret)
		c.Next()
	}
}

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identify(c, secret) {
			common.Respond(c, common.NewError(common.ErrorUnauthorized, common.SurfaceChat))
			return
		}
		c.Next()
	}
}
