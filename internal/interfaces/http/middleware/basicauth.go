package middleware

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sgi/backend/internal/infrastructure/config"
	"github.com/sgi/backend/internal/interfaces/http/dto"
)

const defaultBasicAuthRealm = "SGI"

// BasicAuthUserKey holds the user accepted by BasicAuth
const BasicAuthUserKey = "basic_auth_user"

// BasicAuth gates the HTML views and the metrics endpoints behind HTTP Basic
// credentials. The password is checked against PasswordHash (bcrypt); the
// plain Password is only honoured when allowPlain is set, which the server
// does outside production. A disabled config lets every request through.
func BasicAuth(cfg config.BasicAuthConfig, allowPlain bool, logger *zap.Logger) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	realm := cfg.Realm
	if realm == "" {
		realm = defaultBasicAuthRealm
	}
	challenge := "Basic realm=" + strconv.Quote(realm)
	hash := []byte(cfg.PasswordHash)

	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if ok && checkBasicCredentials(cfg, hash, allowPlain, user, pass) {
			c.Set(BasicAuthUserKey, user)
			c.Next()
			return
		}

		if ok {
			logger.Warn("Basic auth rejected",
				zap.String("user", user),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
		}
		c.Header("WWW-Authenticate", challenge)
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeUnauthorized, "Credenciales requeridas", c.GetString(RequestIDKey)))
	}
}

func checkBasicCredentials(cfg config.BasicAuthConfig, hash []byte, allowPlain bool, user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(cfg.Username)) == 1

	var passOK bool
	switch {
	case len(hash) > 0:
		passOK = bcrypt.CompareHashAndPassword(hash, []byte(pass)) == nil
	case allowPlain && cfg.Password != "":
		passOK = subtle.ConstantTimeCompare([]byte(pass), []byte(cfg.Password)) == 1
	}
	return userOK && passOK
}
