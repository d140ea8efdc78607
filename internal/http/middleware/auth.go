package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/courseflow-backend/internal/domain/user"
	"github.com/yungbote/courseflow-backend/internal/platform/ctxutil"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

var errInvalidToken = errors.New("missing or invalid token")

// AccessClaims are the claims issued by the identity service. The subject is
// the user id.
type AccessClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
	opts   []jwt.ParserOption
}

func NewAuthMiddleware(log *logger.Logger, cfg AuthConfig) *AuthMiddleware {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if iss := strings.TrimSpace(cfg.Issuer); iss != "" {
		opts = append(opts, jwt.WithIssuer(iss))
	}
	if aud := strings.TrimSpace(cfg.Audience); aud != "" {
		opts = append(opts, jwt.WithAudience(aud))
	}
	return &AuthMiddleware{
		log:    log.With("Middleware", "AuthMiddleware"),
		secret: []byte(cfg.Secret),
		opts:   opts,
	}
}

// RequireAuth rejects requests without a valid access token.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			abortUnauthorized(c, errInvalidToken)
			return
		}
		rd, err := am.parse(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			abortUnauthorized(c, errInvalidToken)
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

// OptionalAuth attaches the identity when a token is present. A present but
// invalid token is still rejected so clients notice expired sessions.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			c.Next()
			return
		}
		rd, err := am.parse(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			abortUnauthorized(c, errInvalidToken)
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

func (am *AuthMiddleware) parse(tokenString string) (*ctxutil.RequestData, error) {
	if len(am.secret) == 0 {
		return nil, errors.New("auth secret not configured")
	}
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return am.secret, nil
	}, am.opts...)
	if err != nil {
		return nil, err
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(strings.TrimSpace(sub))
	if err != nil || userID == uuid.Nil {
		return nil, errors.New("subject is not a user id")
	}
	role := user.ParseRole(claims.Role)
	if role == user.RoleAnonymous {
		role = user.RoleStudent
	}
	return &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Role:        string(role),
	}, nil
}

func abortUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"message": err.Error(), "code": "unauthorized"},
	})
}

// EventSource cannot set headers, so the query token is accepted as well.
func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
