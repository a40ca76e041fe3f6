package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"social-dashboard/infrastructure/logger"
)

// Claims identify the dashboard user. Tokens issued before user_id existed carry it in sub.
type Claims struct {
	UserID   string `json:"user_id,omitempty"`
	UserName string `json:"user_name,omitempty"`
	jwt.StandardClaims
}

func (c Claims) subject() string {
	if c.UserID != "" {
		return c.UserID
	}
	if c.Subject != "" {
		return c.Subject
	}
	return c.Issuer
}

// Auth verifies an HS256 bearer token and stores the user id under "user_id".
func Auth(secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authorization := ctx.GetHeader("Authorization")
		token, found := strings.CutPrefix(authorization, "Bearer ")
		if !found || token == "" {
			unauthorized(ctx, "Unauthorized")
			return
		}
		claims, err := parse(token, secretKey)
		if err != nil {
			logger.GetLogger().WithField("error", err).Debug("Rejected bearer token")
			unauthorized(ctx, reason(err))
			return
		}
		userID := claims.subject()
		if userID == "" {
			unauthorized(ctx, "Token has no subject")
			return
		}
		ctx.Set("user_id", userID)
		ctx.Next()
	}
}

func unauthorized(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}

func parse(token, secretKey string) (*Claims, error) {
	if secretKey == "" {
		return nil, errors.New("secret key not configured")
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return &claims, nil
}

func reason(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		switch {
		case ve.Errors&jwt.ValidationErrorMalformed != 0:
			return "That's not even a token"
		case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
			return "Timing is everything"
		}
	}
	return "Couldn't handle this token"
}

// IssueToken signs a token for userID. Used by operators and tests to reach the API.
func IssueToken(userID, secretKey string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: userID,
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while generate token")
		return "", err
	}
	return signed, nil
}
