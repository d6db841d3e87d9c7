package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in tokens.
const (
	RolePatient   = "patient"
	RoleClinician = "clinician"
	RoleOperator  = "operator"
)

// Context keys set by the auth middleware.
const (
	ContextSubject = "subject"
	ContextRole    = "role"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// JWTClaims are the claims of a service token. Tokens are issued out of
// band (see symptomctl token); the service only verifies them.
type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for subject with role, valid for ttl.
func IssueToken(secret, subject, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := &JWTClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies token against secret.
func ParseToken(secret, token string) (*JWTClaims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	claims := &JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenFromRequest reads a bearer token from the Authorization header or
// the token query parameter.
func TokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}

// JWTAuth rejects requests without a valid token.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ParseToken(secret, TokenFromRequest(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalJWT records the token's claims when a valid token is present and
// lets anonymous requests through. A token that is present but invalid is
// rejected. With an empty secret nothing is verified.
func OptionalJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if secret == "" || token == "" {
			c.Next()
			return
		}
		claims, err := ParseToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// RequireRole allows only requests whose token carries role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ContextSubject); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if GetRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// GetRole returns the authenticated role, or "" for anonymous requests.
func GetRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}

// GetSubject returns the authenticated subject, or "".
func GetSubject(c *gin.Context) string {
	return c.GetString(ContextSubject)
}

func setClaims(c *gin.Context, claims *JWTClaims) {
	c.Set(ContextSubject, claims.Subject)
	c.Set(ContextRole, claims.Role)
}
