package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sitescan/sitescan/internal/modules/model"
	"github.com/sitescan/sitescan/internal/modules/serializer"
)

// IdentityKey is the gin context key holding the *model.Identity.
const IdentityKey = "identity"

var ErrUnauthorized = errors.New("unauthorized")

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verifier validates HS256 bearer tokens minted by the auth provider.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

func (v *Verifier) Verify(token string) (*model.Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrUnauthorized)
	}
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrUnauthorized)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}
	if c.Subject == "" && c.Email == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return &model.Identity{Subject: c.Subject, Email: c.Email, Token: token}, nil
}

// Auth rejects requests without a valid bearer token.
func Auth(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, err := v.Verify(bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr(""))
			return
		}
		c.Set(IdentityKey, who)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
