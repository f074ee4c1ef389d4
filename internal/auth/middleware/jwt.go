package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const ctxEmailKey = "auth_email"

// ErrInvalidCredential is returned by ParseEmail for any token that does not
// resolve to an email principal.
var ErrInvalidCredential = errors.New("invalid credential")

// NewBearer returns an Echo middleware that resolves an HS256 bearer token to the
// authenticated principal's email and stores it in the context.
func NewBearer(signingKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, tok, found := strings.Cut(auth, " ")
			if !found || scheme != "Bearer" || strings.TrimSpace(tok) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Authorization header missing or invalid"})
			}
			email, err := ParseEmail(signingKey, strings.TrimSpace(tok))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid token payload"})
			}
			c.Set(ctxEmailKey, email)
			return next(c)
		}
	}
}

// ParseEmail validates tokStr and returns its email claim.
func ParseEmail(signingKey, tokStr string) (string, error) {
	tok, err := jwt.Parse(tokStr, func(token *jwt.Token) (any, error) {
		return []byte(signingKey), nil
	}, jwt.WithLeeway(30*time.Second), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return "", ErrInvalidCredential
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidCredential
	}
	email, _ := claims["email"].(string)
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrInvalidCredential
	}
	return email, nil
}

// Sign issues a bearer token for email. The login flow owns token issuance in
// production; this exists for seeding and tests.
func Sign(signingKey, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
}

// Email returns the authenticated principal's email from context.
func Email(c echo.Context) (string, bool) {
	v, ok := c.Get(ctxEmailKey).(string)
	return v, ok && v != ""
}
