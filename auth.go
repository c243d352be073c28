package main

import (
	"context"
	"errors"
	"github.com/asdine/storm/v3"
	"github.com/dgrijalva/jwt-go"
	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
	"net/http"
	"strings"
	"time"
)

var (
	JWT_HMAC_SECRET []byte        = []byte("iX3c0b1Jmq9x2l8PZ3vYc2Q4m5sQe0uKJg7tWc+o0rE=")
	JWT_LIFESPAN    time.Duration = time.Hour
)

type tokenKey struct{}

// Operator is a local account allowed to drive the robot. Only admins may
// change calibration.
type Operator struct {
	ID       int    `storm:"increment"`
	Email    string `storm:"unique"`
	Name     string
	Password string
	Admin    bool
}

// Sets Operator.Password to the hashed value for the provided plain text
func (u *Operator) SetPassword(pass []byte) {
	hash, _ := bcrypt.GenerateFromPassword(pass, bcrypt.DefaultCost)
	u.Password = string(hash)
}

// Returns bcrypt's error unchanged.
func (u *Operator) VerifyPassword(pass []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), pass)
}

type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (l *LoginPayload) Bind(r *http.Request) error {
	if l.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

type JWTPayload struct {
	SignedToken string `json:"token"`
}

type OperatorClaims struct {
	jwt.StandardClaims
	Admin bool `json:"admin,omitempty"`
}

func newJWT(op *Operator) (ts string, err error) {
	now := time.Now().UTC()
	claims := OperatorClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ENV.JWT_ISSUER,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(JWT_LIFESPAN).Unix(),
			Subject:   op.Email,
		},
		Admin: op.Admin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(JWT_HMAC_SECRET)
}

func claimsFrom(ctx context.Context) *OperatorClaims {
	token, ok := ctx.Value(tokenKey{}).(*jwt.Token)
	if !ok {
		return nil
	}
	claims, _ := token.Claims.(*OperatorClaims)
	return claims
}

// Login looks up an operator, verifies the password and returns a token.
func Login(w http.ResponseWriter, r *http.Request) {
	data := &LoginPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	var op Operator
	if err := ENV.DB.One("Email", data.Email, &op); err != nil {
		if err == storm.ErrNotFound {
			render.Render(w, r, ErrNotFound)
			return
		}
		render.Render(w, r, ErrRender(err))
		return
	}

	err := op.VerifyPassword([]byte(data.Password))
	if err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			render.Render(w, r, ErrPermissionDenied(errors.New("Invalid password")))
			return
		}
		render.Render(w, r, ErrRender(err))
		return
	}

	tokenString, err := newJWT(&op)
	if err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}

	render.JSON(w, r, JWTPayload{tokenString})
}

// Provides a new token to the client
func JWTRefresh(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		render.Render(w, r, ErrUnauthorized(JWTEmpty))
		return
	}

	tokenString, err := newJWT(&Operator{Email: claims.Subject, Admin: claims.Admin})
	if err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}

	render.JSON(w, r, JWTPayload{tokenString})
}

var (
	JWTEmpty      = errors.New("Bearer token not provided")
	ErrAdminsOnly = errors.New("Only admins may change calibration")
)

// Browsers cannot set headers on websocket upgrades so the token may also
// arrive as a query parameter or cookie.
func tokenString(r *http.Request) string {
	if s := r.URL.Query().Get("jwt"); s != "" {
		return s
	}
	bearer := r.Header.Get("Authorization")
	if len(bearer) > 7 && strings.ToUpper(bearer[0:6]) == "BEARER" {
		return bearer[7:]
	}
	if cookie, err := r.Cookie("jwt"); err == nil {
		return cookie.Value
	}
	return ""
}

func ValidateJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := tokenString(r)
		if tokenStr == "" {
			render.Render(w, r, ErrUnauthorized(JWTEmpty))
			return
		}

		token, err := jwt.ParseWithClaims(tokenStr,
			&OperatorClaims{},
			func(*jwt.Token) (interface{}, error) { return JWT_HMAC_SECRET, nil })

		if err != nil || !token.Valid {
			reason := errors.New("Invalid token")
			if jwterr, ok := err.(*jwt.ValidationError); ok && jwterr.Errors&jwt.ValidationErrorExpired != 0 {
				reason = errors.New("Token has expired")
			}
			render.Render(w, r, ErrUnauthorized(reason))
			return
		}

		ctx := context.WithValue(r.Context(), tokenKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must sit behind ValidateJWT.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := claimsFrom(r.Context()); claims == nil || !claims.Admin {
			render.Render(w, r, ErrPermissionDenied(ErrAdminsOnly))
			return
		}
		next.ServeHTTP(w, r)
	})
}
