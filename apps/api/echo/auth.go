package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/feeportal/core"
)

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"

	jwtContextKey = "userToken"
)

func newJWTConfig(secretKey string) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(secretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
// The subject of a student token is the student's QR id.
type Claims struct {
	jwt.StandardClaims
	Name      string `json:"name,omitempty"`
	IsStudent bool   `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsAdmin   bool   `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
}

// NewClaims returns the claims of a token for subject with the given role.
func NewClaims(subject, name, role string, conf *core.Config) (*Claims, error) {
	if role != RoleAdmin && role != RoleStudent {
		return nil, errors.Errorf("unknown role %q", role)
	}
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   subject,
			Audience:  "Fee Portal",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:      name,
		IsStudent: role == RoleStudent,
		IsAdmin:   role == RoleAdmin,
	}, nil
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}
