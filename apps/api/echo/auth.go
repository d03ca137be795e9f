package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/core"
)

const actorTokenKey = "actorToken"

var errActorNotFoundInCtx = errors.New("actor token not found in echo.Context")

// Claims represents the authorization claims transmitted via a JWT.
// The identity provider issuing these tokens lives outside this app.
type Claims struct {
	jwt.StandardClaims
	Name string `json:"name,omitempty"`
}

// appJWTConfig is the JWT auth middleware config.
func appJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    actorTokenKey,
		Claims:        new(Claims),
	}
}

// NewClaims builds claims for an actor; used by tests and local tooling.
func NewClaims(actor core.Actor, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   actor.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name: actor.Name,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

// contextActor resolves the acting user from the request's JWT.
func contextActor(ctx echo.Context) (core.Actor, error) {
	token, ok := ctx.Get(actorTokenKey).(*jwt.Token)
	if !ok {
		return core.Actor{}, errActorNotFoundInCtx
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return core.Actor{}, errActorNotFoundInCtx
	}
	return core.Actor{ID: claims.Subject, Name: claims.Name}, nil
}
