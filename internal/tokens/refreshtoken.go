package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	jwthelp "github.com/kmorozov/clipstream/internal/jwt"
)

const TypeRefresh = "refresh"

// RefreshClaims carry only the user identity, opaque otherwise.
type RefreshClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

func SignRefresh(userID string, secret []byte, exp time.Time) (string, error) {
	claims := RefreshClaims{
		TokenType: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        jwthelp.NewJTI(),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func RefreshClaimsFromToken(tokenStr string, refreshSecret []byte) (*RefreshClaims, error) {
	var claims RefreshClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return refreshSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid || claims.TokenType != TypeRefresh {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
