// Package authn resolves the authenticated user from the access-token
// cookie. Handlers receive an explicit user id; nothing downstream reads
// ambient session state.
package authn

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func parseClaims(c echo.Context, secret []byte) (jwt.MapClaims, error) {
	cookie, err := c.Cookie("accessToken")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing auth cookie")
	}
	tokenString := cookie.Value
	if tokenString == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "empty token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token: "+err.Error())
	}
	if !token.Valid {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// UserID extracts the subject claim from the access-token cookie.
func UserID(c echo.Context, secret []byte) (uint, error) {
	claims, err := parseClaims(c, secret)
	if err != nil {
		return 0, err
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
	}
	return uint(sub), nil
}

func RequireLogin(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := UserID(c, secret); err != nil {
				return err
			}
			return next(c)
		}
	}
}

func RequireAdmin(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := parseClaims(c, secret)
			if err != nil {
				return err
			}
			if role, _ := claims["role"].(string); role != "admin" {
				return echo.NewHTTPError(http.StatusForbidden, "admin only")
			}
			return next(c)
		}
	}
}
