package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/skvora/clothes-shop/internal/hash"
	"github.com/skvora/clothes-shop/internal/models"
	"github.com/skvora/clothes-shop/internal/mykafka"
)

func newAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	return &AuthHandler{
		DB:            newTestDB(t),
		JWTSecret:     testSecret,
		RefreshSecret: []byte("refresh-test-secret"),
		Producer:      &mykafka.Producer{},
	}
}

func TestRegister(t *testing.T) {
	h := newAuthHandler(t)

	payload := map[string]string{
		"username": "test_user",
		"email":    "test@example.com",
		"password": "password",
	}
	rec, c := doJSON(t, http.MethodPost, "/register", payload)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, "test_user", user.Username)
	require.Equal(t, "user", user.Role)
	require.NotEmpty(t, user.ID)
	require.NotContains(t, rec.Body.String(), "password")

	// Duplicate username is refused.
	_, c2 := doJSON(t, http.MethodPost, "/register", payload)
	err := h.Register(c2)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusConflict, he.Code)
}

func TestRegisterRequiresCredentials(t *testing.T) {
	h := newAuthHandler(t)

	_, c := doJSON(t, http.MethodPost, "/register", map[string]string{"username": "nopass"})
	err := h.Register(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestLogin(t *testing.T) {
	h := newAuthHandler(t)

	pwHash, err := hash.HashPassword("password")
	require.NoError(t, err)
	require.NoError(t, h.DB.Create(&models.User{
		Username:     "test_user",
		PasswordHash: pwHash,
		Role:         "user",
	}).Error)

	rec, c := doJSON(t, http.MethodPost, "/login", map[string]string{
		"username": "test_user",
		"password": "password",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
	require.NotEmpty(t, resp["refresh_token"])
	require.Equal(t, false, resp["is_admin"])

	cookies := rec.Result().Cookies()
	names := map[string]bool{}
	for _, ck := range cookies {
		names[ck.Name] = true
	}
	require.True(t, names["accessToken"])
	require.True(t, names["refreshToken"])

	// Wrong password is refused.
	_, c2 := doJSON(t, http.MethodPost, "/login", map[string]string{
		"username": "test_user",
		"password": "wrong",
	})
	loginErr := h.Login(c2)
	var he *echo.HTTPError
	require.ErrorAs(t, loginErr, &he)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestLogOutRevokesRefreshToken(t *testing.T) {
	h := newAuthHandler(t)

	pwHash, err := hash.HashPassword("password")
	require.NoError(t, err)
	require.NoError(t, h.DB.Create(&models.User{
		Username:     "test_user",
		PasswordHash: pwHash,
		Role:         "user",
	}).Error)

	rec, c := doJSON(t, http.MethodPost, "/login", map[string]string{
		"username": "test_user",
		"password": "password",
	})
	require.NoError(t, h.Login(c))

	var resp struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec2, c2 := doJSON(t, http.MethodPost, "/logout", nil, &http.Cookie{
		Name:  "refreshToken",
		Value: resp.RefreshToken,
	})
	require.NoError(t, h.LogOut(c2))
	require.Equal(t, http.StatusOK, rec2.Code)

	var stored models.RefreshToken
	require.NoError(t, h.DB.Where("token = ?", resp.RefreshToken).First(&stored).Error)
	require.True(t, stored.Revoked)
}
