package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skvora/clothes-shop/internal/models"
)

var testSecret = []byte("handlers-test-secret")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Product{},
		&models.ProductSize{},
		&models.Cart{},
		&models.CartItem{},
		&models.WishlistItem{},
		&models.Order{},
		&models.OrderItem{},
	))
	return db
}

func accessCookie(t *testing.T, userID uint, role string) *http.Cookie {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(15 * time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return &http.Cookie{Name: "accessToken", Value: token, Path: "/"}
}

func doJSON(t *testing.T, method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return rec, c
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock map[string]uint) models.Product {
	t.Helper()
	p := models.Product{
		Name:        name,
		Description: name,
		Price:       decimal.RequireFromString(price),
		Available:   true,
		HasSizes:    len(stock) > 0,
	}
	require.NoError(t, db.Create(&p).Error)
	for size, qty := range stock {
		require.NoError(t, db.Create(&models.ProductSize{ProductID: p.ID, Size: size, Stock: qty}).Error)
	}
	return p
}
