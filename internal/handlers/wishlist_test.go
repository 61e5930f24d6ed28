package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/skvora/clothes-shop/internal/models"
	"github.com/skvora/clothes-shop/internal/mykafka"
)

func newWishlistHandler(t *testing.T) *WishlistHandler {
	t.Helper()
	return &WishlistHandler{DB: newTestDB(t), Producer: &mykafka.Producer{}, JWTSecret: testSecret}
}

func TestAddToWishlistIsIdempotent(t *testing.T) {
	h := newWishlistHandler(t)
	p := seedProduct(t, h.DB, "Linen Shirt", "29.99", nil)
	ck := accessCookie(t, 1, "user")

	for i := 0; i < 2; i++ {
		rec, c := doJSON(t, http.MethodPost, "/api/v1/wishlist", map[string]any{"product_id": p.ID}, ck)
		require.NoError(t, h.AddToWishlist(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	var rows int64
	require.NoError(t, h.DB.Model(&models.WishlistItem{}).Count(&rows).Error)
	require.EqualValues(t, 1, rows)
}

func TestMoveToCartSizedRequiresSize(t *testing.T) {
	h := newWishlistHandler(t)
	p := seedProduct(t, h.DB, "Linen Shirt", "29.99", map[string]uint{"M": 3})
	require.NoError(t, h.DB.Create(&models.WishlistItem{UserID: 1, ProductID: p.ID}).Error)

	_, c := doJSON(t, http.MethodPost, "/api/v1/wishlist/1/move", map[string]any{}, accessCookie(t, 1, "user"))
	c.SetParamNames("id")
	c.SetParamValues("1")
	err := h.MoveToCart(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestMoveToCartCreatesLineAndRemovesWish(t *testing.T) {
	h := newWishlistHandler(t)
	p := seedProduct(t, h.DB, "Linen Shirt", "29.99", map[string]uint{"M": 3})
	require.NoError(t, h.DB.Create(&models.WishlistItem{UserID: 1, ProductID: p.ID}).Error)

	rec, c := doJSON(t, http.MethodPost, "/api/v1/wishlist/1/move", map[string]any{"size": "M"}, accessCookie(t, 1, "user"))
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.MoveToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.Equal(t, p.ID, item.ProductID)
	require.Equal(t, "M", item.Size)
	require.Equal(t, uint(1), item.Quantity)

	var wishes int64
	require.NoError(t, h.DB.Model(&models.WishlistItem{}).Count(&wishes).Error)
	require.EqualValues(t, 0, wishes)
}

func TestMoveToCartOutOfStock(t *testing.T) {
	h := newWishlistHandler(t)
	p := seedProduct(t, h.DB, "Linen Shirt", "29.99", map[string]uint{"M": 0})
	require.NoError(t, h.DB.Create(&models.WishlistItem{UserID: 1, ProductID: p.ID}).Error)

	_, c := doJSON(t, http.MethodPost, "/api/v1/wishlist/1/move", map[string]any{"size": "M"}, accessCookie(t, 1, "user"))
	c.SetParamNames("id")
	c.SetParamValues("1")
	err := h.MoveToCart(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusConflict, he.Code)

	// The wishlist row survives a refused move.
	var wishes int64
	require.NoError(t, h.DB.Model(&models.WishlistItem{}).Count(&wishes).Error)
	require.EqualValues(t, 1, wishes)
}

func TestRemoveFromWishlistChecksOwnership(t *testing.T) {
	h := newWishlistHandler(t)
	p := seedProduct(t, h.DB, "Linen Shirt", "29.99", nil)
	require.NoError(t, h.DB.Create(&models.WishlistItem{UserID: 1, ProductID: p.ID}).Error)

	_, c := doJSON(t, http.MethodDelete, "/api/v1/wishlist/1", nil, accessCookie(t, 2, "user"))
	c.SetParamNames("id")
	c.SetParamValues("1")
	err := h.RemoveFromWishlist(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusNotFound, he.Code)
}
