package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/skvora/clothes-shop/internal/authn"
	"github.com/skvora/clothes-shop/internal/checkout"
	"github.com/skvora/clothes-shop/internal/models"
)

type OrderHandler struct {
	DB        *gorm.DB
	Engine    *checkout.Engine
	JWTSecret []byte
}

// PlaceOrder is the single entry point into the checkout transaction.
func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	userID, err := authn.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var info checkout.DeliveryInfo
	if err := c.Bind(&info); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	order, items, err := h.Engine.PlaceOrder(c.Request().Context(), userID, info)
	if err != nil {
		var ve *checkout.ValidationError
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Reason)
		}
		var ise *checkout.InsufficientStockError
		if errors.As(err, &ise) {
			return echo.NewHTTPError(http.StatusConflict, ise.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not place order")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"order": order,
		"items": items,
	})
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	userID, err := authn.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var orders []models.Order
	if err := h.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	userID, err := authn.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.OrderItem
	if err := h.DB.Where("order_id = ?", order.ID).Order("id ASC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"order": order,
		"items": items,
	})
}
