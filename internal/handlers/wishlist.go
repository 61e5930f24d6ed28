package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skvora/clothes-shop/internal/authn"
	"github.com/skvora/clothes-shop/internal/handlers/cart"
	"github.com/skvora/clothes-shop/internal/models"
	"github.com/skvora/clothes-shop/internal/mykafka"
)

type WishlistHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	JWTSecret []byte
}

func (h *WishlistHandler) publish(c echo.Context, userID uint, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(userID), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *WishlistHandler) GetWishlist(c echo.Context) error {
	userID, err := authn.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var items []models.WishlistItem
	if err := h.DB.Preload("Product").Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, items)
}

// AddToWishlist is idempotent: adding the same product twice keeps one row.
func (h *WishlistHandler) AddToWishlist(c echo.Context) error {
	userID, err := authn.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	item := models.WishlistItem{UserID: userID, ProductID: product.ID}
	if err := h.DB.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, userID, map[string]any{
		"type":      "wishlist_item_added",
		"userID":    userID,
		"productID": product.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"product_id": product.ID})
}

func (h *WishlistHandler) RemoveFromWishlist(c echo.Context) error {
	userID, err := authn.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	res := h.DB.Where("id = ? AND user_id = ?", id, userID).Delete(&models.WishlistItem{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "item not found")
	}

	h.publish(c, userID, map[string]any{
		"type":   "wishlist_item_removed",
		"userID": userID,
		"itemID": id,
	})

	return c.JSON(http.StatusOK, echo.Map{"removed": true})
}

// MoveToCart turns a wishlist row into a cart line and deletes it, in one
// transaction. Sized products need a size; availability here is the same
// best-effort check as add-to-cart.
func (h *WishlistHandler) MoveToCart(c echo.Context) error {
	userID, err := authn.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Size string `json:"size"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var wishItem models.WishlistItem
	if err := h.DB.Preload("Product").Where("id = ? AND user_id = ?", id, userID).First(&wishItem).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	size := ""
	if wishItem.Product.HasSizes {
		if req.Size == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "please select a size")
		}
		if !models.ValidSize(req.Size) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown size "+req.Size)
		}
		size = req.Size
	}

	var item *models.CartItem
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if size != "" {
			var ps models.ProductSize
			if err := tx.Where("product_id = ? AND size = ?", wishItem.ProductID, size).First(&ps).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusBadRequest, "size not available for this product")
				}
				return err
			}
			if ps.Stock == 0 {
				return echo.NewHTTPError(http.StatusConflict, size+" is out of stock")
			}
		}

		userCart := models.Cart{UserID: userID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&userCart).Error; err != nil {
			return err
		}
		if userCart.ID == 0 {
			if err := tx.Where("user_id = ?", userID).First(&userCart).Error; err != nil {
				return err
			}
		}

		merged, err := cart.MergeItem(tx, userCart.ID, wishItem.ProductID, size, 1)
		if err != nil {
			return err
		}
		item = merged

		return tx.Delete(&models.WishlistItem{}, wishItem.ID).Error
	})
	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	h.publish(c, userID, map[string]any{
		"type":      "wishlist_item_moved",
		"userID":    userID,
		"productID": wishItem.ProductID,
		"size":      size,
	})

	return c.JSON(http.StatusOK, item)
}
