package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skvora/clothes-shop/internal/models"
)

func (h *CartHandler) publish(c echo.Context, userID uint, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(userID), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// getOrCreateCart upserts the user's cart row. The unique index on user_id
// plus ON CONFLICT DO NOTHING makes the lazy creation race-free.
func getOrCreateCart(db *gorm.DB, userID uint) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&cart).Error; err != nil {
		return nil, err
	}
	if cart.ID == 0 {
		if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			return nil, err
		}
	}
	return &cart, nil
}

// userCartItem finds a cart line by id, checking it belongs to userID.
func userCartItem(db *gorm.DB, userID uint, itemID int) (*models.CartItem, error) {
	var item models.CartItem
	err := db.
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}
