// Package checkout converts a user's cart into a persisted order as one
// atomic unit: stock validation, order and line-item creation, per-variant
// stock decrements and cart clearing either all commit or all roll back.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/skvora/clothes-shop/internal/inventory"
	"github.com/skvora/clothes-shop/internal/models"
	"github.com/skvora/clothes-shop/internal/notify"
)

// DeliveryInfo is gathered before the transaction starts; all fields are
// required.
type DeliveryInfo struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// ValidationError reports bad checkout input, including an empty cart.
// Nothing has been written when it is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "checkout: " + e.Reason }

// InsufficientStockError names the variant that could not cover the
// requested quantity. The cart is untouched and the call may be retried.
type InsufficientStockError struct {
	Product string
	Size    string
}

func (e *InsufficientStockError) Error() string {
	if e.Size == "" {
		return fmt.Sprintf("not enough stock for %s", e.Product)
	}
	return fmt.Sprintf("not enough stock for %s (size %s)", e.Product, e.Size)
}

// ErrTransactionFailed wraps storage failures that aborted a checkout. The
// transaction has been rolled back and the call is safe to retry.
var ErrTransactionFailed = errors.New("checkout: transaction failed")

type Engine struct {
	DB       *gorm.DB
	Notifier notify.Notifier
	Log      *slog.Logger
}

// PlaceOrder runs the checkout transaction for userID. On success the
// order and its items are durably persisted, every consumed variant is
// decremented by exactly the ordered quantity and the cart is empty. On
// any error no partial state survives.
func (e *Engine) PlaceOrder(ctx context.Context, userID uint, info DeliveryInfo) (*models.Order, []models.OrderItem, error) {
	info.FullName = strings.TrimSpace(info.FullName)
	info.Phone = strings.TrimSpace(info.Phone)
	info.Address = strings.TrimSpace(info.Address)
	if info.FullName == "" || info.Phone == "" || info.Address == "" {
		return nil, nil, &ValidationError{Reason: "full name, phone and address are required"}
	}

	var (
		order      models.Order
		orderItems []models.OrderItem
	)

	txErr := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ValidationError{Reason: "cart is empty"}
			}
			return err
		}

		var items []models.CartItem
		if err := tx.Where("cart_id = ?", cart.ID).Order("id ASC").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return &ValidationError{Reason: "cart is empty"}
		}

		// First pass: lock every sized variant and make sure the whole cart
		// is coverable before anything is written. The row locks stay held
		// until commit, so the later decrements cannot be raced.
		products := make(map[uint]models.Product, len(items))
		for _, it := range items {
			p, ok := products[it.ProductID]
			if !ok {
				if err := tx.First(&p, it.ProductID).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return &ValidationError{Reason: "product no longer exists"}
					}
					return err
				}
				products[it.ProductID] = p
			}
			if !p.HasSizes {
				continue
			}
			if err := inventory.CheckAvailable(tx, it.ProductID, it.Size, it.Quantity); err != nil {
				if errors.Is(err, inventory.ErrInsufficientStock) || errors.Is(err, gorm.ErrRecordNotFound) {
					return &InsufficientStockError{Product: p.Name, Size: it.Size}
				}
				return err
			}
		}

		total := decimal.Zero
		for _, it := range items {
			total = total.Add(products[it.ProductID].Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}

		order = models.Order{
			Reference: uuid.NewString(),
			UserID:    userID,
			FullName:  info.FullName,
			Phone:     info.Phone,
			Address:   info.Address,
			Status:    models.OrderStatusPlaced,
			Total:     total,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		orderItems = make([]models.OrderItem, 0, len(items))
		for _, it := range items {
			p := products[it.ProductID]
			size := ""
			if p.HasSizes {
				size = it.Size
			}
			oi := models.OrderItem{
				OrderID:   order.ID,
				ProductID: it.ProductID,
				Size:      size,
				Quantity:  it.Quantity,
			}
			if err := tx.Create(&oi).Error; err != nil {
				return err
			}
			orderItems = append(orderItems, oi)

			if p.HasSizes {
				if err := inventory.Reserve(tx, it.ProductID, it.Size, it.Quantity); err != nil {
					if errors.Is(err, inventory.ErrInsufficientStock) {
						return &InsufficientStockError{Product: p.Name, Size: it.Size}
					}
					return err
				}
			}
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return nil
	})

	if txErr != nil {
		var ve *ValidationError
		var ise *InsufficientStockError
		if errors.As(txErr, &ve) || errors.As(txErr, &ise) {
			return nil, nil, txErr
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrTransactionFailed, txErr)
	}

	e.notifyPlaced(ctx, &order, orderItems)

	return &order, orderItems, nil
}

// notifyPlaced runs strictly after commit; a failing sink never changes
// the reported outcome of PlaceOrder.
func (e *Engine) notifyPlaced(ctx context.Context, order *models.Order, items []models.OrderItem) {
	if e.Notifier == nil {
		return
	}
	if err := e.Notifier.OrderPlaced(ctx, order, items); err != nil {
		e.logger().Warn("order notification failed",
			"order_id", order.ID,
			"reference", order.Reference,
			"err", err,
		)
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}
