// Package inventory is the single write path for variant stock counters.
// Every decrement goes through Reserve inside the checkout transaction; no
// other code is allowed to lower a stock value.
package inventory

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skvora/clothes-shop/internal/models"
)

// ErrInsufficientStock is returned when a variant cannot cover the
// requested quantity.
var ErrInsufficientStock = errors.New("insufficient stock")

// lockVariant loads the stock row for (productID, size), taking a row lock
// on dialects that support it. The lock is released at transaction commit,
// so a check followed by Reserve in the same transaction cannot be raced by
// another checkout on the same variant. Unrelated variants are not
// contended.
func lockVariant(tx *gorm.DB, productID uint, size string) (*models.ProductSize, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var ps models.ProductSize
	if err := q.Where("product_id = ? AND size = ?", productID, size).First(&ps).Error; err != nil {
		return nil, err
	}
	return &ps, nil
}

// CheckAvailable verifies under lock that the variant can cover qty. It
// must be called inside the transaction that later calls Reserve.
func CheckAvailable(tx *gorm.DB, productID uint, size string, qty uint) error {
	ps, err := lockVariant(tx, productID, size)
	if err != nil {
		return err
	}
	if ps.Stock < qty {
		return ErrInsufficientStock
	}
	return nil
}

// Reserve decrements the variant's stock by qty. The stock >= qty guard in
// the WHERE clause re-checks availability at decrement time: if a
// concurrent reservation consumed the stock since CheckAvailable, zero rows
// are affected and ErrInsufficientStock is returned instead of driving the
// counter negative.
func Reserve(tx *gorm.DB, productID uint, size string, qty uint) error {
	res := tx.Model(&models.ProductSize{}).
		Where("product_id = ? AND size = ? AND stock >= ?", productID, size, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}
