package inventory

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skvora/clothes-shop/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.ProductSize{}))
	return db
}

func seedVariants(t *testing.T, db *gorm.DB, stock map[string]uint) uint {
	t.Helper()
	p := models.Product{Name: "Shirt", Description: "Shirt", HasSizes: true}
	require.NoError(t, db.Create(&p).Error)
	for size, qty := range stock {
		require.NoError(t, db.Create(&models.ProductSize{ProductID: p.ID, Size: size, Stock: qty}).Error)
	}
	return p.ID
}

func stockOf(t *testing.T, db *gorm.DB, productID uint, size string) uint {
	t.Helper()
	var ps models.ProductSize
	require.NoError(t, db.Where("product_id = ? AND size = ?", productID, size).First(&ps).Error)
	return ps.Stock
}

func TestReserveDecrements(t *testing.T) {
	db := newTestDB(t)
	pid := seedVariants(t, db, map[string]uint{"M": 5, "L": 5})

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(tx, pid, "M", 3)
	})
	require.NoError(t, err)

	require.Equal(t, uint(2), stockOf(t, db, pid, "M"))
	// Sibling variant is untouched.
	require.Equal(t, uint(5), stockOf(t, db, pid, "L"))
}

func TestReserveRefusesOverdraw(t *testing.T) {
	db := newTestDB(t)
	pid := seedVariants(t, db, map[string]uint{"M": 2})

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(tx, pid, "M", 3)
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, uint(2), stockOf(t, db, pid, "M"))
}

func TestReserveExactRemainder(t *testing.T) {
	db := newTestDB(t)
	pid := seedVariants(t, db, map[string]uint{"S": 2})

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(tx, pid, "S", 2)
	})
	require.NoError(t, err)
	require.Equal(t, uint(0), stockOf(t, db, pid, "S"))

	err = db.Transaction(func(tx *gorm.DB) error {
		return Reserve(tx, pid, "S", 1)
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, uint(0), stockOf(t, db, pid, "S"))
}

func TestCheckAvailable(t *testing.T) {
	db := newTestDB(t)
	pid := seedVariants(t, db, map[string]uint{"XL": 4})

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return CheckAvailable(tx, pid, "XL", 4)
	}))

	err := db.Transaction(func(tx *gorm.DB) error {
		return CheckAvailable(tx, pid, "XL", 5)
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// Check alone must not change the counter.
	require.Equal(t, uint(4), stockOf(t, db, pid, "XL"))
}

func TestCheckAvailableUnknownVariant(t *testing.T) {
	db := newTestDB(t)
	pid := seedVariants(t, db, map[string]uint{"M": 1})

	err := db.Transaction(func(tx *gorm.DB) error {
		return CheckAvailable(tx, pid, "XS", 1)
	})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
