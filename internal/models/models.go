package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const OrderStatusPlaced = "placed"

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"not null"                 json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:user"    json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	Token     string `gorm:"unique;not null"     json:"token"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	Role      string `gorm:"not null"            json:"role"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"   json:"id"`
	Name        string          `gorm:"not null"                   json:"name"`
	Description string          `gorm:"not null"                   json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"price"`
	Available   bool            `gorm:"default:true"               json:"available"`
	HasSizes    bool            `gorm:"default:false"              json:"has_sizes"`
	CreatedAt   time.Time       `json:"created_at"`

	Sizes []ProductSize `gorm:"constraint:OnDelete:CASCADE" json:"sizes,omitempty"`
}

// ProductSize is the per-size stock row of a sized product. Stock is only
// ever decremented through the inventory package.
type ProductSize struct {
	ID        uint   `gorm:"primaryKey"                                   json:"id"`
	ProductID uint   `gorm:"not null;uniqueIndex:idx_product_size"        json:"product_id"`
	Size      string `gorm:"size:5;not null;uniqueIndex:idx_product_size" json:"size"`
	Stock     uint   `gorm:"not null;default:0"                           json:"stock"`
	SortOrder int    `json:"-"`
}

func (ps *ProductSize) BeforeSave(*gorm.DB) error {
	ps.SortOrder = SizeRank(ps.Size)
	return nil
}

// Cart is created lazily, at most one per user.
type Cart struct {
	ID     uint `gorm:"primaryKey"           json:"id"`
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`
}

// CartItem rows are unique by (cart, product, size); Size is "" for
// products without size variants.
type CartItem struct {
	ID        uint   `gorm:"primaryKey"                                                   json:"id"`
	CartID    uint   `gorm:"not null;uniqueIndex:idx_cart_product_size"                   json:"cart_id"`
	ProductID uint   `gorm:"not null;uniqueIndex:idx_cart_product_size"                   json:"product_id"`
	Size      string `gorm:"size:5;not null;default:'';uniqueIndex:idx_cart_product_size" json:"size,omitempty"`
	Quantity  uint   `gorm:"not null;default:1;check:quantity>0"                          json:"quantity"`

	Product Product `json:"product"`
}

type WishlistItem struct {
	ID        uint `gorm:"primaryKey"                            json:"id"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_user_product" json:"user_id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_user_product" json:"product_id"`

	Product Product `json:"product"`
}

// Order is immutable after checkout; delivery fields are denormalized so
// later account edits never change order history.
type Order struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	Reference string          `gorm:"uniqueIndex;not null"        json:"reference"`
	UserID    uint            `gorm:"index;not null"              json:"user_id"`
	FullName  string          `gorm:"not null"                    json:"full_name"`
	Phone     string          `gorm:"not null"                    json:"phone"`
	Address   string          `gorm:"not null"                    json:"address"`
	Status    string          `gorm:"not null;default:placed"     json:"status"`
	Total     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderItem is a snapshot of a cart line at commit time.
type OrderItem struct {
	ID        uint   `gorm:"primaryKey"                 json:"id"`
	OrderID   uint   `gorm:"index;not null"             json:"order_id"`
	ProductID uint   `gorm:"not null"                   json:"product_id"`
	Size      string `gorm:"size:5;not null;default:''" json:"size,omitempty"`
	Quantity  uint   `gorm:"not null"                   json:"quantity"`
}
