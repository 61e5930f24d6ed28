package cart

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skvora/clothes-shop/internal/authn"
	"github.com/skvora/clothes-shop/internal/models"
	"github.com/skvora/clothes-shop/internal/mykafka"
)

type CartHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	JWTSecret []byte
}

// MergeItem upserts a cart line on its (cart, product, size) key, adding
// qty to any existing quantity in a single statement.
func MergeItem(tx *gorm.DB, cartID, productID uint, size string, qty uint) (*models.CartItem, error) {
	item := models.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Size:      size,
		Quantity:  qty,
	}
	err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}, {Name: "size"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity": gorm.Expr("cart_items.quantity + excluded.quantity"),
		}),
	}).Create(&item).Error
	if err != nil {
		return nil, err
	}
	// Re-read: on conflict the returned struct does not carry the merged row.
	var merged models.CartItem
	err = tx.Where("cart_id = ? AND product_id = ? AND size = ?", cartID, productID, size).First(&merged).Error
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := authn.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	cart, err := getOrCreateCart(h.DB, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.CartItem
	if err := h.DB.Preload("Product").Where("cart_id = ?", cart.ID).Order("id ASC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	h.publish(c, userID, map[string]any{
		"type":   "get_cart",
		"userID": userID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"cart_id": cart.ID,
		"items":   items,
		"total":   total,
	})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := authn.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint   `json:"product_id"`
		Size      string `json:"size"`
		Quantity  uint   `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	size := ""
	if product.HasSizes {
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
		cart, err := getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		if product.HasSizes {
			// Best-effort availability check; checkout re-validates under
			// lock and is the authority.
			var ps models.ProductSize
			if err := tx.Where("product_id = ? AND size = ?", product.ID, size).First(&ps).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusBadRequest, "size not available for this product")
				}
				return err
			}
			if ps.Stock == 0 {
				return echo.NewHTTPError(http.StatusConflict, size+" is out of stock")
			}

			merged, err := MergeItem(tx, cart.ID, product.ID, size, req.Quantity)
			if err != nil {
				return err
			}
			if merged.Quantity > ps.Stock {
				return echo.NewHTTPError(http.StatusConflict, "only "+strconv.Itoa(int(ps.Stock))+" available for size "+size)
			}
			item = merged
			return nil
		}

		merged, err := MergeItem(tx, cart.ID, product.ID, "", req.Quantity)
		if err != nil {
			return err
		}
		item = merged
		return nil
	})
	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	h.publish(c, userID, map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": product.ID,
		"size":      size,
		"quantity":  item.Quantity,
	})

	return c.JSON(http.StatusOK, item)
}

// UpdateItem increases or decreases one cart line; decreasing a line of
// quantity 1 removes it, mirroring the storefront's +/- controls.
func (h *CartHandler) UpdateItem(c echo.Context) error {
	userID, err := authn.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	item, err := userCartItem(h.DB, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	switch req.Action {
	case "increase":
		if item.Size != "" {
			var ps models.ProductSize
			if err := h.DB.Where("product_id = ? AND size = ?", item.ProductID, item.Size).First(&ps).Error; err == nil {
				if item.Quantity+1 > ps.Stock {
					return echo.NewHTTPError(http.StatusConflict, "only "+strconv.Itoa(int(ps.Stock))+" available for size "+item.Size)
				}
			}
		}
		item.Quantity++
		if err := h.DB.Omit(clause.Associations).Save(item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	case "decrease":
		if item.Quantity > 1 {
			item.Quantity--
			if err := h.DB.Omit(clause.Associations).Save(item).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		} else {
			if err := h.DB.Delete(item).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			h.publish(c, userID, map[string]any{
				"type":   "cart_item_removed",
				"userID": userID,
				"itemID": item.ID,
			})
			return c.JSON(http.StatusOK, echo.Map{"removed": true})
		}
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown action")
	}

	h.publish(c, userID, map[string]any{
		"type":     "cart_item_updated",
		"userID":   userID,
		"itemID":   item.ID,
		"quantity": item.Quantity,
	})

	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	userID, err := authn.UserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	item, err := userCartItem(h.DB, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.DB.Delete(item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, userID, map[string]any{
		"type":   "cart_item_removed",
		"userID": userID,
		"itemID": item.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"removed": true})
}
