package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skvora/clothes-shop/internal/models"
	"github.com/skvora/clothes-shop/internal/mykafka"
	"github.com/skvora/clothes-shop/internal/util"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	Index    string
}

type SizeInput struct {
	Size  string `json:"size"`
	Stock uint   `json:"stock"`
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// indexProduct mirrors the catalog row into Elasticsearch; the catalog in
// the database stays authoritative, so indexing errors are only logged.
func (h *ProductHandler) indexProduct(c echo.Context, p *models.Product) {
	if h.ES == nil {
		return
	}
	body, err := json.Marshal(p)
	if err != nil {
		c.Logger().Errorf("ES marshal error: %v", err)
		return
	}
	res, err := h.ES.Index(
		h.Index,
		bytes.NewReader(body),
		h.ES.Index.WithDocumentID(strconv.Itoa(int(p.ID))),
		h.ES.Index.WithContext(c.Request().Context()),
	)
	if err != nil {
		c.Logger().Errorf("ES index error: %v", err)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		c.Logger().Errorf("ES index error: %s", res.Status())
	}
}

func (h *ProductHandler) removeFromIndex(c echo.Context, id uint) {
	if h.ES == nil {
		return
	}
	res, err := h.ES.Delete(
		h.Index,
		strconv.Itoa(int(id)),
		h.ES.Delete.WithContext(c.Request().Context()),
	)
	if err != nil {
		c.Logger().Errorf("ES delete error: %v", err)
		return
	}
	res.Body.Close()
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	err = h.DB.
		Preload("Sizes", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		First(&product, id).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Product{}).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.Product
	if err := h.DB.Model(&models.Product{}).Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Price       decimal.Decimal `json:"price"`
		HasSizes    bool            `json:"has_sizes"`
		Sizes       []SizeInput     `json:"sizes"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if !req.HasSizes && len(req.Sizes) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "sizes given for a product without sizes")
	}
	for _, s := range req.Sizes {
		if !models.ValidSize(s.Size) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown size "+s.Size)
		}
	}

	prod := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Available:   true,
		HasSizes:    req.HasSizes,
	}
	for _, s := range req.Sizes {
		prod.Sizes = append(prod.Sizes, models.ProductSize{Size: s.Size, Stock: s.Stock})
	}

	if err := h.DB.Create(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.indexProduct(c, &prod)
	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	var req struct {
		Name        *string          `json:"name"`
		Description *string          `json:"description"`
		Price       *decimal.Decimal `json:"price"`
		Available   *bool            `json:"available"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Available != nil {
		updates["available"] = *req.Available
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&product).Updates(updates).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	h.indexProduct(c, &product)
	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": product.ID,
	})

	return c.JSON(http.StatusOK, product)
}

// UpsertSizes replaces the stock levels of a sized product. This is the
// admin replenishment path; checkout decrements go through the inventory
// package instead.
func (h *ProductHandler) UpsertSizes(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	if !product.HasSizes {
		return echo.NewHTTPError(http.StatusBadRequest, "product has no sizes")
	}

	var req []SizeInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	for _, s := range req {
		if !models.ValidSize(s.Size) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown size "+s.Size)
		}
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		for _, s := range req {
			ps := models.ProductSize{ProductID: product.ID, Size: s.Size, Stock: s.Stock}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "product_id"}, {Name: "size"}},
				DoUpdates: clause.Assignments(map[string]any{"stock": s.Stock}),
			}).Create(&ps).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var sizes []models.ProductSize
	if err := h.DB.Where("product_id = ?", product.ID).Order("sort_order ASC").Find(&sizes).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":      "product_stock_updated",
		"productID": product.ID,
	})

	return c.JSON(http.StatusOK, sizes)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductSize{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, id).Error
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.removeFromIndex(c, uint(id))
	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": uint(id),
	})

	return c.JSON(http.StatusOK, echo.Map{"deleted": id})
}
