package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nattapong-dev/inventory-api/internal/middleware"
	"github.com/nattapong-dev/inventory-api/internal/model"
	"github.com/nattapong-dev/inventory-api/pkg/logger"
	"github.com/nattapong-dev/inventory-api/pkg/storage"
	"github.com/nattapong-dev/inventory-api/prometheus"
)

// ProductHandler serves the owner-scoped product catalog. Every query and
// mutation filters by created_by inside the query itself, so a product
// belonging to another user is indistinguishable from a missing one.
type ProductHandler struct {
	db     *gorm.DB
	images *storage.DiskStore
}

// NewProductHandler wires the product endpoints to the database and image store
func NewProductHandler(db *gorm.DB, images *storage.DiskStore) *ProductHandler {
	return &ProductHandler{db: db, images: images}
}

// ProductRequest defines the structure for product creation requests
type ProductRequest struct {
	Name        string     `json:"name" form:"name"`
	Code        string     `json:"code" form:"code"`
	Category    string     `json:"category" form:"category"`
	Price       float64    `json:"price" form:"price"`
	Quantity    int        `json:"quantity" form:"quantity"`
	Unit        string     `json:"unit" form:"unit"`
	ExpiryDate  *time.Time `json:"expiry_date" form:"expiry_date"`
	Threshold   int        `json:"threshold" form:"threshold"`
	Description string     `json:"description" form:"description"`
}

// List handles retrieving all products owned by the caller, newest first
func (h *ProductHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := middleware.UserIDFromContext(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var products []model.Product
	result := h.db.Where("created_by = ?", userID).Order("created_at desc").Find(&products)
	if result.Error != nil {
		log.Error("Failed to list products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to retrieve products"})
	}

	log.Info("Products retrieved", zap.Int("count", len(products)))
	return c.JSON(http.StatusOK, products)
}

// Get handles retrieving a single product by ID
func (h *ProductHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := middleware.UserIDFromContext(c)
	id := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var product model.Product
	result := h.db.Where("id = ? AND created_by = ?", id, userID).First(&product)
	if result.Error != nil {
		log.Warn("Product not found", zap.String("product_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
	}

	return c.JSON(http.StatusOK, product)
}

// Create handles creating a new product, with an optional image upload
func (h *ProductHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := middleware.UserIDFromContext(c)
	prometheus.RecordProductOperation("create")

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request data"})
	}

	product := model.Product{
		Name:        req.Name,
		Code:        req.Code,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		ExpiryDate:  req.ExpiryDate,
		Threshold:   req.Threshold,
		Description: req.Description,
		CreatedBy:   userID,
	}
	product.Normalize()

	if errs := product.Validate(); len(errs) > 0 {
		log.Warn("Product validation failed", zap.Strings("errors", errs))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": errs})
	}

	// Check if a product with this code already exists. The code is unique
	// system-wide, so the count is deliberately not scoped to the owner.
	defer prometheus.TrackDBOperation("query")(time.Now())
	var count int64
	h.db.Model(&model.Product{}).Where("code = ?", product.Code).Count(&count)
	if count > 0 {
		log.Warn("Product code already exists", zap.String("code", product.Code))
		return c.JSON(http.StatusConflict, echo.Map{"message": "product code already exists"})
	}

	// Store the image if one was supplied
	if file, err := c.FormFile("image"); err == nil {
		ref, err := h.images.Save(file)
		if err != nil {
			if errors.Is(err, storage.ErrNotImage) || errors.Is(err, storage.ErrTooLarge) {
				return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
			}
			log.Error("Failed to store image", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to store image"})
		}
		product.Image = ref
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := h.db.Create(&product); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			log.Warn("Product code already exists", zap.String("code", product.Code))
			return c.JSON(http.StatusConflict, echo.Map{"message": "product code already exists"})
		}
		log.Error("Failed to create product", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to create product"})
	}

	log.Info("Product created",
		zap.Uint("product_id", product.ID),
		zap.String("name", product.Name),
		zap.String("code", product.Code))
	return c.JSON(http.StatusCreated, product)
}

// ProductUpdateRequest defines the structure for product update requests.
// Fields are pointers so only the ones present in the request are applied;
// everything else keeps its stored value.
type ProductUpdateRequest struct {
	Name        *string    `json:"name" form:"name"`
	Code        *string    `json:"code" form:"code"`
	Category    *string    `json:"category" form:"category"`
	Price       *float64   `json:"price" form:"price"`
	Quantity    *int       `json:"quantity" form:"quantity"`
	Unit        *string    `json:"unit" form:"unit"`
	ExpiryDate  *time.Time `json:"expiry_date" form:"expiry_date"`
	Threshold   *int       `json:"threshold" form:"threshold"`
	Description *string    `json:"description" form:"description"`
}

// Update handles a partial update of an existing product owned by the caller
func (h *ProductHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := middleware.UserIDFromContext(c)
	id := c.Param("id")
	prometheus.RecordProductOperation("update")

	var req ProductUpdateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request data"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var product model.Product
	result := h.db.Where("id = ? AND created_by = ?", id, userID).First(&product)
	if result.Error != nil {
		log.Warn("Product not found for update", zap.String("product_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
	}

	// Apply only the provided fields
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Code != nil {
		product.Code = *req.Code
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Quantity != nil {
		product.Quantity = *req.Quantity
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}
	if req.ExpiryDate != nil {
		product.ExpiryDate = req.ExpiryDate
	}
	if req.Threshold != nil {
		product.Threshold = *req.Threshold
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	product.Normalize()

	if errs := product.Validate(); len(errs) > 0 {
		log.Warn("Product validation failed", zap.Strings("errors", errs))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": errs})
	}

	var count int64
	h.db.Model(&model.Product{}).Where("code = ? AND id != ?", product.Code, product.ID).Count(&count)
	if count > 0 {
		log.Warn("Product code already exists", zap.String("code", product.Code))
		return c.JSON(http.StatusConflict, echo.Map{"message": "product code already exists"})
	}

	// Replace the image reference only if a new file was supplied
	if file, err := c.FormFile("image"); err == nil {
		ref, err := h.images.Save(file)
		if err != nil {
			if errors.Is(err, storage.ErrNotImage) || errors.Is(err, storage.ErrTooLarge) {
				return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
			}
			log.Error("Failed to store image", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to store image"})
		}
		product.Image = ref
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := h.db.Save(&product); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return c.JSON(http.StatusConflict, echo.Map{"message": "product code already exists"})
		}
		log.Error("Failed to update product", zap.String("product_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to update product"})
	}

	log.Info("Product updated", zap.Uint("product_id", product.ID), zap.String("code", product.Code))
	return c.JSON(http.StatusOK, product)
}

// Delete handles deleting a product owned by the caller. Invoices keep their
// line-item snapshots; nothing cascades.
func (h *ProductHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := middleware.UserIDFromContext(c)
	id := c.Param("id")
	prometheus.RecordProductOperation("delete")

	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := h.db.Where("id = ? AND created_by = ?", id, userID).Delete(&model.Product{})
	if result.Error != nil {
		log.Error("Failed to delete product", zap.String("product_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to delete product"})
	}

	if result.RowsAffected == 0 {
		log.Warn("Product not found for deletion", zap.String("product_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
	}

	log.Info("Product deleted", zap.String("product_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "product deleted successfully"})
}

// Search handles case-insensitive substring search over name, code and category
func (h *ProductHandler) Search(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := middleware.UserIDFromContext(c)
	prometheus.RecordProductOperation("search")

	query := c.QueryParam("query")
	pattern := "%" + strings.ToLower(query) + "%"

	defer prometheus.TrackDBOperation("query")(time.Now())
	var products []model.Product
	result := h.db.Where("created_by = ?", userID).
		Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(category) LIKE ?", pattern, pattern, pattern).
		Order("name asc").
		Find(&products)
	if result.Error != nil {
		log.Error("Failed to search products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to search products"})
	}

	log.Info("Product search completed", zap.String("query", query), zap.Int("count", len(products)))
	return c.JSON(http.StatusOK, products)
}

// ByCategory handles retrieving the caller's products in one category
func (h *ProductHandler) ByCategory(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := middleware.UserIDFromContext(c)
	category := c.Param("category")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var products []model.Product
	result := h.db.Where("created_by = ? AND category = ?", userID, category).
		Order("name asc").
		Find(&products)
	if result.Error != nil {
		log.Error("Failed to list products by category", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to retrieve products"})
	}

	return c.JSON(http.StatusOK, products)
}

// LowStock handles retrieving products at or below their reorder threshold
func (h *ProductHandler) LowStock(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := middleware.UserIDFromContext(c)
	prometheus.RecordProductOperation("low_stock")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var products []model.Product
	result := h.db.Where("created_by = ?", userID).
		Where("quantity <= threshold").
		Order("quantity asc").
		Find(&products)
	if result.Error != nil {
		log.Error("Failed to list low-stock products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to retrieve products"})
	}

	log.Info("Low-stock products retrieved", zap.Int("count", len(products)))
	return c.JSON(http.StatusOK, products)
}

// Expiring handles retrieving products expiring within the given window
func (h *ProductHandler) Expiring(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := middleware.UserIDFromContext(c)
	prometheus.RecordProductOperation("expiring")

	days := 30
	if v := c.QueryParam("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			log.Warn("Invalid days parameter", zap.String("value", v))
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "days must be a non-negative number"})
		}
		days = parsed
	}
	targetDate := time.Now().AddDate(0, 0, days)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var products []model.Product
	result := h.db.Where("created_by = ?", userID).
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", targetDate).
		Order("expiry_date asc").
		Find(&products)
	if result.Error != nil {
		log.Error("Failed to list expiring products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to retrieve products"})
	}

	log.Info("Expiring products retrieved", zap.Int("days", days), zap.Int("count", len(products)))
	return c.JSON(http.StatusOK, products)
}
