package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nattapong-dev/inventory-api/internal/middleware"
	"github.com/nattapong-dev/inventory-api/internal/model"
	"github.com/nattapong-dev/inventory-api/pkg/logger"
	"github.com/nattapong-dev/inventory-api/prometheus"
)

// InvoiceHandler serves the owner-scoped invoice ledger. Monetary totals are
// computed once at creation and stored frozen; reads never recompute them.
type InvoiceHandler struct {
	db *gorm.DB
}

// NewInvoiceHandler wires the invoice endpoints to the database
func NewInvoiceHandler(db *gorm.DB) *InvoiceHandler {
	return &InvoiceHandler{db: db}
}

// InvoiceItemRequest is one line item in an invoice request
type InvoiceItemRequest struct {
	ProductID uint    `json:"product_id" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gte=1"`
	Price     float64 `json:"price" validate:"gte=0"`
}

// InvoiceRequest defines the structure for invoice creation requests. The tax
// rate is supplied by the caller and applied exactly once.
type InvoiceRequest struct {
	Customer        string               `json:"customer" validate:"required"`
	Email           string               `json:"email" validate:"omitempty,email"`
	Address         string               `json:"address"`
	InvoiceDate     time.Time            `json:"invoice_date" validate:"required"`
	DueDate         *time.Time           `json:"due_date"`
	Notes           string               `json:"notes"`
	ReferenceNumber string               `json:"reference_number" validate:"required"`
	Items           []InvoiceItemRequest `json:"items" validate:"dive"`
	TaxRate         float64              `json:"tax_rate" validate:"gte=0"`
}

// InvoiceUpdateRequest carries a full replacement document. The ledger stores
// the monetary fields as supplied and does not recompute them.
type InvoiceUpdateRequest struct {
	Customer        string               `json:"customer" validate:"required"`
	Email           string               `json:"email" validate:"omitempty,email"`
	Address         string               `json:"address"`
	InvoiceDate     time.Time            `json:"invoice_date" validate:"required"`
	DueDate         *time.Time           `json:"due_date"`
	Notes           string               `json:"notes"`
	ReferenceNumber string               `json:"reference_number" validate:"required"`
	Items           []InvoiceItemRequest `json:"items" validate:"dive"`
	Subtotal        float64              `json:"subtotal" validate:"gte=0"`
	TaxAmount       float64              `json:"tax_amount" validate:"gte=0"`
	Total           float64              `json:"total" validate:"gte=0"`
	Status          string               `json:"status" validate:"omitempty,oneof=Paid Unpaid Pending"`
}

// invoiceItemView is a line item with its product reference resolved to the
// current product record for display. The stored snapshot is untouched; a
// since-deleted product simply resolves to null.
type invoiceItemView struct {
	ID        uint           `json:"id"`
	ProductID uint           `json:"product_id"`
	Quantity  int            `json:"quantity"`
	Price     float64        `json:"price"`
	Product   *model.Product `json:"product,omitempty"`
}

type invoiceView struct {
	model.Invoice
	Items []invoiceItemView `json:"items"`
}

// List handles retrieving all invoices owned by the caller, with each line
// item's product resolved at read time.
func (h *InvoiceHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := middleware.UserIDFromContext(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var invoices []model.Invoice
	result := h.db.Preload("Items").Where("user_id = ?", userID).Order("created_at desc").Find(&invoices)
	if result.Error != nil {
		log.Error("Failed to list invoices", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to retrieve invoices"})
	}

	// Collect the referenced product ids and resolve them in one query
	idSet := make(map[uint]struct{})
	for _, inv := range invoices {
		for _, item := range inv.Items {
			idSet[item.ProductID] = struct{}{}
		}
	}
	productIDs := make([]uint, 0, len(idSet))
	for id := range idSet {
		productIDs = append(productIDs, id)
	}

	productsByID := make(map[uint]model.Product, len(productIDs))
	if len(productIDs) > 0 {
		var products []model.Product
		if result := h.db.Where("id IN ? AND created_by = ?", productIDs, userID).Find(&products); result.Error != nil {
			log.Error("Failed to resolve invoice products", zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to retrieve invoices"})
		}
		for _, p := range products {
			productsByID[p.ID] = p
		}
	}

	views := make([]invoiceView, 0, len(invoices))
	for _, inv := range invoices {
		view := invoiceView{Invoice: inv, Items: make([]invoiceItemView, 0, len(inv.Items))}
		for _, item := range inv.Items {
			iv := invoiceItemView{
				ID:        item.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Price,
			}
			if p, ok := productsByID[item.ProductID]; ok {
				product := p
				iv.Product = &product
			}
			view.Items = append(view.Items, iv)
		}
		views = append(views, view)
	}

	log.Info("Invoices retrieved", zap.Int("count", len(views)))
	return c.JSON(http.StatusOK, views)
}

// Create handles creating an invoice with a computed, frozen monetary snapshot
func (h *InvoiceHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := middleware.UserIDFromContext(c)
	prometheus.RecordInvoiceOperation("create")

	var req InvoiceRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		errs := validationMessages(err)
		log.Warn("Invoice validation failed", zap.Strings("errors", errs))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": errs})
	}

	items := make([]model.InvoiceItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, model.InvoiceItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	subtotal, taxAmount, total := model.ComputeTotals(items, req.TaxRate)

	invoice := model.Invoice{
		UserID:          userID,
		Customer:        req.Customer,
		Email:           req.Email,
		Address:         req.Address,
		InvoiceDate:     req.InvoiceDate,
		DueDate:         req.DueDate,
		Notes:           req.Notes,
		ReferenceNumber: req.ReferenceNumber,
		Items:           items,
		Subtotal:        subtotal,
		TaxAmount:       taxAmount,
		Total:           total,
		Status:          model.StatusUnpaid,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := h.db.Create(&invoice); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			log.Warn("Reference number already exists", zap.String("reference_number", req.ReferenceNumber))
			return c.JSON(http.StatusConflict, echo.Map{"message": "reference number already exists"})
		}
		log.Error("Failed to create invoice", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to create invoice"})
	}

	log.Info("Invoice created",
		zap.Uint("invoice_id", invoice.ID),
		zap.String("reference_number", invoice.ReferenceNumber),
		zap.Float64("total", invoice.Total))
	return c.JSON(http.StatusCreated, invoice)
}

// Update handles a full-document overwrite of an invoice owned by the caller.
// Items are replaced wholesale inside a transaction so the invoice is never
// observable with a partial item set.
func (h *InvoiceHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := middleware.UserIDFromContext(c)
	id := c.Param("id")
	prometheus.RecordInvoiceOperation("update")

	var req InvoiceUpdateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("invoice_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		errs := validationMessages(err)
		log.Warn("Invoice validation failed", zap.Strings("errors", errs))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": errs})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var invoice model.Invoice
	result := h.db.Where("id = ? AND user_id = ?", id, userID).First(&invoice)
	if result.Error != nil {
		log.Warn("Invoice not found for update", zap.String("invoice_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"message": "invoice not found"})
	}

	invoice.Customer = req.Customer
	invoice.Email = req.Email
	invoice.Address = req.Address
	invoice.InvoiceDate = req.InvoiceDate
	invoice.DueDate = req.DueDate
	invoice.Notes = req.Notes
	invoice.ReferenceNumber = req.ReferenceNumber
	invoice.Subtotal = req.Subtotal
	invoice.TaxAmount = req.TaxAmount
	invoice.Total = req.Total
	if req.Status != "" {
		invoice.Status = req.Status
	}

	items := make([]model.InvoiceItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, model.InvoiceItem{
			InvoiceID: invoice.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(&invoice).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&model.InvoiceItem{}).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Warn("Reference number already exists", zap.String("reference_number", req.ReferenceNumber))
			return c.JSON(http.StatusConflict, echo.Map{"message": "reference number already exists"})
		}
		log.Error("Failed to update invoice", zap.String("invoice_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to update invoice"})
	}

	invoice.Items = items
	log.Info("Invoice updated", zap.Uint("invoice_id", invoice.ID))
	return c.JSON(http.StatusOK, invoice)
}

// Delete handles deleting an invoice owned by the caller. The invoice and its
// line items are removed together; the reference number becomes reusable.
func (h *InvoiceHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := middleware.UserIDFromContext(c)
	id := c.Param("id")
	prometheus.RecordInvoiceOperation("delete")

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var invoice model.Invoice
	if result := h.db.Where("id = ? AND user_id = ?", id, userID).First(&invoice); result.Error != nil {
		log.Warn("Invoice not found for deletion", zap.String("invoice_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"message": "invoice not found"})
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&model.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&invoice).Error
	})
	if err != nil {
		log.Error("Failed to delete invoice", zap.String("invoice_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to delete invoice"})
	}

	log.Info("Invoice deleted", zap.String("invoice_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "invoice deleted"})
}

// SetStatus updates only the status column of an invoice owned by the caller.
// Any status may move to any other status.
func (h *InvoiceHandler) SetStatus(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := middleware.UserIDFromContext(c)
	id := c.Param("id")
	prometheus.RecordInvoiceOperation("status")

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("invoice_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request data"})
	}

	if !model.IsValidStatus(req.Status) {
		log.Warn("Invalid invoice status", zap.String("status", req.Status))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid status"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	result := h.db.Model(&model.Invoice{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("status", req.Status)
	if result.Error != nil {
		log.Error("Failed to update invoice status", zap.String("invoice_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to update status"})
	}
	if result.RowsAffected == 0 {
		log.Warn("Invoice not found for status update", zap.String("invoice_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"message": "invoice not found"})
	}

	var invoice model.Invoice
	if result := h.db.Preload("Items").Where("id = ? AND user_id = ?", id, userID).First(&invoice); result.Error != nil {
		log.Error("Failed to reload invoice", zap.String("invoice_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to update status"})
	}

	log.Info("Invoice status updated",
		zap.Uint("invoice_id", invoice.ID),
		zap.String("status", invoice.Status))
	return c.JSON(http.StatusOK, echo.Map{"invoice": invoice})
}
