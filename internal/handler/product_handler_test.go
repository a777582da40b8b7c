package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nattapong-dev/inventory-api/internal/model"
	"github.com/nattapong-dev/inventory-api/pkg/config"
	"github.com/nattapong-dev/inventory-api/pkg/storage"
)

func newProductHandler(t *testing.T, db *gorm.DB) *ProductHandler {
	t.Helper()
	images, err := storage.NewDiskStore(&config.UploadConfig{
		Dir:        t.TempDir(),
		MaxSizeMB:  1,
		PublicPath: "/uploads",
	})
	require.NoError(t, err)
	return NewProductHandler(db, images)
}

func riceRequest() map[string]interface{} {
	return map[string]interface{}{
		"name":      "Rice",
		"code":      "RICE01",
		"category":  "Food",
		"price":     50,
		"quantity":  100,
		"unit":      "kg",
		"threshold": 10,
	}
}

func createProduct(t *testing.T, h *ProductHandler, userID uint, body map[string]interface{}) model.Product {
	t.Helper()
	e := newTestEcho()
	c, rec := newJSONContext(t, e, http.MethodPost, "/products", body, userID)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var product model.Product
	decodeBody(t, rec, &product)
	return product
}

func TestProductCreate_Valid(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)

	product := createProduct(t, h, 1, riceRequest())

	assert.Equal(t, "RICE01", product.Code)
	assert.Equal(t, uint(1), product.CreatedBy)
	assert.Equal(t, 100, product.Quantity)
}

func TestProductCreate_NormalizesCode(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)

	body := riceRequest()
	body["code"] = "rice01"
	product := createProduct(t, h, 1, body)

	assert.Equal(t, "RICE01", product.Code)
}

func TestProductCreate_AggregatesValidationErrors(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)
	e := newTestEcho()

	c, rec := newJSONContext(t, e, http.MethodPost, "/products", map[string]interface{}{
		"name":      "",
		"code":      "X1",
		"category":  "Weapons",
		"price":     -5,
		"quantity":  -1,
		"unit":      "tonne",
		"threshold": 0,
	}, 1)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "validation error", body.Message)
	assert.Len(t, body.Errors, 6)
}

func TestProductCreate_CodeUniqueAcrossUsers(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)
	createProduct(t, h, 1, riceRequest())

	// A different owner, a lowercase spelling of the same code
	e := newTestEcho()
	body := riceRequest()
	body["code"] = "rice01"
	c, rec := newJSONContext(t, e, http.MethodPost, "/products", body, 2)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProductCreate_CodeReusableAfterDelete(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)
	product := createProduct(t, h, 1, riceRequest())

	e := newTestEcho()
	c, rec := newJSONContext(t, e, http.MethodDelete, "/products/:id", nil, 1)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(product.ID))
	require.NoError(t, h.Delete(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// The deleted product no longer reserves its code
	recreated := createProduct(t, h, 1, riceRequest())
	assert.Equal(t, "RICE01", recreated.Code)
	assert.NotEqual(t, product.ID, recreated.ID)
}

func TestProductGet_ForeignProductIsNotFound(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)
	product := createProduct(t, h, 1, riceRequest())

	e := newTestEcho()
	c, rec := newJSONContext(t, e, http.MethodGet, "/products/:id", nil, 2)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(product.ID))
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The owner sees it
	c2, rec2 := newJSONContext(t, e, http.MethodGet, "/products/:id", nil, 1)
	c2.SetParamNames("id")
	c2.SetParamValues(fmt.Sprint(product.ID))
	require.NoError(t, h.Get(c2))
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestProductList_ScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)
	createProduct(t, h, 1, riceRequest())
	body := riceRequest()
	body["code"] = "BEAN01"
	body["name"] = "Beans"
	createProduct(t, h, 2, body)

	e := newTestEcho()
	c, rec := newJSONContext(t, e, http.MethodGet, "/products", nil, 1)
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var products []model.Product
	decodeBody(t, rec, &products)
	require.Len(t, products, 1)
	assert.Equal(t, "RICE01", products[0].Code)
}

func TestProductUpdate_PartialBody(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)

	body := riceRequest()
	body["expiry_date"] = time.Now().AddDate(0, 6, 0).Format(time.RFC3339)
	product := createProduct(t, h, 1, body)

	// Only the supplied field changes; everything else keeps its stored value
	e := newTestEcho()
	c, rec := newJSONContext(t, e, http.MethodPut, "/products/:id", map[string]interface{}{
		"quantity": 5,
	}, 1)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(product.ID))
	require.NoError(t, h.Update(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated model.Product
	decodeBody(t, rec, &updated)
	assert.Equal(t, 5, updated.Quantity)
	assert.Equal(t, "Rice", updated.Name)
	assert.Equal(t, "RICE01", updated.Code)
	assert.Equal(t, 50.0, updated.Price)
	require.NotNil(t, updated.ExpiryDate)
}

func TestProductUpdate_ForeignProductIsNotFound(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)
	product := createProduct(t, h, 1, riceRequest())

	e := newTestEcho()
	c, rec := newJSONContext(t, e, http.MethodPut, "/products/:id", riceRequest(), 2)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(product.ID))
	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductDelete(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)
	product := createProduct(t, h, 1, riceRequest())

	// Foreign delete reports not found
	e := newTestEcho()
	c, rec := newJSONContext(t, e, http.MethodDelete, "/products/:id", nil, 2)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(product.ID))
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Owner delete succeeds
	c2, rec2 := newJSONContext(t, e, http.MethodDelete, "/products/:id", nil, 1)
	c2.SetParamNames("id")
	c2.SetParamValues(fmt.Sprint(product.ID))
	require.NoError(t, h.Delete(c2))
	assert.Equal(t, http.StatusOK, rec2.Code)

	// Gone afterwards
	c3, rec3 := newJSONContext(t, e, http.MethodGet, "/products/:id", nil, 1)
	c3.SetParamNames("id")
	c3.SetParamValues(fmt.Sprint(product.ID))
	require.NoError(t, h.Get(c3))
	assert.Equal(t, http.StatusNotFound, rec3.Code)
}

func TestProductSearch_CaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)
	createProduct(t, h, 1, riceRequest())
	body := riceRequest()
	body["code"] = "COLA01"
	body["name"] = "Cola"
	body["category"] = "Beverage"
	createProduct(t, h, 1, body)

	e := newTestEcho()
	c, rec := newJSONContext(t, e, http.MethodGet, "/products/search?query=rIcE", nil, 1)
	require.NoError(t, h.Search(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var products []model.Product
	decodeBody(t, rec, &products)
	require.Len(t, products, 1)
	assert.Equal(t, "Rice", products[0].Name)

	// Matches category substrings too, but never another user's rows
	c2, rec2 := newJSONContext(t, e, http.MethodGet, "/products/search?query=beverage", nil, 2)
	require.NoError(t, h.Search(c2))
	var others []model.Product
	decodeBody(t, rec2, &others)
	assert.Empty(t, others)
}

func TestProductByCategory_SortedByName(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)
	body := riceRequest()
	body["name"] = "Rice"
	createProduct(t, h, 1, body)
	body2 := riceRequest()
	body2["code"] = "APPL01"
	body2["name"] = "Apples"
	createProduct(t, h, 1, body2)

	e := newTestEcho()
	c, rec := newJSONContext(t, e, http.MethodGet, "/products/category/:category", nil, 1)
	c.SetParamNames("category")
	c.SetParamValues("Food")
	require.NoError(t, h.ByCategory(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var products []model.Product
	decodeBody(t, rec, &products)
	require.Len(t, products, 2)
	assert.Equal(t, "Apples", products[0].Name)
	assert.Equal(t, "Rice", products[1].Name)
}

func TestLowStockScenario(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)
	product := createProduct(t, h, 1, riceRequest())

	// quantity 100 > threshold 10: not low stock yet
	e := newTestEcho()
	c, rec := newJSONContext(t, e, http.MethodGet, "/products/low-stock", nil, 1)
	require.NoError(t, h.LowStock(c))
	var products []model.Product
	decodeBody(t, rec, &products)
	assert.Empty(t, products)

	// Reduce quantity to 5 via update
	body := riceRequest()
	body["quantity"] = 5
	c2, rec2 := newJSONContext(t, e, http.MethodPut, "/products/:id", body, 1)
	c2.SetParamNames("id")
	c2.SetParamValues(fmt.Sprint(product.ID))
	require.NoError(t, h.Update(c2))
	require.Equal(t, http.StatusOK, rec2.Code)

	// Now listed for the owner
	c3, rec3 := newJSONContext(t, e, http.MethodGet, "/products/low-stock", nil, 1)
	require.NoError(t, h.LowStock(c3))
	decodeBody(t, rec3, &products)
	require.Len(t, products, 1)
	assert.Equal(t, "RICE01", products[0].Code)

	// But not for anyone else
	c4, rec4 := newJSONContext(t, e, http.MethodGet, "/products/low-stock", nil, 2)
	require.NoError(t, h.LowStock(c4))
	decodeBody(t, rec4, &products)
	assert.Empty(t, products)
}

func TestProductExpiring_WindowFilter(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)

	body := riceRequest()
	body["expiry_date"] = time.Now().AddDate(0, 0, 10).Format(time.RFC3339)
	createProduct(t, h, 1, body)

	body2 := riceRequest()
	body2["code"] = "MILK01"
	body2["name"] = "Milk"
	body2["expiry_date"] = time.Now().AddDate(0, 0, 60).Format(time.RFC3339)
	createProduct(t, h, 1, body2)

	// Default window of 30 days catches only the first product
	e := newTestEcho()
	c, rec := newJSONContext(t, e, http.MethodGet, "/products/expiring", nil, 1)
	require.NoError(t, h.Expiring(c))
	var products []model.Product
	decodeBody(t, rec, &products)
	require.Len(t, products, 1)
	assert.Equal(t, "RICE01", products[0].Code)

	// A wider window catches both
	c2, rec2 := newJSONContext(t, e, http.MethodGet, "/products/expiring?days=90", nil, 1)
	require.NoError(t, h.Expiring(c2))
	decodeBody(t, rec2, &products)
	assert.Len(t, products, 2)
}

func TestProductExpiring_RejectsNegativeDays(t *testing.T) {
	db := newTestDB(t)
	h := newProductHandler(t, db)

	e := newTestEcho()
	c, rec := newJSONContext(t, e, http.MethodGet, "/products/expiring?days=-7", nil, 1)
	require.NoError(t, h.Expiring(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
