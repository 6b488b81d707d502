package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"katalog/internal/app"
	"katalog/internal/config"
	"katalog/internal/database"
	"katalog/internal/logger"
	"katalog/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// setupApp builds the full application over a private in-memory SQLite
// database holding the seeded reference rows.
func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	log := logger.NewWithWriter("test", io.Discard)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(database.Options{Driver: "sqlite", DSN: dsn, MaxRetries: 1}, log)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.Seed(context.Background(), db))

	var cfg config.Config
	cfg.App.Name = "katalog-test"
	cfg.Metrics.Enabled = true
	cfg.Catalog.TaxRateMax = 100
	cfg.Catalog.DefaultPerPage = 15
	cfg.Catalog.MaxPerPage = 100
	cfg.Store.Name = "Katalog"
	cfg.Store.Currency = "TRY"
	cfg.Store.Timezone = "Europe/Istanbul"

	rt := &app.Runtime{Config: cfg, Log: log, DB: db}
	return rt.HTTP(rt.Services()), db
}

func do(t *testing.T, a *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func productPayload(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":      name,
		"unit_id":   1, // metre
		"price":     10.5,
		"tax_rate":  18,
		"stock_qty": 2.5,
	}
}

func createProduct(t *testing.T, a *fiber.App, payload map[string]interface{}) map[string]interface{} {
	t.Helper()
	status, body := do(t, a, http.MethodPost, "/admin/v1/products", payload)
	require.Equal(t, http.StatusCreated, status, body)
	return body
}

func idOf(body map[string]interface{}) int {
	return int(body["id"].(float64))
}

func TestHealth(t *testing.T) {
	a, _ := setupApp(t)

	status, body := do(t, a, http.MethodGet, "/admin/v1/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "katalog-test", body["app"])
}

func TestProductLifecycle(t *testing.T) {
	a, _ := setupApp(t)

	payload := productPayload("Pamuk Kumaş")
	payload["category_ids"] = []int{2, 1}
	payload["images"] = []map[string]interface{}{{"path": "p/front.jpg"}, {"path": "p/back.jpg", "alt": "Arka"}}
	payload["sku"] = "PK-01"
	created := createProduct(t, a, payload)

	assert.Equal(t, "pamuk-kumas", created["slug"])
	assert.Equal(t, 2.5, created["stock_qty"])
	assert.Equal(t, 10.5, created["price"])
	assert.Equal(t, true, created["is_active"])
	assert.Equal(t, []interface{}{2.0, 1.0}, created["category_ids"])
	assert.Equal(t, "p/front.jpg", created["image_url"])
	assert.Len(t, created["images"], 2)
	id := idOf(created)

	second := createProduct(t, a, productPayload("Pamuk Kumaş"))
	assert.Equal(t, "pamuk-kumas-2", second["slug"])

	status, got := do(t, a, http.MethodGet, fmt.Sprintf("/admin/v1/products/%d", id), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "metre", got["unit"].(map[string]interface{})["name"])
	assert.Len(t, got["categories"], 2)

	// partial update leaves everything else alone
	status, updated := do(t, a, http.MethodPut, fmt.Sprintf("/admin/v1/products/%d", id), map[string]interface{}{"price": 12})
	require.Equal(t, http.StatusOK, status, updated)
	assert.Equal(t, 12.0, updated["price"])
	assert.Equal(t, "Pamuk Kumaş", updated["name"])
	assert.Equal(t, "pamuk-kumas", updated["slug"])
	assert.Equal(t, "PK-01", updated["sku"])
	assert.Equal(t, []interface{}{2.0, 1.0}, updated["category_ids"])
	assert.Len(t, updated["images"], 2)

	// duplicate
	status, dup := do(t, a, http.MethodPost, fmt.Sprintf("/admin/v1/products/%d/duplicate", id), nil)
	require.Equal(t, http.StatusCreated, status, dup)
	assert.Equal(t, "Product duplicated.", dup["message"])
	copyData := dup["data"].(map[string]interface{})
	assert.Equal(t, "Copy of Pamuk Kumaş", copyData["name"])
	assert.Equal(t, "copy-of-pamuk-kumas", copyData["slug"])
	assert.Equal(t, false, copyData["is_active"])
	assert.Nil(t, copyData["sku"])
	assert.Equal(t, []interface{}{2.0, 1.0}, copyData["category_ids"])
	assert.Len(t, copyData["images"], 2)
	assert.NotEqual(t, float64(id), copyData["id"])

	// status toggle
	status, toggled := do(t, a, http.MethodPatch, fmt.Sprintf("/admin/v1/products/%d/status", id), map[string]interface{}{"is_active": false})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, toggled["is_active"])
	assert.Equal(t, 12.0, toggled["price"])

	status, body := do(t, a, http.MethodPatch, fmt.Sprintf("/admin/v1/products/%d/status", id), map[string]interface{}{})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["errors"], "is_active")

	// delete
	status, _ = do(t, a, http.MethodDelete, fmt.Sprintf("/admin/v1/products/%d", id), nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, body = do(t, a, http.MethodGet, fmt.Sprintf("/admin/v1/products/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Resource not found.", body["message"])
	status, _ = do(t, a, http.MethodDelete, fmt.Sprintf("/admin/v1/products/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestProductValidationResponses(t *testing.T) {
	a, _ := setupApp(t)

	status, body := do(t, a, http.MethodPost, "/admin/v1/products", map[string]interface{}{})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "The given data was invalid.", body["message"])
	errs := body["errors"].(map[string]interface{})
	for _, field := range []string{"name", "unit_id", "price", "tax_rate", "stock_qty"} {
		assert.Contains(t, errs, field)
	}

	payload := productPayload("Vida")
	payload["price"] = "abc"
	status, body = do(t, a, http.MethodPost, "/admin/v1/products", payload)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["errors"], "price")

	payload = productPayload("Vida")
	payload["unit_id"] = 2 // adet
	status, body = do(t, a, http.MethodPost, "/admin/v1/products", payload)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["errors"], "stock_qty")

	payload = productPayload("Vida")
	payload["category_ids"] = []int{1, 999}
	status, body = do(t, a, http.MethodPost, "/admin/v1/products", payload)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["errors"], "category_ids.1")

	status, body = do(t, a, http.MethodPost, "/admin/v1/products", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid request body", body["message"])

	status, _ = do(t, a, http.MethodGet, "/admin/v1/products/abc", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestProductRejectsValuesBeyondPrecision(t *testing.T) {
	a, _ := setupApp(t)

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"fractional stock on adet", `{"name":"Vida","unit_id":2,"price":1,"tax_rate":18,"stock_qty":2.0004}`, "stock_qty"},
		{"negative price", `{"name":"Vida","unit_id":1,"price":-0.004,"tax_rate":18,"stock_qty":1}`, "price"},
		{"negative stock", `{"name":"Vida","unit_id":1,"price":1,"tax_rate":18,"stock_qty":-0.0004}`, "stock_qty"},
		{"tax rate over maximum", `{"name":"Vida","unit_id":1,"price":1,"tax_rate":100.004,"stock_qty":1}`, "tax_rate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, a, http.MethodPost, "/admin/v1/products", tc.body)
			assert.Equal(t, http.StatusUnprocessableEntity, status, body)
			assert.Contains(t, body["errors"], tc.field)
		})
	}

	status, body := do(t, a, http.MethodGet, "/admin/v1/products", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0.0, body["meta"].(map[string]interface{})["total"])
}

func TestProductUnitChangeGuard(t *testing.T) {
	a, _ := setupApp(t)

	stocked := createProduct(t, a, productPayload("Kablo"))
	status, body := do(t, a, http.MethodPut, fmt.Sprintf("/admin/v1/products/%d", idOf(stocked)),
		map[string]interface{}{"unit_id": 2, "name": ""})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "UNIT_CHANGE_FORBIDDEN_WHEN_STOCK", body["message"])
	assert.Contains(t, body["errors"], "unit_id")

	empty := productPayload("Boş Kablo")
	empty["stock_qty"] = 0
	emptyProduct := createProduct(t, a, empty)
	status, body = do(t, a, http.MethodPut, fmt.Sprintf("/admin/v1/products/%d", idOf(emptyProduct)),
		map[string]interface{}{"unit_id": 2})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 2.0, body["unit_id"])
	assert.Equal(t, 0.0, body["stock_qty"])
}

func TestProductList(t *testing.T) {
	a, _ := setupApp(t)

	createProduct(t, a, productPayload("Vida"))
	createProduct(t, a, productPayload("Vida Uzun"))
	inactive := productPayload("Somun")
	inactive["is_active"] = false
	inactive["category_ids"] = []int{3}
	createProduct(t, a, inactive)

	status, body := do(t, a, http.MethodGet, "/admin/v1/products?q=Vida&per_page=1", nil)
	require.Equal(t, http.StatusOK, status)
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, 2.0, meta["total"])
	assert.Equal(t, 2.0, meta["last_page"])
	assert.Equal(t, 1.0, meta["per_page"])
	assert.Len(t, body["data"], 1)

	status, body = do(t, a, http.MethodGet, "/admin/v1/products?status=inactive", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["data"], 1)
	assert.Equal(t, "Somun", body["data"].([]interface{})[0].(map[string]interface{})["name"])

	status, body = do(t, a, http.MethodGet, "/admin/v1/products?category_id=3", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = do(t, a, http.MethodGet, "/admin/v1/products?sort=name&dir=asc", nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].([]interface{})
	require.Len(t, data, 3)
	assert.Equal(t, "Somun", data[0].(map[string]interface{})["name"])

	status, body = do(t, a, http.MethodGet, "/admin/v1/products?unit_id=x", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["errors"], "unit_id")

	status, body = do(t, a, http.MethodGet, "/products?query=Vida&pageSize=10", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 2)
}

func TestProductExport(t *testing.T) {
	a, _ := setupApp(t)
	createProduct(t, a, productPayload("Vida"))
	createProduct(t, a, productPayload("Somun"))

	resp, err := a.Test(httptest.NewRequest(http.MethodGet, "/admin/v1/products/export", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "slug", rows[0][2])
}

func TestUnitEndpoints(t *testing.T) {
	a, db := setupApp(t)

	createProduct(t, a, productPayload("Kumaş"))

	status, body := do(t, a, http.MethodGet, "/admin/v1/units", nil)
	require.Equal(t, http.StatusOK, status)
	units := body["data"].([]interface{})
	require.Len(t, units, 2)
	counts := map[string]float64{}
	for _, u := range units {
		m := u.(map[string]interface{})
		counts[m["name"].(string)] = m["products_count"].(float64)
	}
	assert.Equal(t, map[string]float64{"adet": 0, "metre": 1}, counts)

	status, body = do(t, a, http.MethodDelete, "/admin/v1/units/1", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "UNIT_IN_USE", body["code"])

	status, body = do(t, a, http.MethodPost, "/admin/v1/units", map[string]interface{}{"name": "kg", "text": "Kilogram", "step": 0.001})
	require.Equal(t, http.StatusCreated, status, body)
	kgID := idOf(body)

	status, body = do(t, a, http.MethodPost, "/admin/v1/units", map[string]interface{}{"text": "Eksik"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["errors"], "name")
	assert.Contains(t, body["errors"], "step")

	// fractional stock cannot move onto adet
	status, body = do(t, a, http.MethodPatch, "/admin/v1/units/1/replace", map[string]interface{}{"new_unit_id": 2})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "UNIT_REPLACE_INCOMPATIBLE", body["code"])

	status, body = do(t, a, http.MethodPatch, "/admin/v1/units/1/replace", map[string]interface{}{"new_unit_id": kgID})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 1.0, body["moved"])

	var product models.Product
	require.NoError(t, db.First(&product).Error)
	assert.Equal(t, uint(kgID), product.UnitID)
	assert.True(t, product.StockQty.Equal(decimal.RequireFromString("2.5")))

	status, _ = do(t, a, http.MethodGet, "/admin/v1/units/1", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = do(t, a, http.MethodDelete, "/admin/v1/units/2", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Unit deleted.", body["message"])

	status, body = do(t, a, http.MethodPatch, fmt.Sprintf("/admin/v1/units/%d/status", kgID), map[string]interface{}{"is_active": false})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["is_active"])
}

func TestLookupEndpoints(t *testing.T) {
	a, _ := setupApp(t)

	resp, err := a.Test(httptest.NewRequest(http.MethodGet, "/admin/v1/brands", nil), -1)
	require.NoError(t, err)
	var brands []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&brands))
	resp.Body.Close()
	require.Len(t, brands, 1)
	assert.Equal(t, "Genel", brands[0]["name"])

	resp, err = a.Test(httptest.NewRequest(http.MethodGet, "/admin/v1/categories", nil), -1)
	require.NoError(t, err)
	var categories []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&categories))
	resp.Body.Close()
	require.Len(t, categories, 3)
	assert.Equal(t, "elektronik", categories[0]["slug"])

	status, body := do(t, a, http.MethodGet, "/admin/v1/store.json", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "TRY", body["currency"])
}

func TestMetricsEndpoint(t *testing.T) {
	a, _ := setupApp(t)

	resp, err := a.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "katalog_slug_retries_total")
}
