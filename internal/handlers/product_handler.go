package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"katalog/internal/repositories"
	"katalog/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Paging holds the page size limits of list endpoints.
type Paging struct {
	DefaultPerPage int
	MaxPerPage     int
}

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
	export  *services.ExportService
	paging  Paging
	log     *slog.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, export *services.ExportService, paging Paging, logger *slog.Logger) *ProductHandler {
	if paging.DefaultPerPage <= 0 {
		paging.DefaultPerPage = 15
	}
	if paging.MaxPerPage < paging.DefaultPerPage {
		paging.MaxPerPage = paging.DefaultPerPage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductHandler{
		service: service,
		export:  export,
		paging:  paging,
		log:     logger,
	}
}

// RegisterRoutes registers the admin product routes.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	products := router.Group("/products")
	products.Get("/", h.HandleList)
	products.Post("/", h.HandleCreate)
	products.Get("/export", h.HandleExport)
	products.Get("/:id", h.HandleGet)
	products.Put("/:id", h.HandleUpdate)
	products.Delete("/:id", h.HandleDelete)
	products.Patch("/:id/status", h.HandleSetStatus)
	products.Post("/:id/duplicate", h.HandleDuplicate)
}

// RegisterPublicRoutes registers the read-only storefront mirror.
func (h *ProductHandler) RegisterPublicRoutes(router fiber.Router) {
	router.Get("/products", h.HandleList)
	router.Get("/products/:id", h.HandleGet)
}

// HandleList returns one page of products in the list envelope.
func (h *ProductHandler) HandleList(c *fiber.Ctx) error {
	filter, err := h.parseFilter(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	products, total, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	data := make([]ProductResource, 0, len(products))
	for i := range products {
		data = append(data, NewProductResource(&products[i]))
	}
	return c.JSON(envelope(data, newMeta(total, filter.Page, filter.PerPage)))
}

// HandleExport streams the filtered product list as an xlsx workbook.
func (h *ProductHandler) HandleExport(c *fiber.Ctx) error {
	filter, err := h.parseFilter(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var buf bytes.Buffer
	rows, err := h.export.Export(c.UserContext(), filter, &buf)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.log.InfoContext(c.UserContext(), "products exported", "rows", rows)

	name := fmt.Sprintf("products-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Send(buf.Bytes())
}

func (h *ProductHandler) HandleGet(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	product, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(NewProductResource(product))
}

func (h *ProductHandler) HandleCreate(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	product, err := h.service.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(NewProductResource(product))
}

// HandleUpdate applies a partial update; keys missing from the body are left alone.
func (h *ProductHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	product, err := h.service.Update(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(NewProductResource(product))
}

func (h *ProductHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ProductHandler) HandleSetStatus(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var in statusInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	if err := in.validate(); err != nil {
		return respondError(c, h.log, err)
	}
	product, err := h.service.SetActive(c.UserContext(), id, *in.IsActive)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(NewProductResource(product))
}

func (h *ProductHandler) HandleDuplicate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	product, err := h.service.Duplicate(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Product duplicated.",
		"data":    NewProductResource(product),
	})
}

// parseFilter reads list filters from the query string. The storefront
// aliases query and pageSize are accepted next to q and per_page.
func (h *ProductHandler) parseFilter(c *fiber.Ctx) (repositories.ProductFilter, error) {
	ve := services.NewValidationError()
	f := repositories.ProductFilter{
		Search: strings.TrimSpace(firstQuery(c, "q", "search", "query")),
		Sort:   c.Query("sort"),
		Dir:    strings.ToLower(c.Query("dir", "asc")),
	}
	if f.Sort == "" {
		f.Dir = "desc"
	}

	for _, p := range []struct {
		key    string
		target **uint
	}{
		{"unit_id", &f.UnitID},
		{"brand_id", &f.BrandID},
		{"store_id", &f.StoreID},
		{"category_id", &f.CategoryID},
	} {
		raw := c.Query(p.key)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			ve.Add(p.key, fmt.Sprintf("The %s field must be an integer.", strings.ReplaceAll(p.key, "_", " ")))
			continue
		}
		v := uint(id)
		*p.target = &v
	}

	if raw := c.Query("is_active"); raw != "" {
		active := truthy(raw)
		f.IsActive = &active
	}
	switch c.Query("status") {
	case "active":
		active := true
		f.IsActive = &active
	case "inactive":
		inactive := false
		f.IsActive = &inactive
	}

	f.Page = c.QueryInt("page", 1)
	if f.Page < 1 {
		f.Page = 1
	}
	f.PerPage = h.paging.DefaultPerPage
	if raw := firstQuery(c, "per_page", "pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			ve.Add("per_page", "The per page field must be at least 1.")
		} else {
			f.PerPage = min(n, h.paging.MaxPerPage)
		}
	}
	return f, ve.OrNil()
}

func firstQuery(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			return v
		}
	}
	return ""
}

// truthy follows the usual form conventions for boolean query values.
func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
