package handlers

import (
	"log/slog"

	"katalog/internal/services"

	"github.com/gofiber/fiber/v2"
)

// LookupHandler serves the active reference lists and store settings.
type LookupHandler struct {
	service *services.LookupService
	log     *slog.Logger
}

func NewLookupHandler(service *services.LookupService, logger *slog.Logger) *LookupHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LookupHandler{service: service, log: logger}
}

func (h *LookupHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/brands", h.HandleBrands)
	router.Get("/brand.json", h.HandleBrands)
	router.Get("/stores", h.HandleStores)
	router.Get("/categories", h.HandleCategories)
	router.Get("/store.json", h.HandleStoreSettings)
}

func (h *LookupHandler) HandleBrands(c *fiber.Ctx) error {
	brands, err := h.service.Brands(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := make([]namedRef, 0, len(brands))
	for _, b := range brands {
		out = append(out, namedRef{ID: b.ID, Name: b.Name})
	}
	return c.JSON(out)
}

func (h *LookupHandler) HandleStores(c *fiber.Ctx) error {
	stores, err := h.service.Stores(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := make([]namedRef, 0, len(stores))
	for _, s := range stores {
		out = append(out, namedRef{ID: s.ID, Name: s.Name})
	}
	return c.JSON(out)
}

func (h *LookupHandler) HandleCategories(c *fiber.Ctx) error {
	categories, err := h.service.Categories(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(categories)
}

func (h *LookupHandler) HandleStoreSettings(c *fiber.Ctx) error {
	return c.JSON(h.service.Settings())
}
