package handlers

import (
	"log/slog"

	"katalog/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UnitHandler handles HTTP requests for units of measure.
type UnitHandler struct {
	service *services.UnitService
	log     *slog.Logger
}

func NewUnitHandler(service *services.UnitService, logger *slog.Logger) *UnitHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnitHandler{service: service, log: logger}
}

// RegisterRoutes registers the unit routes.
func (h *UnitHandler) RegisterRoutes(router fiber.Router) {
	units := router.Group("/units")
	units.Get("/", h.HandleList)
	units.Post("/", h.HandleCreate)
	units.Get("/:id", h.HandleGet)
	units.Put("/:id", h.HandleUpdate)
	units.Delete("/:id", h.HandleDelete)
	units.Patch("/:id/status", h.HandleSetStatus)
	units.Patch("/:id/replace", h.HandleReplace)
}

// HandleList returns every unit with its product count. Units are not paged;
// the meta block describes the whole list as a single page.
func (h *UnitHandler) HandleList(c *fiber.Ctx) error {
	var active *bool
	if raw := c.Query("is_active"); raw != "" {
		v := truthy(raw)
		active = &v
	}
	units, err := h.service.List(c.UserContext(), active)
	if err != nil {
		return respondError(c, h.log, err)
	}
	data := make([]UnitResource, 0, len(units))
	for _, u := range units {
		data = append(data, newUnitListResource(u))
	}
	return c.JSON(envelope(data, newMeta(int64(len(data)), 1, max(len(data), 1))))
}

func (h *UnitHandler) HandleGet(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	unit, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(NewUnitResource(unit))
}

func (h *UnitHandler) HandleCreate(c *fiber.Ctx) error {
	var in services.UnitInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	unit, err := h.service.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(NewUnitResource(unit))
}

func (h *UnitHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var in services.UnitInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	unit, err := h.service.Update(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(NewUnitResource(unit))
}

func (h *UnitHandler) HandleSetStatus(c *fiber.Ctx) error {
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
	unit, err := h.service.SetActive(c.UserContext(), id, *in.IsActive)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(NewUnitResource(unit))
}

func (h *UnitHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Unit deleted."})
}

// HandleReplace moves the unit's products to new_unit_id and deletes the unit.
func (h *UnitHandler) HandleReplace(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var in services.ReplaceInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	moved, err := h.service.Replace(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message": "Products moved to the new unit and the old unit was deleted.",
		"moved":   moved,
	})
}
