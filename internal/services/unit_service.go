package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"katalog/internal/events"
	"katalog/internal/metrics"
	"katalog/internal/models"
	"katalog/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var maxStep = decimal.RequireFromString("9999999.999")

// UnitInput is the create and update payload of a unit.
type UnitInput struct {
	Name     string           `json:"name" validate:"required,max=50"`
	Text     string           `json:"text" validate:"required,max=20"`
	Step     *decimal.Decimal `json:"step"`
	IsActive *bool            `json:"is_active"`
}

// ReplaceInput names the unit that takes over the products of a deleted unit.
type ReplaceInput struct {
	NewUnitID *uint `json:"new_unit_id"`
}

// UnitService handles business logic related to units.
type UnitService struct {
	repo     repositories.UnitRepository
	validate *validator.Validate
	events   EventPublisher
	log      *slog.Logger
}

// NewUnitService creates a new UnitService. publisher may be nil.
func NewUnitService(repo repositories.UnitRepository, publisher EventPublisher, logger *slog.Logger) *UnitService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnitService{
		repo:     repo,
		validate: newValidate(),
		events:   publisher,
		log:      logger,
	}
}

// List returns units ordered by name with their product counts.
func (s *UnitService) List(ctx context.Context, active *bool) ([]repositories.UnitWithCount, error) {
	return s.repo.List(ctx, active)
}

func (s *UnitService) Get(ctx context.Context, id uint) (*models.Unit, error) {
	unit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("unit %d: %w", id, err)
	}
	return unit, nil
}

// Create stores a new unit. Units are active unless the payload says otherwise.
func (s *UnitService) Create(ctx context.Context, in UnitInput) (unit *models.Unit, err error) {
	defer func() { observe("unit.create", err) }()

	if err := s.check(&in); err != nil {
		return nil, err
	}
	unit = &models.Unit{Name: in.Name, Text: in.Text, Step: in.Step.Round(quantityPlaces), IsActive: true}
	if in.IsActive != nil {
		unit.IsActive = *in.IsActive
	}
	if err := s.repo.Create(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// Update replaces the unit's fields. The step is locked while any product of
// the unit holds stock.
func (s *UnitService) Update(ctx context.Context, id uint, in UnitInput) (unit *models.Unit, err error) {
	defer func() { observe("unit.update", err) }()

	unit, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(&in); err != nil {
		return nil, err
	}

	step := in.Step.Round(quantityPlaces)
	if !step.Equal(unit.Step) {
		stocked, err := s.repo.HasStockedProducts(ctx, id)
		if err != nil {
			return nil, err
		}
		if stocked {
			return nil, &ConflictError{
				Code:    CodeUnitStepLocked,
				Field:   "step",
				Message: "The step cannot change while products of this unit hold stock.",
			}
		}
	}

	unit.Name = in.Name
	unit.Text = in.Text
	unit.Step = step
	if in.IsActive != nil {
		unit.IsActive = *in.IsActive
	}
	if err := s.repo.Update(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

func (s *UnitService) SetActive(ctx context.Context, id uint, active bool) (unit *models.Unit, err error) {
	defer func() { observe("unit.status", err) }()

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, fmt.Errorf("unit %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Delete removes an unreferenced unit. A unit that products still point at
// yields a UNIT_IN_USE conflict.
func (s *UnitService) Delete(ctx context.Context, id uint) (err error) {
	defer func() { observe("unit.delete", err) }()

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	err = s.repo.Transaction(ctx, func(repo repositories.UnitRepository) error {
		count, err := repo.CountProducts(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return inUse(count)
		}
		return repo.Delete(ctx, id)
	})
	if errors.Is(err, repositories.ErrForeignKey) {
		return inUse(0)
	}
	if err != nil {
		return err
	}
	s.publish(ctx, events.New(events.UnitDeleted, id))
	return nil
}

func inUse(count int64) *ConflictError {
	msg := "The unit is used by products. Move them to another unit before deleting it."
	if count > 0 {
		msg = fmt.Sprintf("The unit is used by %d product(s). Move them to another unit before deleting it.", count)
	}
	return &ConflictError{Code: CodeUnitInUse, Message: msg}
}

// Replace moves every product of unit id to in.NewUnitID and deletes unit id
// in one transaction. Moving fractional quantities onto an integer unit is
// refused.
func (s *UnitService) Replace(ctx context.Context, id uint, in ReplaceInput) (moved int64, err error) {
	defer func() { observe("unit.replace", err) }()

	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}

	ve := NewValidationError()
	var target *models.Unit
	switch {
	case in.NewUnitID == nil || *in.NewUnitID == 0:
		ve.Add("new_unit_id", "The new unit id field is required.")
	case *in.NewUnitID == id:
		ve.Add("new_unit_id", "The new unit id field and unit must be different.")
	default:
		target, err = s.repo.GetByID(ctx, *in.NewUnitID)
		if errors.Is(err, repositories.ErrNotFound) {
			ve.Add("new_unit_id", "The selected new unit id is invalid.")
		} else if err != nil {
			return 0, err
		}
	}
	if err := ve.OrNil(); err != nil {
		return 0, err
	}

	err = s.repo.Transaction(ctx, func(repo repositories.UnitRepository) error {
		products, err := repo.ProductsByUnit(ctx, id)
		if err != nil {
			return err
		}
		if bad := incompatible(*target, products); bad > 0 {
			return &ConflictError{
				Code:  CodeUnitReplaceIncompatible,
				Field: "new_unit_id",
				Message: fmt.Sprintf("%d product(s) hold quantities that are not valid for unit %s.",
					bad, target.Name),
			}
		}
		if moved, err = repo.ReassignProducts(ctx, id, target.ID); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return 0, err
	}

	e := events.New(events.UnitReplaced, id)
	e.SourceID = target.ID
	s.publish(ctx, e)
	s.log.InfoContext(ctx, "unit replaced", "unit_id", id, "new_unit_id", target.ID, "moved", moved)
	return moved, nil
}

// incompatible counts products whose quantities break the policy of unit.
func incompatible(unit models.Unit, products []models.Product) int {
	bad := 0
	for _, p := range products {
		ok := IsValidQuantity(unit, p.StockQty)
		if p.MinQty.Valid {
			ok = ok && IsValidQuantity(unit, p.MinQty.Decimal)
		}
		if p.MaxQty.Valid {
			ok = ok && IsValidQuantity(unit, p.MaxQty.Decimal)
		}
		if !ok {
			bad++
		}
	}
	return bad
}

func (s *UnitService) check(in *UnitInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Text = strings.TrimSpace(in.Text)

	ve := NewValidationError()
	if err := s.validate.Struct(in); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return err
		}
		for _, fe := range errs {
			ve.Add(fe.Field(), message(fe.Field(), fe))
		}
	}
	switch {
	case in.Step == nil:
		ve.Add("step", "The step field is required.")
	case in.Step.IsNegative():
		ve.Add("step", "The step field must be at least 0.")
	case !in.Step.Equal(in.Step.Round(quantityPlaces)):
		ve.Add("step", "The step field must not have more than 3 decimal places.")
	case in.Step.GreaterThan(maxStep):
		ve.Add("step", "The step field must not be greater than "+maxStep.String()+".")
	}
	return ve.OrNil()
}

func (s *UnitService) publish(ctx context.Context, e events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		metrics.EventPublishFailures.Inc()
		s.log.ErrorContext(ctx, "failed to publish catalog event", "type", e.Type, "unit_id", e.SubjectID, "error", err)
	}
}
