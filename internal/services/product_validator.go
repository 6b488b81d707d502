package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"katalog/internal/models"
	"katalog/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

const (
	moneyPlaces    int32 = 2
	quantityPlaces int32 = 3

	maxMoney    = "9999999999.99"
	maxQuantity = "999999999.999"
)

// maxTaxRate is the largest tax_rate the decimal(5,2) column holds.
var maxTaxRate = decimal.RequireFromString("999.99")

// ImageInput is one entry of the images array of a product payload.
type ImageInput struct {
	Path string  `json:"path"`
	Alt  *string `json:"alt"`
	Sort *int    `json:"sort"`
}

// ProductInput is a create or update payload. Every field distinguishes
// between absent, null and a value.
type ProductInput struct {
	Name        models.Optional[string]          `json:"name"`
	Slug        models.Optional[string]          `json:"slug"`
	SKU         models.Optional[string]          `json:"sku"`
	Description models.Optional[string]          `json:"description"`
	UnitID      models.Optional[uint]            `json:"unit_id"`
	StoreID     models.Optional[uint]            `json:"store_id"`
	BrandID     models.Optional[uint]            `json:"brand_id"`
	Price       models.Optional[decimal.Decimal] `json:"price"`
	TaxRate     models.Optional[decimal.Decimal] `json:"tax_rate"`
	StockQty    models.Optional[decimal.Decimal] `json:"stock_qty"`
	MinQty      models.Optional[decimal.Decimal] `json:"min_qty"`
	MaxQty      models.Optional[decimal.Decimal] `json:"max_qty"`
	IsActive    models.Optional[bool]            `json:"is_active"`
	CategoryIDs models.Optional[[]uint]          `json:"category_ids"`
	Images      models.Optional[[]ImageInput]    `json:"images"`
}

// ValidatedProduct is the outcome of a successful validation: the product row
// as it should be stored plus the side effects the payload asked for.
type ValidatedProduct struct {
	Product models.Product
	// SlugSource is non-empty when the slug must be (re)generated from it.
	SlugSource     string
	SyncCategories bool
	CategoryIDs    []uint
	ReplaceImages  bool
	Images         []models.ProductImage
}

// ProductLookup answers uniqueness questions about products.
type ProductLookup interface {
	SlugChecker
	ExistsSKU(ctx context.Context, sku string, excludeID uint) (bool, error)
}

// UnitFinder loads a unit by id.
type UnitFinder interface {
	GetByID(ctx context.Context, id uint) (*models.Unit, error)
}

// ReferenceChecker verifies the optional foreign keys of a product.
type ReferenceChecker interface {
	BrandExists(ctx context.Context, id uint) (bool, error)
	StoreExists(ctx context.Context, id uint) (bool, error)
	MissingCategoryIDs(ctx context.Context, ids []uint) ([]uint, error)
}

// ProductValidator checks product payloads against field rules, the unit
// quantity policy and the unit/stock rule.
type ProductValidator struct {
	validate   *validator.Validate
	units      UnitFinder
	products   ProductLookup
	refs       ReferenceChecker
	taxRateMax decimal.Decimal
}

// NewProductValidator creates a ProductValidator. A zero taxRateMax leaves
// tax_rate bounded only by what the column can store.
func NewProductValidator(units UnitFinder, products ProductLookup, refs ReferenceChecker, taxRateMax decimal.Decimal) *ProductValidator {
	return &ProductValidator{
		validate:   newValidate(),
		units:      units,
		products:   products,
		refs:       refs,
		taxRateMax: taxRateMax,
	}
}

func (v *ProductValidator) taxLimit() decimal.Decimal {
	if v.taxRateMax.IsPositive() && v.taxRateMax.LessThan(maxTaxRate) {
		return v.taxRateMax
	}
	return maxTaxRate
}

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateCreate validates a create payload. Absent is_active defaults to true.
func (v *ProductValidator) ValidateCreate(ctx context.Context, in ProductInput) (*ValidatedProduct, error) {
	return v.run(ctx, &productCheck{v: v, ve: NewValidationError()}, models.Product{IsActive: true}, in)
}

// ValidateUpdate validates a partial update of existing. A different unit_id
// on a product that holds stock is rejected with a conflict before any other
// rule is looked at.
func (v *ProductValidator) ValidateUpdate(ctx context.Context, existing *models.Product, in ProductInput) (*ValidatedProduct, error) {
	if in.UnitID.Or(existing.UnitID) != existing.UnitID && existing.StockQty.IsPositive() {
		return nil, &ConflictError{
			Code:    CodeUnitChangeForbidden,
			Field:   "unit_id",
			Message: "The unit cannot be changed while the product has stock.",
		}
	}
	base := *existing
	base.Categories = nil
	base.Images = nil
	return v.run(ctx, &productCheck{v: v, ve: NewValidationError(), update: true}, base, in)
}

func (v *ProductValidator) run(ctx context.Context, c *productCheck, p models.Product, in ProductInput) (*ValidatedProduct, error) {
	out := &ValidatedProduct{}

	if name, ok := c.str("name", in.Name, true, 150); ok {
		p.Name = name
	}

	if err := c.slug(ctx, &p, in.Slug, out); err != nil {
		return nil, err
	}

	switch sku, state := c.optStr("sku", in.SKU, 80); state {
	case fieldValue:
		taken, err := v.products.ExistsSKU(ctx, sku, p.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			c.ve.Add("sku", "The sku has already been taken.")
		} else {
			p.SKU = &sku
		}
	case fieldCleared:
		p.SKU = nil
	}

	switch desc, state := c.optStr("description", in.Description, 0); state {
	case fieldValue:
		p.Description = &desc
	case fieldCleared:
		p.Description = nil
	}

	unit, err := c.unit(ctx, &p, in.UnitID)
	if err != nil {
		return nil, err
	}

	for _, ref := range []struct {
		field  string
		in     models.Optional[uint]
		target **uint
		exists func(context.Context, uint) (bool, error)
	}{
		{"store_id", in.StoreID, &p.StoreID, v.refs.StoreExists},
		{"brand_id", in.BrandID, &p.BrandID, v.refs.BrandExists},
	} {
		id, state := c.optID(ref.field, ref.in)
		switch state {
		case fieldValue:
			ok, err := ref.exists(ctx, id)
			if err != nil {
				return nil, err
			}
			if !ok {
				c.ve.Add(ref.field, fmt.Sprintf("The selected %s is invalid.", label(ref.field)))
				continue
			}
			*ref.target = &id
		case fieldCleared:
			*ref.target = nil
		}
	}

	if d, ok := c.num("price", in.Price, true, moneyPlaces, "min=0,max="+maxMoney); ok {
		p.Price = d
	}
	if d, ok := c.num("tax_rate", in.TaxRate, true, moneyPlaces, "min=0,max="+v.taxLimit().String()); ok {
		p.TaxRate = d
	}
	if d, ok := c.num("stock_qty", in.StockQty, true, quantityPlaces, "min=0,max="+maxQuantity); ok {
		p.StockQty = d
	}
	p.MinQty = c.nullNum("min_qty", in.MinQty, p.MinQty)
	p.MaxQty = c.nullNum("max_qty", in.MaxQty, p.MaxQty)

	if unit != nil {
		c.quantity("stock_qty", *unit, decimal.NewNullDecimal(p.StockQty))
		c.quantity("min_qty", *unit, p.MinQty)
		c.quantity("max_qty", *unit, p.MaxQty)
	}
	if p.MinQty.Valid && p.MaxQty.Valid && !c.ve.Has("min_qty") && !c.ve.Has("max_qty") &&
		p.MaxQty.Decimal.LessThan(p.MinQty.Decimal) {
		c.ve.Add("max_qty", "The max qty field must be greater than or equal to min qty.")
	}

	if in.IsActive.Invalid || (in.IsActive.Set && in.IsActive.Null) {
		c.ve.Add("is_active", "The is active field must be true or false.")
	}
	p.IsActive = in.IsActive.Or(p.IsActive)

	if err := c.categories(ctx, in.CategoryIDs, out); err != nil {
		return nil, err
	}
	c.images(in.Images, out)

	if err := c.ve.OrNil(); err != nil {
		return nil, err
	}
	if out.SlugSource == "" && (c.deriveSlug || p.Slug == "") {
		out.SlugSource = p.Name
	}
	out.Product = p
	return out, nil
}

type fieldState int

const (
	fieldAbsent fieldState = iota
	fieldCleared
	fieldValue
	fieldInvalid
)

// productCheck accumulates field errors for one payload.
type productCheck struct {
	v      *ProductValidator
	ve     *ValidationError
	update bool
	// set when the payload blanks the slug, which is then derived from the name
	deriveSlug bool
}

// required reports whether a missing value is an error: always on create,
// and on update only when the client sent the key.
func (c *productCheck) required(set bool) bool {
	return !c.update || set
}

func (c *productCheck) check(field string, value interface{}, tag string) bool {
	err := c.v.validate.Var(value, tag)
	if err == nil {
		return true
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		c.ve.Add(field, fmt.Sprintf("The %s field is invalid.", label(field)))
		return false
	}
	for _, fe := range errs {
		c.ve.Add(field, message(field, fe))
	}
	return false
}

// str reads a trimmed, NFC-composed string; an empty string counts as missing.
func (c *productCheck) str(field string, o models.Optional[string], required bool, max int) (string, bool) {
	s, state := c.optStr(field, o, max)
	switch state {
	case fieldValue:
		return s, true
	case fieldAbsent, fieldCleared:
		if required && c.required(o.Set) {
			c.ve.Add(field, fmt.Sprintf("The %s field is required.", label(field)))
		}
	}
	return "", false
}

func (c *productCheck) optStr(field string, o models.Optional[string], max int) (string, fieldState) {
	if o.Invalid {
		c.ve.Add(field, fmt.Sprintf("The %s field must be a string.", label(field)))
		return "", fieldInvalid
	}
	if !o.Set {
		return "", fieldAbsent
	}
	s := norm.NFC.String(strings.TrimSpace(o.Value))
	if o.Null || s == "" {
		return "", fieldCleared
	}
	if max > 0 && !c.check(field, s, fmt.Sprintf("max=%d", max)) {
		return "", fieldInvalid
	}
	return s, fieldValue
}

func (c *productCheck) optID(field string, o models.Optional[uint]) (uint, fieldState) {
	switch {
	case o.Invalid:
		c.ve.Add(field, fmt.Sprintf("The %s field must be an integer.", label(field)))
		return 0, fieldInvalid
	case !o.Set:
		return 0, fieldAbsent
	case o.Null:
		return 0, fieldCleared
	case o.Value == 0:
		c.ve.Add(field, fmt.Sprintf("The selected %s is invalid.", label(field)))
		return 0, fieldInvalid
	}
	return o.Value, fieldValue
}

// num checks a submitted decimal against tag and refuses more than places
// fractional digits. Values are never rounded.
func (c *productCheck) num(field string, o models.Optional[decimal.Decimal], required bool, places int32, tag string) (decimal.Decimal, bool) {
	switch {
	case o.Invalid:
		c.ve.Add(field, fmt.Sprintf("The %s field must be a number.", label(field)))
		return decimal.Zero, false
	case !o.Set || o.Null:
		if required && c.required(o.Set) {
			c.ve.Add(field, fmt.Sprintf("The %s field is required.", label(field)))
		}
		return decimal.Zero, false
	}
	d := o.Value
	if !c.check(field, d, tag) {
		return decimal.Zero, false
	}
	if !d.Equal(d.Round(places)) {
		c.ve.Add(field, fmt.Sprintf("The %s field must not have more than %d decimal places.", label(field), places))
		return decimal.Zero, false
	}
	return d, true
}

func (c *productCheck) nullNum(field string, o models.Optional[decimal.Decimal], current decimal.NullDecimal) decimal.NullDecimal {
	if !o.Set {
		return current
	}
	if o.Null {
		return decimal.NullDecimal{}
	}
	d, ok := c.num(field, o, false, quantityPlaces, "min=0,max="+maxQuantity)
	if !ok {
		return current
	}
	return decimal.NewNullDecimal(d)
}

// quantity applies the unit policy to an effective value, stored or submitted.
func (c *productCheck) quantity(field string, unit models.Unit, q decimal.NullDecimal) {
	if !q.Valid || c.ve.Has(field) {
		return
	}
	if !IsValidQuantity(unit, q.Decimal) {
		c.ve.Add(field, fmt.Sprintf("The %s field must be a whole number for unit %s.", label(field), unit.Name))
	}
}

func (c *productCheck) slug(ctx context.Context, p *models.Product, o models.Optional[string], out *ValidatedProduct) error {
	raw, state := c.optStr("slug", o, MaxSlugLength)
	switch state {
	case fieldValue:
		taken, err := c.v.products.ExistsSlug(ctx, raw, p.ID)
		if err != nil {
			return err
		}
		if taken {
			c.ve.Add("slug", "The slug has already been taken.")
			return nil
		}
		out.SlugSource = raw
	case fieldCleared:
		c.deriveSlug = true
	}
	return nil
}

// unit resolves the effective unit of the product. It returns nil when the
// unit is unknown because of an earlier field error.
func (c *productCheck) unit(ctx context.Context, p *models.Product, o models.Optional[uint]) (*models.Unit, error) {
	id, state := c.optID("unit_id", o)
	switch state {
	case fieldInvalid:
		return nil, nil
	case fieldAbsent, fieldCleared:
		if c.required(o.Set) {
			c.ve.Add("unit_id", "The unit id field is required.")
			return nil, nil
		}
		if p.Unit.ID == p.UnitID && p.UnitID != 0 {
			unit := p.Unit
			return &unit, nil
		}
		return c.findUnit(ctx, p.UnitID)
	}

	unit, err := c.findUnit(ctx, id)
	if err != nil || unit == nil {
		return nil, err
	}
	if id != p.UnitID && !unit.IsActive {
		c.ve.Add("unit_id", "The selected unit id is inactive.")
		return nil, nil
	}
	p.UnitID = unit.ID
	p.Unit = *unit
	return unit, nil
}

func (c *productCheck) findUnit(ctx context.Context, id uint) (*models.Unit, error) {
	unit, err := c.v.units.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		c.ve.Add("unit_id", "The selected unit id is invalid.")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return unit, nil
}

func (c *productCheck) categories(ctx context.Context, o models.Optional[[]uint], out *ValidatedProduct) error {
	switch {
	case o.Invalid:
		c.ve.Add("category_ids", "The category ids field must be an array of integers.")
		return nil
	case !o.Set:
		return nil
	case o.Null:
		out.SyncCategories = true
		out.CategoryIDs = []uint{}
		return nil
	}

	ids := make([]uint, 0, len(o.Value))
	position := make(map[uint]int, len(o.Value))
	for i, id := range o.Value {
		if _, dup := position[id]; dup {
			continue
		}
		position[id] = i
		ids = append(ids, id)
	}
	missing, err := c.v.refs.MissingCategoryIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range missing {
		field := fmt.Sprintf("category_ids.%d", position[id])
		c.ve.Add(field, fmt.Sprintf("The selected %s is invalid.", field))
	}
	out.SyncCategories = true
	out.CategoryIDs = ids
	return nil
}

func (c *productCheck) images(o models.Optional[[]ImageInput], out *ValidatedProduct) {
	switch {
	case o.Invalid:
		c.ve.Add("images", "The images field must be an array.")
		return
	case !o.Set:
		return
	}
	out.ReplaceImages = true
	out.Images = make([]models.ProductImage, 0, len(o.Value))
	for i, img := range o.Value {
		prefix := fmt.Sprintf("images.%d.", i)
		path := strings.TrimSpace(img.Path)
		if path == "" {
			c.ve.Add(prefix+"path", fmt.Sprintf("The %spath field is required.", prefix))
		} else {
			c.check(prefix+"path", path, "max=255")
		}
		var alt *string
		if img.Alt != nil {
			if a := strings.TrimSpace(*img.Alt); a != "" {
				c.check(prefix+"alt", a, "max=180")
				alt = &a
			}
		}
		sort := i
		if img.Sort != nil {
			sort = *img.Sort
			c.check(prefix+"sort", sort, "min=0")
		}
		out.Images = append(out.Images, models.ProductImage{Path: path, Alt: alt, Sort: sort})
	}
}

func label(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

// message renders a validator failure the way API clients expect it.
func message(field string, fe validator.FieldError) string {
	name := label(field)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", name, fe.Param())
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must be at least %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", name, fe.Param())
	case "nefield":
		return fmt.Sprintf("The %s field and %s must be different.", name, label(fe.Param()))
	}
	return fmt.Sprintf("The %s field is invalid.", name)
}
