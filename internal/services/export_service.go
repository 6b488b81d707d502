package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"katalog/internal/models"
	"katalog/internal/repositories"

	"github.com/xuri/excelize/v2"
)

const exportBatchSize = 500

var exportHeader = []interface{}{
	"id", "name", "slug", "sku", "unit", "price", "tax_rate",
	"stock_qty", "min_qty", "max_qty", "is_active", "brand", "store", "categories",
}

// ProductLister pages through products.
type ProductLister interface {
	List(ctx context.Context, filter repositories.ProductFilter) ([]models.Product, int64, error)
}

// ExportService writes product listings as xlsx workbooks.
type ExportService struct {
	products ProductLister
}

func NewExportService(products ProductLister) *ExportService {
	return &ExportService{products: products}
}

// Export writes every product matching filter to w as a single-sheet
// workbook and returns the number of product rows. Paging fields of filter
// are ignored.
func (s *ExportService) Export(ctx context.Context, filter repositories.ProductFilter, w io.Writer) (int, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return 0, fmt.Errorf("failed to write export header: %w", err)
	}

	row := 2
	filter.PerPage = exportBatchSize
	for filter.Page = 1; ; filter.Page++ {
		products, total, err := s.products.List(ctx, filter)
		if err != nil {
			return 0, err
		}
		for _, p := range products {
			values := exportRow(p)
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return 0, err
			}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return 0, fmt.Errorf("failed to write export row %d: %w", row, err)
			}
			row++
		}
		if len(products) < exportBatchSize || int64(row-2) >= total {
			break
		}
	}

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}
	return row - 2, nil
}

func exportRow(p models.Product) []interface{} {
	optional := func(v interface{}, ok bool) interface{} {
		if !ok {
			return ""
		}
		return v
	}
	sku := ""
	if p.SKU != nil {
		sku = *p.SKU
	}
	brand, store := "", ""
	if p.Brand != nil {
		brand = p.Brand.Name
	}
	if p.Store != nil {
		store = p.Store.Name
	}
	names := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		names = append(names, c.Name)
	}
	return []interface{}{
		p.ID,
		p.Name,
		p.Slug,
		sku,
		p.Unit.Text,
		p.Price.InexactFloat64(),
		p.TaxRate.InexactFloat64(),
		DisplayQuantity(p.Unit, p.StockQty),
		optional(DisplayQuantity(p.Unit, p.MinQty.Decimal), p.MinQty.Valid),
		optional(DisplayQuantity(p.Unit, p.MaxQty.Decimal), p.MaxQty.Valid),
		p.IsActive,
		brand,
		store,
		strings.Join(names, ", "),
	}
}
