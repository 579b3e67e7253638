package catalog

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/example/bakery/pkg/models"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const sheetName = "Sheet1"

// Columns of the cake spreadsheet. A cake with several weights spans
// several rows sharing the same name.
var sheetHeader = []string{
	"Name", "Description", "Type", "CakeType", "Category",
	"Weight", "Cost Price", "Sell Price", "Available", "Featured",
}

// RowError reports a spreadsheet row that could not be imported.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult holds the cakes parsed from a sheet and the rows skipped.
type ImportResult struct {
	Cakes   []models.Cake `json:"-"`
	Skipped []RowError    `json:"skipped"`
}

// ParseSheet reads cakes from an xlsx workbook. categories maps a lower-case
// category slug or name to its id.
func ParseSheet(r io.Reader, categories map[string]primitive.ObjectID) (*ImportResult, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workbook: %w", err)
	}
	defer xl.Close()

	rows, err := xl.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheetName, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: sheet must have a header and at least one row", ErrInvalidQuery)
	}

	res := &ImportResult{}
	index := map[string]int{}
	rowOf := map[string]int{}

	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlank(row) {
			continue
		}
		cell := func(col int) string {
			if col < len(row) {
				return strings.TrimSpace(row[col])
			}
			return ""
		}

		name := cell(0)
		if name == "" {
			res.Skipped = append(res.Skipped, RowError{Row: rowNum, Error: "name is required"})
			continue
		}
		cost, err := parseNumber(cell(6))
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Row: rowNum, Error: "invalid cost price"})
			continue
		}
		sell, err := parseNumber(cell(7))
		if err != nil || sell <= 0 {
			res.Skipped = append(res.Skipped, RowError{Row: rowNum, Error: "invalid sell price"})
			continue
		}
		option := models.PriceOption{Weight: cell(5), CostPrice: cost, SellPrice: sell}

		key := strings.ToLower(name)
		if at, ok := index[key]; ok {
			res.Cakes[at].Prices = append(res.Cakes[at].Prices, option)
			continue
		}

		categoryID, ok := categories[strings.ToLower(cell(4))]
		if !ok {
			res.Skipped = append(res.Skipped, RowError{Row: rowNum, Error: fmt.Sprintf("unknown category %q", cell(4))})
			continue
		}

		index[key] = len(res.Cakes)
		rowOf[key] = rowNum
		res.Cakes = append(res.Cakes, models.Cake{
			Name:        name,
			Slug:        models.Slugify(name),
			Description: cell(1),
			Type:        strings.ToLower(cell(2)),
			CakeType:    strings.ToLower(cell(3)),
			Category:    categoryID,
			Prices:      []models.PriceOption{option},
			Available:   parseBool(cell(8), true),
			Featured:    parseBool(cell(9), false),
		})
	}

	valid := res.Cakes[:0]
	for _, c := range res.Cakes {
		if err := c.Validate(); err != nil {
			res.Skipped = append(res.Skipped, RowError{Row: rowOf[strings.ToLower(c.Name)], Error: err.Error()})
			continue
		}
		valid = append(valid, c)
	}
	res.Cakes = valid
	return res, nil
}

// WriteSheet exports cakes in the import format, one row per price option.
// categoryNames maps category ids to the slug written in the sheet.
func WriteSheet(w io.Writer, cakes []models.Cake, categoryNames map[primitive.ObjectID]string) error {
	xl := excelize.NewFile()
	defer xl.Close()

	for i, h := range sheetHeader {
		cellName, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := xl.SetCellValue(sheetName, cellName, h); err != nil {
			return err
		}
	}

	row := 2
	for _, c := range cakes {
		for _, p := range c.Prices {
			values := []any{
				c.Name, c.Description, c.Type, c.CakeType, categoryNames[c.Category],
				p.Weight, p.CostPrice, p.SellPrice, c.Available, c.Featured,
			}
			cellName, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := xl.SetSheetRow(sheetName, cellName, &values); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}
	}

	if err := xl.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func parseBool(s string, fallback bool) bool {
	switch strings.ToLower(s) {
	case "yes", "y", "true", "1":
		return true
	case "no", "n", "false", "0":
		return false
	}
	return fallback
}
