package admin

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rogerio-castellano/storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Import modes for rows whose product name already exists.
const (
	ImportSkip   = "skip"
	ImportUpdate = "update"
)

var ErrInvalidCSV = errors.New("invalid CSV")

// headerAliases maps accepted column names to the canonical column.
var headerAliases = map[string]string{
	"nombre":       "nombre",
	"name":         "nombre",
	"precio":       "precio",
	"price":        "precio",
	"stock":        "stock",
	"quantity":     "stock",
	"stock_minimo": "stock_minimo",
	"threshold":    "stock_minimo",
	"categoria":    "categoria",
	"category":     "categoria",
	"talla":        "talla",
	"size":         "talla",
	"color":        "color",
	"descripcion":  "descripcion",
	"description":  "descripcion",
}

type ImportResult struct {
	Imported int          `json:"imported"`
	Updated  int          `json:"updated"`
	Errors   []FieldError `json:"errors"`
}

type csvRow struct {
	line    int
	product models.Product
	err     error
}

func parseCSV(r io.Reader) ([]csvRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidCSV)
	}

	index := map[string]int{}
	for i, h := range headers {
		if canon, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			index[canon] = i
		}
	}
	for _, required := range []string{"nombre", "precio"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: column %q is required", ErrInvalidCSV, required)
		}
	}

	var rows []csvRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		row := csvRow{line: line}
		row.product = models.Product{
			Name:        field("nombre"),
			Description: field("descripcion"),
			Category:    field("categoria"),
			Size:        field("talla"),
			Color:       field("color"),
		}
		row.product.Price, row.err = decimal.NewFromString(field("precio"))
		if row.err == nil {
			row.product.Stock, row.err = parseOptionalInt(field("stock"))
		}
		if row.err == nil {
			row.product.Threshold, row.err = parseOptionalInt(field("stock_minimo"))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseOptionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// ImportProducts creates one product per CSV row. Rows naming an existing
// product are skipped or, in ImportUpdate mode, overwrite it. Row problems
// are collected and do not stop the import.
func (s *Service) ImportProducts(ctx context.Context, r io.Reader, mode string) (ImportResult, error) {
	if mode != ImportUpdate {
		mode = ImportSkip
	}

	rows, err := parseCSV(r)
	if err != nil {
		return ImportResult{}, err
	}

	existing, err := s.backend.ListProducts(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	byName := make(map[string]models.Product, len(existing))
	for _, p := range existing {
		byName[strings.ToLower(p.Name)] = p
	}

	res := ImportResult{Errors: []FieldError{}}
	rowErr := func(line int, format string, args ...any) {
		res.Errors = append(res.Errors, FieldError{
			Field:       fmt.Sprintf("row %d", line),
			Description: fmt.Sprintf(format, args...),
		})
	}

	for _, row := range rows {
		if row.err != nil {
			rowErr(row.line, "unreadable number: %v", row.err)
			continue
		}
		if fields := validateProduct(row.product); len(fields) > 0 {
			rowErr(row.line, "%s", (&ValidationError{Fields: fields}).Error())
			continue
		}

		key := strings.ToLower(row.product.Name)
		if prev, ok := byName[key]; ok {
			if mode == ImportSkip {
				rowErr(row.line, "product '%s' already exists", row.product.Name)
				continue
			}
			row.product.ID = prev.ID
			updated, err := s.backend.UpdateProduct(ctx, row.product)
			if err != nil {
				rowErr(row.line, "failed to update '%s': %v", row.product.Name, err)
				continue
			}
			byName[key] = updated
			res.Updated++
			continue
		}

		created, err := s.backend.CreateProduct(ctx, row.product)
		if err != nil {
			rowErr(row.line, "failed to create '%s': %v", row.product.Name, err)
			continue
		}
		byName[key] = created
		res.Imported++
	}

	logrus.WithFields(logrus.Fields{
		"mode":     mode,
		"imported": res.Imported,
		"updated":  res.Updated,
		"errors":   len(res.Errors),
	}).Info("Product import finished")
	return res, nil
}
