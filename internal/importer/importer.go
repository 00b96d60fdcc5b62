// Package importer loads categories and terms from spreadsheets.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"medterms/internal/domain"
	"medterms/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Column order: he, en, ru, category_slug[, name_en, name_he, name_ru].
// category_slug may list several slugs separated by "|".
const (
	colHe = iota
	colEn
	colRu
	colCategory
	colNameEn
	colNameHe
	colNameRu

	minColumns  = colCategory + 1
	slugSep     = "|"
	headerFirst = "he"
)

var errBlankRow = errors.New("blank row")

// Row is one parsed spreadsheet line. Err is set when the line is malformed.
type Row struct {
	Line  int
	Term  domain.Translations
	Slugs []string
	Names map[domain.Lang]string
	Err   error
}

// Result summarizes an import run
type Result struct {
	TotalProcessed int
	Categories     int
	Terms          int
	Skipped        int
	Errors         []string
}

// Importer writes parsed rows through a CatalogWriter
type Importer struct {
	writer repository.CatalogWriter
	logger *zap.Logger
}

// New creates a new importer
func New(writer repository.CatalogWriter, logger *zap.Logger) *Importer {
	return &Importer{writer: writer, logger: logger}
}

// ImportFile reads a .csv or .xlsx file and imports it. sheet is ignored for CSV;
// an empty sheet selects the first one.
func (im *Importer) ImportFile(ctx context.Context, path, sheet string) (*Result, error) {
	var (
		rows []Row
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		var file *os.File
		file, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer file.Close()
		rows, err = ReadCSV(file)
	} else {
		rows, err = ReadXLSX(path, sheet)
	}
	if err != nil {
		return nil, err
	}
	return im.Import(ctx, rows)
}

// ReadCSV parses rows from a CSV stream
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return parseRecords(records)
}

// ReadXLSX parses rows from an Excel workbook
func ReadXLSX(path, sheet string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from %q: %w", sheet, err)
	}
	return parseRecords(records)
}

func parseRecords(records [][]string) ([]Row, error) {
	rows := make([]Row, 0, len(records))
	for i, record := range records {
		if i == 0 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), headerFirst) {
			continue
		}
		row, err := parseRow(record)
		if errors.Is(err, errBlankRow) {
			continue
		}
		row.Line = i + 1
		row.Err = err
		rows = append(rows, row)
	}
	return rows, nil
}

func cell(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseRow(record []string) (Row, error) {
	blank := true
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			blank = false
			break
		}
	}
	if blank {
		return Row{}, errBlankRow
	}
	if len(record) < minColumns {
		return Row{}, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(record))
	}

	row := Row{
		Term: domain.Translations{
			Primary:   cell(record, colHe),
			Secondary: cell(record, colEn),
			Tertiary:  cell(record, colRu),
		},
		Names: make(map[domain.Lang]string),
	}
	if row.Term.Primary == "" || row.Term.Secondary == "" {
		return Row{}, fmt.Errorf("hebrew and english are required")
	}

	for _, slug := range strings.Split(cell(record, colCategory), slugSep) {
		if slug = strings.ToLower(strings.TrimSpace(slug)); slug != "" {
			row.Slugs = append(row.Slugs, slug)
		}
	}
	if len(row.Slugs) == 0 {
		return Row{}, fmt.Errorf("category slug is required")
	}

	for idx, lang := range map[int]domain.Lang{colNameEn: domain.LangEnglish, colNameHe: domain.LangHebrew, colNameRu: domain.LangRussian} {
		if name := cell(record, idx); name != "" {
			row.Names[lang] = name
		}
	}
	return row, nil
}

// Import upserts every row. Row failures are collected in Result.Errors;
// only context cancellation aborts the run.
func (im *Importer) Import(ctx context.Context, rows []Row) (*Result, error) {
	result := &Result{Errors: make([]string, 0)}
	categoryIDs := make(map[string]int64)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.TotalProcessed++
		if row.Err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", row.Line, row.Err))
			continue
		}

		ids, err := im.resolveCategories(ctx, row, categoryIDs, result)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", row.Line, err))
			continue
		}

		term := domain.Term{
			Translations: row.Term,
			CategoryIDs:  domain.NormalizeCategoryIDs(0, ids...),
		}
		if _, err := im.writer.UpsertTerm(ctx, term); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", row.Line, err))
			continue
		}
		result.Terms++
	}

	im.logger.Info("Import finished",
		zap.Int("processed", result.TotalProcessed),
		zap.Int("categories", result.Categories),
		zap.Int("terms", result.Terms),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (im *Importer) resolveCategories(ctx context.Context, row Row, known map[string]int64, result *Result) ([]int64, error) {
	ids := make([]int64, 0, len(row.Slugs))
	for _, slug := range row.Slugs {
		if id, ok := known[slug]; ok {
			ids = append(ids, id)
			continue
		}

		category := domain.Category{Slug: slug, Names: map[domain.Lang]string{domain.LangEnglish: slug}}
		if len(row.Slugs) == 1 {
			for lang, name := range row.Names {
				category.Names[lang] = name
			}
		}

		id, err := im.writer.UpsertCategory(ctx, category)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", slug, err)
		}
		known[slug] = id
		result.Categories++
		ids = append(ids, id)
	}
	return ids, nil
}
