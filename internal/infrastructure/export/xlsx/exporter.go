// Package xlsx renders query history as a spreadsheet.
package xlsx

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
)

const (
	queriesSheet   = "Queries"
	citationsSheet = "Citations"
	timeLayout     = "2006-01-02 15:04:05"
)

var (
	queryHeaders    = []string{"Query ID", "Asked At", "Status", "Question", "Answer", "Citations", "Error"}
	citationHeaders = []string{"Query ID", "Filename", "Page", "Text"}
)

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) ExportQueries(ctx context.Context, logs []domain.QueryLog, w io.Writer) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", queriesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(citationsSheet); err != nil {
		return fmt.Errorf("create citations sheet: %w", err)
	}

	if err := writeRow(f, queriesSheet, 1, toAny(queryHeaders)); err != nil {
		return err
	}
	if err := writeRow(f, citationsSheet, 1, toAny(citationHeaders)); err != nil {
		return err
	}

	citationRow := 2
	for i, entry := range logs {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []any{
			entry.ID,
			entry.CreatedAt.UTC().Format(timeLayout),
			string(entry.Status),
			entry.Question,
			entry.Answer,
			len(entry.Citations),
			entry.Error,
		}
		if err := writeRow(f, queriesSheet, i+2, row); err != nil {
			return err
		}
		for _, c := range entry.Citations {
			if err := writeRow(f, citationsSheet, citationRow, []any{entry.ID, c.Filename, c.PageNumber, c.Text}); err != nil {
				return err
			}
			citationRow++
		}
	}

	if err := f.SetColWidth(queriesSheet, "D", "E", 60); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(citationsSheet, "D", "D", 80); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
