package taskstore

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ExportFormat represents different export formats
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatTXT  ExportFormat = "txt"
	FormatPDF  ExportFormat = "pdf"
)

// ErrUnsupportedFormat is returned for an unknown export format
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat maps a format name to an ExportFormat
func ParseFormat(name string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(name)); f {
	case FormatCSV, FormatJSON, FormatTXT, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// ContentType returns the MIME type served for the format
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Export writes tasks to w in the given format
func Export(w io.Writer, format ExportFormat, tasks []string) error {
	switch format {
	case FormatCSV:
		return exportCSV(w, tasks)
	case FormatJSON:
		return exportJSON(w, tasks)
	case FormatTXT:
		return exportTXT(w, tasks)
	case FormatPDF:
		return exportPDF(w, tasks)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func exportCSV(w io.Writer, tasks []string) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write([]string{"position", "task"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, task := range tasks {
		if err := csvWriter.Write([]string{strconv.Itoa(i + 1), task}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func exportJSON(w io.Writer, tasks []string) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	exportData := map[string]any{
		"timestamp": time.Now().Format(time.RFC3339),
		"count":     len(tasks),
		"tasks":     tasks,
	}
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func exportTXT(w io.Writer, tasks []string) error {
	fmt.Fprintf(w, "Task List\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Total Tasks: %d\n\n", len(tasks))

	for i, task := range tasks {
		if _, err := fmt.Fprintf(w, "%3d. %s\n", i+1, task); err != nil {
			return fmt.Errorf("failed to write task: %w", err)
		}
	}
	return nil
}

func exportPDF(w io.Writer, tasks []string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Task List")
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 11)
	if len(tasks) == 0 {
		pdf.MultiCell(0, 7, "No tasks.", "0", "L", false)
	}
	for i, task := range tasks {
		pdf.MultiCell(0, 7, tr(fmt.Sprintf("%d. %s", i+1, task)), "0", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return nil
}
