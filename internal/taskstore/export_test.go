package taskstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, FormatCSV, []string{"first", "second, with comma"}); err != nil {
		t.Fatal(err)
	}
	want := "position,task\n1,first\n2,\"second, with comma\"\n"
	if buf.String() != want {
		t.Fatalf("unexpected CSV:\n%s", buf.String())
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, FormatJSON, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	var out struct {
		Count int      `json:"count"`
		Tasks []string `json:"tasks"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 2 || out.Tasks[0] != "a" || out.Tasks[1] != "b" {
		t.Fatalf("unexpected export: %+v", out)
	}
}

func TestExportTXT(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, FormatTXT, []string{"walk dog"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "  1. walk dog") {
		t.Fatalf("unexpected text export:\n%s", buf.String())
	}
}

func TestExportPDF(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, FormatPDF, []string{"pay rent"}); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:8])
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("CSV"); err != nil || f != FormatCSV {
		t.Fatalf("ParseFormat(CSV) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xlsx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
