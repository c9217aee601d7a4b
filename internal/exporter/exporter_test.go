package exporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/SimonWaldherr/slimSQL/internal/engine"
)

func sampleResult() *engine.ResultSet {
	return &engine.ResultSet{
		Cols: []string{"id", "name", "price"},
		Rows: [][]any{
			{int64(1), "Hammer", float64(12.99)},
			{int64(2), "Wrench", nil},
		},
	}
}

func TestCSVExport(t *testing.T) {
	var buf bytes.Buffer
	if err := CSV(&buf, sampleResult(), Options{}); err != nil {
		t.Fatalf("CSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %q", buf.String())
	}
	if lines[0] != "id,name,price" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != "1,Hammer,12.99" {
		t.Fatalf("unexpected row: %q", lines[1])
	}
	if lines[2] != "2,Wrench," {
		t.Fatalf("null should render empty: %q", lines[2])
	}
}

func TestCSVExportNoHeaderAndDelimiter(t *testing.T) {
	var buf bytes.Buffer
	if err := CSV(&buf, sampleResult(), Options{CSVNoHeader: true, CSVDelimiter: ';'}); err != nil {
		t.Fatalf("CSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "1;Hammer") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestJSONExport(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleResult(), Options{}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var objs []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &objs); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if len(objs) != 2 || objs[0]["name"] != "Hammer" {
		t.Fatalf("unexpected objects: %v", objs)
	}
	if v, present := objs[1]["price"]; !present || v != nil {
		t.Fatalf("null cell should survive as JSON null: %v", objs[1])
	}
}

func TestYAMLExport(t *testing.T) {
	var buf bytes.Buffer
	if err := YAML(&buf, sampleResult()); err != nil {
		t.Fatalf("YAML: %v", err)
	}
	var objs []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &objs); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if len(objs) != 2 || objs[0]["name"] != "Hammer" {
		t.Fatalf("unexpected objects: %v", objs)
	}
}
