package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/seenimoa/lmmarrears/pkg/models"
	"github.com/seenimoa/lmmarrears/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

func sampleComparison() *models.Comparison {
	return &models.Comparison{
		RunID:    "3f1c",
		Dynamics: models.DynamicsLognormal,
		Notional: 1000000,
		Seed:     3141,
		Rows: []models.ComparisonRow{
			{
				PeriodIndex: 0, PeriodStart: 0, PeriodEnd: 0.5,
				Terminal: &models.Estimate{Value: 24390.2439, StandardError: 0, Paths: 100},
				Spot:     &models.Estimate{Value: 24390.2439, StandardError: 0, Paths: 100},
				Analytic: 24390.2439,
			},
			{
				PeriodIndex: 1, PeriodStart: 0.5, PeriodEnd: 1,
				Terminal: &models.Estimate{Value: 23850.5, StandardError: 12.25, Paths: 100},
				Spot:     &models.Estimate{Value: 23801.75, StandardError: 11.5, Paths: 100},
				Analytic: 23825.125,
			},
		},
		Diagnostics: []models.Diagnostics{
			{Measure: models.MeasureTerminal, Paths: 100, AcceptedPaths: 100, Batches: 1, Duration: 40 * time.Millisecond},
			{Measure: models.MeasureSpot, Paths: 100, AcceptedPaths: 99, UnstablePaths: 1, Batches: 1, Partial: true, Duration: 2 * time.Second},
		},
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func render(t *testing.T, c *models.Comparison, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Render(&buf, c, opts); err != nil {
		t.Fatalf("Render(%s): %v", opts.Format, err)
	}
	return buf.String()
}

// ════════════════════════════════════════════════════════════════════
// Tests
// ════════════════════════════════════════════════════════════════════

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"text", FormatText, false},
		{" JSON ", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"html", FormatHTML, false},
		{"", FormatText, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, models.ErrConfiguration) {
				t.Errorf("ParseFormat(%q): got err %v, want ErrConfiguration", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestRenderText(t *testing.T) {
	opts := DefaultOptions()
	opts.Number = utils.NumberFormat{Decimals: 2, Grouping: utils.GroupingInternational}
	out := render(t, sampleComparison(), opts)

	for _, want := range []string{
		"═",
		"LIBOR-in-arrears",
		"Notional: 1,000,000.00",
		"Seed: 3141",
		"terminal",
		"spot",
		"23,850.50",
		"23,825.13",
		"12.25",
		"0.107%", // |23850.5-23825.125|/23825.125
		"■ DIAGNOSTICS",
		"unstable 1",
		"partial",
		"40ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTextColumnsAligned(t *testing.T) {
	out := render(t, sampleComparison(), DefaultOptions())

	var widths []int
	for _, l := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "0 ") || strings.HasPrefix(trimmed, "1 ") {
			widths = append(widths, len([]rune(l)))
		}
	}
	if len(widths) != 3 {
		t.Fatalf("got %d table lines, want 3:\n%s", len(widths), out)
	}
	for _, w := range widths[1:] {
		if w != widths[0] {
			t.Errorf("table line widths %v differ", widths)
		}
	}
}

func TestRenderTextSingleMeasure(t *testing.T) {
	c := sampleComparison()
	for i := range c.Rows {
		c.Rows[i].Spot = nil
	}
	out := render(t, c, DefaultOptions())
	header := ""
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(strings.TrimSpace(l), "#") {
			header = l
		}
	}
	if !strings.Contains(header, "terminal") || strings.Contains(header, "spot") {
		t.Errorf("header %q: want terminal column only", header)
	}
}

func TestRenderJSON(t *testing.T) {
	out := render(t, sampleComparison(), Options{Format: FormatJSON})

	var got models.Comparison
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Rows) != 2 || got.Rows[1].Spot == nil {
		t.Fatalf("rows: got %+v", got.Rows)
	}
	if got.Rows[1].Spot.Value != 23801.75 {
		t.Errorf("spot value: got %v, want 23801.75", got.Rows[1].Spot.Value)
	}
	if got.RunID != "3f1c" {
		t.Errorf("run id: got %q, want 3f1c", got.RunID)
	}
}

func TestRenderCSV(t *testing.T) {
	out := render(t, sampleComparison(), Options{Format: FormatCSV})

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	wantHeader := "period,fixing,payment,terminal,terminal_se,terminal_rel_diff,spot,spot_se,spot_rel_diff,analytic"
	if got := strings.Join(records[0], ","); got != wantHeader {
		t.Errorf("header: got %s, want %s", got, wantHeader)
	}
	if records[2][3] != "23850.5" {
		t.Errorf("terminal value: got %s, want 23850.5", records[2][3])
	}
	if records[2][9] != "23825.125" {
		t.Errorf("analytic: got %s, want 23825.125", records[2][9])
	}
}

func TestRenderHTML(t *testing.T) {
	c := sampleComparison()
	c.RunID = "<script>"
	out := render(t, c, Options{Format: FormatHTML, Number: utils.NumberFormat{Decimals: 2}})

	for _, want := range []string{"<!DOCTYPE html>", "<table>", "23850.50", "class=\"partial\"", "&lt;script&gt;"} {
		if !strings.Contains(out, want) {
			t.Errorf("html report missing %q", want)
		}
	}
	if strings.Contains(out, "<script>") {
		t.Error("run id was not escaped")
	}
}

func TestRenderErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, nil, DefaultOptions()); err == nil {
		t.Error("nil comparison: expected error")
	}
	if err := Render(&buf, sampleComparison(), Options{Format: "pdf"}); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("unknown format: got %v, want ErrConfiguration", err)
	}
}
