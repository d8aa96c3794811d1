// Package report renders a simulated-versus-analytic comparison of the
// in-arrears periods as text, JSON, CSV or HTML.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/seenimoa/lmmarrears/pkg/models"
	"github.com/seenimoa/lmmarrears/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Report Generator
// ════════════════════════════════════════════════════════════════════

// Format specifies the output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// ParseFormat accepts the names above, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatCSV, FormatHTML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown report format %q", models.ErrConfiguration, s)
	}
}

// Options controls report rendering.
type Options struct {
	Format Format
	Number utils.NumberFormat // value formatting for text and HTML
	Title  string             // optional
}

// DefaultOptions returns a text report with six decimals.
func DefaultOptions() Options {
	return Options{
		Format: FormatText,
		Number: utils.DefaultNumberFormat(),
		Title:  "LIBOR-in-arrears: LMM Monte Carlo vs convexity-adjusted analytic",
	}
}

// Render writes c to w in opts.Format.
func Render(w io.Writer, c *models.Comparison, opts Options) error {
	if c == nil {
		return fmt.Errorf("comparison is nil")
	}
	if opts.Title == "" {
		opts.Title = DefaultOptions().Title
	}

	switch opts.Format {
	case FormatText, "":
		_, err := io.WriteString(w, renderText(buildData(c, opts)))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	case FormatCSV:
		return renderCSV(w, c)
	case FormatHTML:
		return renderHTML(w, buildData(c, opts))
	default:
		return fmt.Errorf("%w: unknown report format %q", models.ErrConfiguration, opts.Format)
	}
}

// ════════════════════════════════════════════════════════════════════
// Report Data (flattened for text and HTML rendering)
// ════════════════════════════════════════════════════════════════════

type reportData struct {
	Title     string
	RunID     string
	Generated string
	Dynamics  string
	Notional  string
	Seed      int64
	Measures  []string
	Rows      []rowData
	Diag      []diagData
}

type rowData struct {
	Period   string
	Fixing   string
	Payment  string
	Analytic string
	Cells    []cellData // one per measure, in Measures order
}

type cellData struct {
	Value  string
	SE     string
	RelDif string
}

type diagData struct {
	Measure  string
	Paths    int
	Accepted int
	Unstable int
	Batches  int
	Partial  bool
	Duration string
}

// measuresOf lists the measures present in c, terminal first.
func measuresOf(c *models.Comparison) []models.Measure {
	var hasTerminal, hasSpot bool
	for _, r := range c.Rows {
		hasTerminal = hasTerminal || r.Terminal != nil
		hasSpot = hasSpot || r.Spot != nil
	}
	var out []models.Measure
	if hasTerminal {
		out = append(out, models.MeasureTerminal)
	}
	if hasSpot {
		out = append(out, models.MeasureSpot)
	}
	return out
}

func estimateFor(r models.ComparisonRow, m models.Measure) *models.Estimate {
	if m == models.MeasureSpot {
		return r.Spot
	}
	return r.Terminal
}

func buildData(c *models.Comparison, opts Options) reportData {
	nf := opts.Number
	measures := measuresOf(c)

	d := reportData{
		Title:    opts.Title,
		RunID:    c.RunID,
		Dynamics: string(c.Dynamics),
		Notional: utils.NumberFormat{Decimals: 2, Grouping: nf.Grouping}.Format(c.Notional),
		Seed:     c.Seed,
	}
	if !c.CreatedAt.IsZero() {
		d.Generated = c.CreatedAt.UTC().Format("02 Jan 2006 15:04:05 UTC")
	}
	for _, m := range measures {
		d.Measures = append(d.Measures, string(m))
	}

	for _, r := range c.Rows {
		row := rowData{
			Period:   strconv.Itoa(r.PeriodIndex),
			Fixing:   strconv.FormatFloat(r.PeriodStart, 'f', -1, 64),
			Payment:  strconv.FormatFloat(r.PeriodEnd, 'f', -1, 64),
			Analytic: nf.Format(r.Analytic),
		}
		for _, m := range measures {
			e := estimateFor(r, m)
			if e == nil {
				row.Cells = append(row.Cells, cellData{Value: "n/a", SE: "n/a", RelDif: "n/a"})
				continue
			}
			row.Cells = append(row.Cells, cellData{
				Value:  nf.Format(e.Value),
				SE:     nf.Format(e.StandardError),
				RelDif: utils.NumberFormat{Decimals: 3}.FormatPct(r.RelativeDifference(e)),
			})
		}
		d.Rows = append(d.Rows, row)
	}

	for _, diag := range c.Diagnostics {
		d.Diag = append(d.Diag, diagData{
			Measure:  string(diag.Measure),
			Paths:    diag.Paths,
			Accepted: diag.AcceptedPaths,
			Unstable: diag.UnstablePaths,
			Batches:  diag.Batches,
			Partial:  diag.Partial,
			Duration: utils.FormatDuration(diag.Duration),
		})
	}
	return d
}

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

func renderText(d reportData) string {
	var sb strings.Builder

	// Column widths follow the widest cell so decimals and grouping never
	// break alignment.
	header := []string{"#", "fixing", "payment"}
	for _, m := range d.Measures {
		header = append(header, m, "± se", "rel.diff")
	}
	header = append(header, "analytic")

	table := [][]string{header}
	for _, r := range d.Rows {
		cells := []string{r.Period, r.Fixing, r.Payment}
		for _, c := range r.Cells {
			cells = append(cells, c.Value, c.SE, c.RelDif)
		}
		cells = append(cells, r.Analytic)
		table = append(table, cells)
	}

	widths := make([]int, len(header))
	for _, row := range table {
		for i, cell := range row {
			widths[i] = max(widths[i], len([]rune(cell)))
		}
	}
	total := 2
	for _, w := range widths {
		total += w + 2
	}
	total = max(total, 60)

	line := strings.Repeat("═", total)
	thinLine := strings.Repeat("─", total)

	sb.WriteString("\n" + line + "\n")
	sb.WriteString(fmt.Sprintf("  %s\n", d.Title))
	if d.Generated != "" {
		sb.WriteString(fmt.Sprintf("  Generated: %s | Run: %s\n", d.Generated, d.RunID))
	}
	sb.WriteString(fmt.Sprintf("  Dynamics: %s | Notional: %s | Seed: %d\n", d.Dynamics, d.Notional, d.Seed))
	sb.WriteString(line + "\n\n")

	for n, row := range table {
		sb.WriteString(" ")
		for i, cell := range row {
			sb.WriteString(" " + padLeft(cell, widths[i]) + " ")
		}
		sb.WriteString("\n")
		if n == 0 {
			sb.WriteString(thinLine + "\n")
		}
	}
	sb.WriteString(thinLine + "\n")

	if len(d.Diag) > 0 {
		sb.WriteString("\n  ■ DIAGNOSTICS\n")
		for _, dg := range d.Diag {
			status := "complete"
			if dg.Partial {
				status = "partial"
			}
			sb.WriteString(fmt.Sprintf("    %-9s paths %d (accepted %d, unstable %d) | batches %d | %s | %s\n",
				dg.Measure, dg.Paths, dg.Accepted, dg.Unstable, dg.Batches, dg.Duration, status))
		}
		sb.WriteString(thinLine + "\n")
	}

	sb.WriteString(line + "\n")
	return sb.String()
}

func padLeft(s string, width int) string {
	n := width - len([]rune(s))
	if n <= 0 {
		return s
	}
	return strings.Repeat(" ", n) + s
}

// ════════════════════════════════════════════════════════════════════
// CSV renderer
// ════════════════════════════════════════════════════════════════════

// renderCSV writes one row per period with full-precision values.
func renderCSV(w io.Writer, c *models.Comparison) error {
	measures := measuresOf(c)
	cw := csv.NewWriter(w)

	header := []string{"period", "fixing", "payment"}
	for _, m := range measures {
		header = append(header, string(m), string(m)+"_se", string(m)+"_rel_diff")
	}
	header = append(header, "analytic")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, r := range c.Rows {
		rec := []string{strconv.Itoa(r.PeriodIndex), f(r.PeriodStart), f(r.PeriodEnd)}
		for _, m := range measures {
			e := estimateFor(r, m)
			if e == nil {
				rec = append(rec, "", "", "")
				continue
			}
			rec = append(rec, f(e.Value), f(e.StandardError), f(r.RelativeDifference(e)))
		}
		rec = append(rec, f(r.Analytic))
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing csv row %d: %w", r.PeriodIndex, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ════════════════════════════════════════════════════════════════════
// HTML renderer
// ════════════════════════════════════════════════════════════════════

func renderHTML(w io.Writer, d reportData) error {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return fmt.Errorf("executing template: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}
