package report

// htmlTemplate is the HTML rendering of a comparison. It is self-contained.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 1100px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { font-size: 1.4rem; color: var(--accent); margin-bottom: 4px; }
  h2 { font-size: 1.1rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  .muted { color: var(--muted); font-size: 0.85rem; }
  .header { border-bottom: 3px solid var(--accent); padding-bottom: 12px; margin-bottom: 16px; }
  table { width: 100%; border-collapse: collapse; font-size: 0.85rem; }
  th, td { padding: 4px 8px; border-bottom: 1px solid var(--border); text-align: right; }
  th { background: var(--section-bg); }
  td.se { color: var(--muted); }
  .partial { color: var(--red); font-weight: 600; }
</style>
</head>
<body>
<div class="header">
  <h1>{{.Title}}</h1>
  <p class="muted">Dynamics: {{.Dynamics}} | Notional: {{.Notional}} | Seed: {{.Seed}}</p>
  {{if .Generated}}<p class="muted">Generated: {{.Generated}} | Run: {{.RunID}}</p>{{end}}
</div>

<h2>Periods</h2>
<table>
  <thead>
    <tr>
      <th>#</th><th>Fixing</th><th>Payment</th>
      {{range .Measures}}<th>{{.}}</th><th>± se</th><th>rel. diff</th>{{end}}
      <th>Analytic</th>
    </tr>
  </thead>
  <tbody>
    {{range .Rows}}
    <tr>
      <td>{{.Period}}</td><td>{{.Fixing}}</td><td>{{.Payment}}</td>
      {{range .Cells}}<td>{{.Value}}</td><td class="se">{{.SE}}</td><td>{{.RelDif}}</td>{{end}}
      <td>{{.Analytic}}</td>
    </tr>
    {{end}}
  </tbody>
</table>

{{if .Diag}}
<h2>Diagnostics</h2>
<table>
  <thead>
    <tr><th>Measure</th><th>Paths</th><th>Accepted</th><th>Unstable</th><th>Batches</th><th>Duration</th><th>Status</th></tr>
  </thead>
  <tbody>
    {{range .Diag}}
    <tr>
      <td>{{.Measure}}</td><td>{{.Paths}}</td><td>{{.Accepted}}</td><td>{{.Unstable}}</td><td>{{.Batches}}</td><td>{{.Duration}}</td>
      <td>{{if .Partial}}<span class="partial">partial</span>{{else}}complete{{end}}</td>
    </tr>
    {{end}}
  </tbody>
</table>
{{end}}
</body>
</html>
`
