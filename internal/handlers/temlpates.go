package handlers

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/a-h/templ"
)

// The page shell is plain html/template; everything inside <main> is a templ
// component rendered beforehand and passed in as Body.

type layoutData struct {
	Title     string
	SiteTitle string
	Body      template.HTML
}

var layoutTmpl = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="ar" dir="rtl">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}} · {{.SiteTitle}}</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<link rel="preconnect" href="https://fonts.googleapis.com">
<link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
<link href="https://fonts.googleapis.com/css2?family=IBM+Plex+Sans+Arabic:wght@300;400;500;600&family=IBM+Plex+Mono:wght@400;600&display=swap" rel="stylesheet">
<style>
  :root {
    --ink: #0d1117;
    --paper: #f5f0e8;
    --ledger: #e8e0cc;
    --accent: #c0392b;
    --accent2: #2c6e49;
    --muted: #6b5e4e;
    --rule: #b8a898;
  }
  * { box-sizing: border-box; }
  body {
    background: var(--paper);
    color: var(--ink);
    font-family: 'IBM Plex Sans Arabic', sans-serif;
    margin: 0;
    min-height: 100vh;
  }
  main { max-width: 1200px; margin: 0 auto; padding: 24px; }
  .mono { font-family: 'IBM Plex Mono', monospace; }
  .topbar { display: flex; align-items: center; gap: 16px; margin-bottom: 16px; }
  .topbar h1 { font-size: 1.4rem; font-weight: 600; margin: 0; flex: 1; }
  .nav ul { list-style: none; padding: 0; margin: 0 0 16px; display: flex; flex-wrap: wrap; gap: 8px; }
  .nav a { color: var(--ink); text-decoration: none; padding: 4px 10px; border: 1px solid var(--rule); }
  .nav a.active { background: var(--ink); color: white; }
  .card {
    background: rgba(255,255,255,0.7);
    border: 1px solid var(--ledger);
    border-right: 4px solid var(--ink);
    padding: 16px;
  }
  .cards { display: grid; grid-template-columns: repeat(3, 1fr); gap: 16px; }
  .card-label { font-size: 0.75rem; color: var(--muted); font-weight: 600; }
  .card-value { font-family: 'IBM Plex Mono', monospace; font-size: 2rem; font-weight: 600; }
  .card-delta { font-size: 0.75rem; min-height: 1em; }
  .delta-up { color: var(--accent2); }
  .delta-down { color: var(--accent); }
  .delta-same, .delta-none { color: var(--muted); }
  .field-label {
    font-size: 0.7rem;
    font-weight: 600;
    color: var(--muted);
    display: block;
    margin: 8px 0 2px;
  }
  .filters { display: grid; grid-template-columns: auto 1fr auto 1fr; gap: 8px 12px; align-items: center; margin-bottom: 16px; }
  input, select {
    background: white;
    border: 1px solid var(--rule);
    border-bottom: 2px solid var(--ink);
    padding: 6px 8px;
    font-family: inherit;
    font-size: 0.9rem;
    width: 100%;
  }
  select:disabled { opacity: 0.5; }
  .btn {
    display: inline-block;
    font-weight: 600;
    font-size: 0.8rem;
    padding: 6px 14px;
    border: 2px solid var(--ink);
    background: white;
    color: var(--ink);
    cursor: pointer;
    text-decoration: none;
  }
  .btn-primary { background: var(--ink); color: white; }
  .btn-primary:hover { background: var(--accent); border-color: var(--accent); }
  .view { margin: 16px 0; }
  .chart { width: 100%; max-height: 480px; background: white; border: 1px solid var(--ledger); }
  .chart-empty { min-height: 40px; border: none; background: none; }
  .section-header {
    font-size: 0.8rem;
    font-weight: 600;
    color: var(--muted);
    border-bottom: 1px solid var(--rule);
    padding-bottom: 4px;
    margin: 16px 0 8px;
  }
  .details-bar { display: flex; gap: 8px; align-items: center; }
  .data-table { width: 100%; border-collapse: collapse; background: white; font-size: 0.8rem; }
  .data-table th { background: var(--ink); color: white; padding: 6px; text-align: right; }
  .data-table td { border-bottom: 1px solid var(--ledger); padding: 4px 6px; }
  .no-data { color: var(--muted); font-style: italic; }
  .status { min-height: 1.2em; font-size: 0.85rem; margin-bottom: 8px; }
  .status-error { color: var(--accent); }
  .actions { display: flex; gap: 8px; margin: 16px 0; }
  .upload { max-width: 520px; }
  .login { max-width: 360px; margin: 64px auto; }
  .htmx-indicator { opacity: 0; transition: opacity 0.2s; }
  .htmx-request .htmx-indicator { opacity: 1; }
  @media (max-width: 720px) {
    .cards, .filters { grid-template-columns: 1fr; }
  }
</style>
</head>
<body>
<main>
{{.Body}}
</main>
<script>
  document.addEventListener('click', function (e) {
    var btn = e.target.closest('#menuToggle');
    if (!btn) return;
    var nav = document.getElementById('mainNav');
    nav.hidden = !nav.hidden;
    btn.setAttribute('aria-expanded', String(!nav.hidden));
  });
</script>
</body>
</html>`))

// renderPage writes a full HTML page around body.
func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component) {
	var inner bytes.Buffer
	if err := body.Render(r.Context(), &inner); err != nil {
		h.log.Error("render page body", "path", r.URL.Path, "err", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	var page bytes.Buffer
	err := layoutTmpl.Execute(&page, layoutData{
		Title:     title,
		SiteTitle: h.site.Title,
		Body:      template.HTML(inner.String()),
	})
	if err != nil {
		h.log.Error("render layout", "path", r.URL.Path, "err", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(page.Bytes())
}
