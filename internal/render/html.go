package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"ResearchBriefing/internal/domain"
)

const htmlDocument = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; color: #222; font-size: 14px; line-height: 1.55; max-width: 820px; margin: 2em auto; }
h1 { font-size: 22px; color: #0f3460; border-bottom: 2px solid #e94560; padding-bottom: 5px; }
.overview { font-style: italic; color: #333; }
.section-head { font-size: 16px; font-weight: bold; color: #16213e; border-bottom: 1px solid #ddd; margin: 18px 0 8px; }
.card { background: #f9f9fb; border-left: 3px solid #1a73e8; padding: 6px 10px; margin-bottom: 8px; }
.card-title { font-weight: bold; margin: 0; }
.card a { color: #1a73e8; text-decoration: none; }
.card-meta { font-size: 12px; color: #555; margin: 2px 0 0; }
.tag { background: #e8eaf6; padding: 0 4px; font-family: Courier, monospace; }
.card-summary { font-size: 13px; color: #444; margin: 3px 0 0; }
.overflow { font-size: 12px; color: #888; font-style: italic; }
.footer { border-top: 1px solid #ccc; margin-top: 18px; padding-top: 6px; font-size: 12px; color: #777; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{- if .Overview}}
<p class="overview">{{.Overview}}</p>
{{- end}}
{{- if .Empty}}
<p class="overflow">No new items since the last briefing.</p>
{{- end}}
{{- range .Sections}}
<div class="section">
<div class="section-head">{{.Heading}} ({{.Total}})</div>
{{- $cat := .Category}}
{{- range .Items}}
<div class="card">
{{- if isPost $cat}}
<p class="card-title"><a href="{{.URL}}">{{.Title}}</a></p>
<p class="card-meta">{{.Source}} &middot; {{.Published}}{{if .ArxivIDs}} &middot; arXiv: {{range $i, $id := .ArxivIDs}}{{if $i}}, {{end}}<a href="{{absURL $id}}">{{$id}}</a>{{end}}{{end}}</p>
{{- else}}
<p class="card-title"><a href="{{.URL}}">{{.Title}}</a> <a href="{{.PDFURL}}">[PDF]</a></p>
{{- if isLinked $cat}}
<p class="card-meta"><span class="tag">{{.ArxivID}}</span> &middot; {{if and .BlogURL .BlogTitle}}<a href="{{.BlogURL}}">{{.BlogTitle}}</a>{{else}}{{.Source}}{{end}} ({{.Source}})</p>
{{- else}}
<p class="card-meta"><span class="tag">{{.ArxivID}}</span> &middot; {{join .Keywords}}</p>
{{- end}}
{{- end}}
{{- if .Summary}}
<p class="card-summary">{{.Summary}}</p>
{{- end}}
</div>
{{- end}}
{{- if gt .Overflow 0}}
<p class="overflow">+{{.Overflow}} more {{.Noun}}</p>
{{- end}}
</div>
{{- end}}
<div class="footer">{{.Footer.Text}}</div>
</body>
</html>
`

var htmlTemplate = template.Must(template.New("briefing").Funcs(template.FuncMap{
	"isPost": func(c domain.Category) bool {
		return c == domain.CategoryPosts || c == domain.CategorySafetyPosts
	},
	"isLinked": func(c domain.Category) bool { return c == domain.CategoryLinked },
	"absURL":   domain.ArxivAbsURL,
	"join":     func(v []string) string { return strings.Join(v, ", ") },
}).Parse(htmlDocument))

// HTML renders a standalone, styled archive page. All item text is escaped.
func HTML(b *Briefing) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, b); err != nil {
		return nil, fmt.Errorf("render html briefing: %w", err)
	}
	return buf.Bytes(), nil
}
