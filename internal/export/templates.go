package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

// SafeHTML is a template function that marks a string as safe HTML
func SafeHTML(s interface{}) template.HTML {
	switch v := s.(type) {
	case string:
		return template.HTML(v)
	case template.HTML:
		return v
	default:
		return template.HTML("")
	}
}

//go:embed templates/*.html
var templateFS embed.FS

var screenplayTemplate *template.Template

func init() {
	// Custom template functions
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"safeHTML": SafeHTML,
	}

	templateContent, err := templateFS.ReadFile("templates/screenplay.html")
	if err != nil {
		// Fallback to built-in template if file not found
		screenplayTemplate = template.Must(template.New("screenplay").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	screenplayTemplate = template.Must(template.New("screenplay").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for screenplay template rendering
type TemplateData struct {
	Title       string
	Description string
	Author      string
	UpdatedAt   time.Time
	Scenes      []TemplateScene
}

// TemplateScene holds one scene for template rendering
type TemplateScene struct {
	Title         string
	ContentHTML   template.HTML
	IsBridgeScene bool
}

// RenderScreenplayHTML renders the screenplay template with provided data
func RenderScreenplayHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := screenplayTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: "Courier New", Courier, monospace; font-size: 12pt; line-height: 1.5; max-width: 6.5in; margin: 2rem auto; }
    h1 { text-align: center; text-transform: uppercase; }
    .meta { text-align: center; color: #444; margin-bottom: 3rem; }
    .scene { page-break-inside: avoid; margin-bottom: 2rem; }
    .scene h2 { font-size: 12pt; text-transform: uppercase; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  {{if .Description}}<p class="meta">{{.Description}}</p>{{end}}
  <div class="meta">{{.Author}} | {{.UpdatedAt.Format "Jan 2, 2006"}}</div>
  {{range .Scenes}}
  <div class="scene">
    <h2>{{.Title}}</h2>
    <div>{{.ContentHTML | safeHTML}}</div>
  </div>
  {{end}}
</body>
</html>`
