// Package page renders the studio screens and the generated landing page.
package page

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"product-page-studio/internal/product"
	"product-page-studio/internal/workflow"
)

//go:embed templates/*.tmpl static/*
var files embed.FS

var benefitIcons = []string{"fa-gem", "fa-bolt", "fa-shield-halved"}

var templates = template.Must(template.New("page").Funcs(template.FuncMap{
	"color": func(value string) string {
		return product.NormalizeColor(value, product.DefaultColors.Primary)
	},
	"tint": func(value string) string {
		return product.NormalizeColor(value, product.DefaultColors.Primary) + "15"
	},
	"palette":     palette,
	"imageURL":    imageURL,
	"benefitIcon": benefitIcon,
}).ParseFS(files, "templates/*.tmpl"))

// View is everything the studio page needs for one snapshot.
type View struct {
	Lang          string
	Phase         workflow.Phase
	Version       uint64
	Busy          bool
	ReferenceURL  template.URL
	Product       *product.Detail
	Error         string
	ProgressTitle string
	ProgressHint  string
	MaxUploadMB   int64
}

func NewView(snap workflow.Snapshot, msgs workflow.Messages, maxUploadBytes int64) View {
	v := View{
		Lang:        msgs.Lang,
		Phase:       snap.Phase,
		Version:     snap.Version,
		Busy:        snap.Busy(),
		Error:       snap.Error,
		MaxUploadMB: maxUploadBytes >> 20,
	}
	if v.Lang == "" {
		v.Lang = "ko"
	}
	if v.MaxUploadMB <= 0 {
		v.MaxUploadMB = 10
	}
	if snap.HasReference() {
		v.ReferenceURL = imageURL(snap.Reference.DataURL())
	}
	if snap.Ready() {
		v.Product = snap.Product
	}

	switch snap.Phase {
	case workflow.PhaseAnalyzing:
		v.ProgressTitle = msgs.AnalyzingTitle
	case workflow.PhaseGeneratingImages:
		v.ProgressTitle = msgs.GeneratingTitle
	}
	v.ProgressHint = msgs.ProgressHint
	return v
}

// Render writes the full studio page.
func Render(w io.Writer, v View) error {
	return templates.ExecuteTemplate(w, "studio", v)
}

// RenderLanding writes a self-contained landing page with inlined styles,
// suitable for download or sending as a file.
func RenderLanding(w io.Writer, d product.Detail, lang string) error {
	css, err := files.ReadFile("static/studio.css")
	if err != nil {
		return fmt.Errorf("read stylesheet: %w", err)
	}
	if lang == "" {
		lang = "ko"
	}
	return templates.ExecuteTemplate(w, "export", struct {
		Lang    string
		CSS     template.CSS
		Product *product.Detail
	}{
		Lang:    lang,
		CSS:     template.CSS(css),
		Product: &d,
	})
}

// Static exposes the embedded stylesheet and script.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

func palette(c product.BrandColors) []string {
	return []string{
		product.NormalizeColor(c.Primary, product.DefaultColors.Primary),
		product.NormalizeColor(c.Secondary, product.DefaultColors.Secondary),
		product.NormalizeColor(c.Accent, product.DefaultColors.Accent),
	}
}

// imageURL marks inline image data URIs as safe for src attributes. Anything
// else is dropped.
func imageURL(value string) template.URL {
	if !strings.HasPrefix(value, "data:image/") || strings.ContainsAny(value, "\"'<> ") {
		return ""
	}
	return template.URL(value)
}

func benefitIcon(i int) string {
	if i >= 0 && i < len(benefitIcons) {
		return benefitIcons[i]
	}
	return "fa-star"
}
