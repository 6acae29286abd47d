package invitengine

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"time"
)

// Renderer turns an invitation's config document into its public HTML
// page. Each slug may carry a template.html override in its directory;
// otherwise the embedded default template is used. Parsed templates are
// cached per slug.
type Renderer struct {
	store *Store
	cache *templateCache
}

func NewRenderer(store *Store) *Renderer {
	return &Renderer{
		store: store,
		cache: newTemplateCache(5 * time.Minute),
	}
}

// PageData is the view model handed to the invitation template. The
// full Config is exposed; computed fields cover the common lookups.
type PageData struct {
	Slug   string
	Title  string
	Config Config
}

// Page renders slug's invitation page into w.
func (r *Renderer) Page(w io.Writer, slug string, cfg Config) error {
	tmpl, err := r.cache.get(slug, func() (*template.Template, error) {
		return r.load(slug)
	})
	if err != nil {
		return fmt.Errorf("render %s: %w", slug, err)
	}
	return tmpl.Execute(w, PageData{
		Slug:   slug,
		Title:  pageTitle(cfg),
		Config: cfg,
	})
}

// HasCustomTemplate reports whether slug carries a template override.
func (r *Renderer) HasCustomTemplate(slug string) bool {
	_, err := os.Stat(r.store.TemplatePath(slug))
	return err == nil
}

// Invalidate drops slug's cached template. Call after any mutation that
// can change the rendered page.
func (r *Renderer) Invalidate(slug string) {
	r.cache.Invalidate(slug)
}

func (r *Renderer) load(slug string) (*template.Template, error) {
	funcs := template.FuncMap{
		"asset": func(p string) string { return AssetURL(slug, p) },
	}
	if data, err := os.ReadFile(r.store.TemplatePath(slug)); err == nil {
		return template.New("invitation").Funcs(funcs).Parse(string(data))
	}
	data, err := templateAssets.ReadFile("templates/invitation.html")
	if err != nil {
		return nil, err
	}
	return template.New("invitation").Funcs(funcs).Parse(string(data))
}

func pageTitle(cfg Config) string {
	if cfg.Meta.Name != "" {
		return cfg.Meta.Name
	}
	groom := cfg.WeddingInfo.GroomName
	if groom == "" {
		groom = "Groom"
	}
	bride := cfg.WeddingInfo.BrideName
	if bride == "" {
		bride = "Bride"
	}
	return groom + " ♥ " + bride
}

// AssetURL resolves a config-relative asset path ("assets/images/x.jpg")
// to the slug-scoped public URL. Absolute URLs pass through untouched;
// an empty path stays empty.
func AssetURL(slug, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "//") {
		return path
	}
	return "/" + slug + "/" + strings.TrimPrefix(path, "/")
}
