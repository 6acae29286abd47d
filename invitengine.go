// Package invitengine is a multi-tenant wedding-invitation engine built
// with Go and Echo. Each invitation is a slug-addressed JSON config
// document plus an asset tree; a single index document maps slugs to
// summary metadata and tracks the default invitation shown at the site
// root. The package provides the registry (create, rename, duplicate,
// delete, set-default), the public renderer, media uploads, and
// per-invitation guestbook, RSVP and visit logs.
package invitengine

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sunho/invitengine/guestlog"
)

// App is the central invitengine application. It wires together the
// store, registry, renderer, guest logs, handlers and middleware.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Registry *Registry
	Renderer *Renderer

	guest        *guestlog.Handler
	loginLimiter *LoginLimiter
	adminTmpl    *template.Template
}

// New creates an App with the given configuration.
func New(cfg SiteConfig) *App {
	cfg.setDefaults()
	return &App{
		Config: cfg,
		Echo:   echo.New(),
	}
}

// Start initializes storage, middleware and routes, then serves until
// the listener closes.
func (a *App) Start() error {
	if err := a.init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// init wires dependencies without starting the listener. Split out so
// tests can drive the app through httptest.
func (a *App) init() error {
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("invitengine: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("invitengine: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DataDir)
	if err != nil {
		return fmt.Errorf("invitengine: init store: %w", err)
	}
	a.Store = store
	a.Registry = NewRegistry(store, a.Config.LegacyDir)
	a.Renderer = NewRenderer(store)
	a.loginLimiter = NewLoginLimiter(5, loginWindow)

	guestStore := guestlog.NewStore(store.Root(), a.Registry.Exists)
	a.guest = guestlog.NewHandler(guestStore, a.Registry.DefaultSlug)

	tmpl, err := template.ParseFS(templateAssets,
		"templates/admin_dashboard.html", "templates/admin_login.html")
	if err != nil {
		return fmt.Errorf("invitengine: parse admin templates: %w", err)
	}
	a.adminTmpl = tmpl

	a.setupMiddleware()
	a.setupRoutes()
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/robots.txt", a.handleRobots)

	// Admin surface — every mutating route is session-gated in its
	// handler; the Registry itself carries no auth checks.
	e.GET("/admin/", a.handleAdmin)
	e.GET("/admin/login/", a.handleAdminLoginPage)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", a.handleAdminLogout)
	e.POST("/admin/save/", a.handleAdminSave)
	e.POST("/admin/template/split/", a.handleTemplateSplit)
	e.POST("/admin/template/reset/", a.handleTemplateReset)

	e.GET("/admin/invitations/", a.handleListInvitations)
	e.POST("/admin/invitations/", a.handleCreateInvitation)
	e.PATCH("/admin/invitations/:slug/", a.handleUpdateInvitation)
	e.DELETE("/admin/invitations/:slug/", a.handleDeleteInvitation)
	e.POST("/admin/invitations/:slug/duplicate/", a.handleDuplicateInvitation)
	e.POST("/admin/invitations/:slug/default/", a.handleSetDefaultInvitation)

	e.POST("/admin/upload/", a.handleUpload)
	e.DELETE("/admin/gallery/:index/", a.handleDeleteGalleryItem)
	e.POST("/admin/audio/settings/", a.handleAudioSettings)
	e.POST("/admin/thumbnail/url/", a.handleThumbnailURL)
	e.DELETE("/admin/thumbnail/", a.handleDeleteThumbnail)

	// Guest APIs — public, keyed by slug, CSRF-exempt.
	a.guest.RegisterRoutes(e, a.isAdminMiddleware())

	e.GET("/api/map-settings", a.handleGetMapSettings)
	e.POST("/api/map-settings", a.handleSaveMapSettings, a.isAdminMiddleware())

	// Public invitation pages. The literal routes above win over the
	// slug parameter routes.
	e.GET("/", a.handleHome)
	e.GET("/:slug/", a.handleInvitationPage)
	e.GET("/:slug/assets/*", a.handleInvitationAsset)
}

// handleRobots keeps crawlers out of the admin surface.
func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /admin/\n\nSitemap: %s/sitemap.xml\n", a.Config.URL)
	return c.String(http.StatusOK, body)
}

// isAdminMiddleware gates guestlog's admin-only routes on the session.
func (a *App) isAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsAdmin(c) {
				return c.JSON(http.StatusForbidden, map[string]any{
					"success": false,
					"message": "admin session required",
				})
			}
			return next(c)
		}
	}
}
