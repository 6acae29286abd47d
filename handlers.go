package invitengine

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
)

// handleHome redirects the site root to the default invitation. The
// lazy legacy migration runs first, so a fresh deployment over an old
// single-tenant layout comes up with one invitation already in place.
func (a *App) handleHome(c echo.Context) error {
	if err := a.Registry.EnsureDefault(); err != nil {
		return err
	}
	slug := a.Registry.DefaultSlug()
	if slug == "" {
		return c.HTML(http.StatusOK, "<h1>No invitations yet. Create one from the admin dashboard.</h1>")
	}
	return c.Redirect(http.StatusSeeOther, "/"+slug+"/")
}

func (a *App) handleInvitationPage(c echo.Context) error {
	if err := a.Registry.EnsureDefault(); err != nil {
		return err
	}
	slug := c.Param("slug")
	if IsReservedSlug(slug) || !a.Registry.Exists(slug) {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	// visit logging is best-effort and never blocks the page
	a.guest.RecordVisit(c, slug)

	cfg := a.Store.LoadConfig(slug)
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return a.Renderer.Page(c.Response().Writer, slug, cfg)
}

// handleInvitationAsset serves files from the slug's asset tree.
func (a *App) handleInvitationAsset(c echo.Context) error {
	slug := c.Param("slug")
	if IsReservedSlug(slug) || !a.Registry.Exists(slug) {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	name := c.Param("*")
	// Clean against an absolute root so ".." cannot escape the tree.
	path := filepath.Join(a.Store.AssetsPath(slug), filepath.Clean("/"+name))
	return c.File(path)
}

// httpErrorHandler renders friendly HTML for page errors. JSON APIs
// keep echo's default shape.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		a.Echo.DefaultHTTPErrorHandler(err, c)
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = c.HTML(http.StatusNotFound, "<h1>Not found</h1><p>This invitation does not exist.</p>")
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = c.HTML(code, "<h1>Something went wrong</h1><p>Please try again in a moment.</p>")
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

// resolveSlug picks the invitation an admin request targets: explicit
// query or form value first, then the default invitation. Reserved
// words are never resolved.
func (a *App) resolveSlug(c echo.Context) string {
	slug := c.QueryParam("slug")
	if slug == "" {
		slug = c.FormValue("invitation_slug")
	}
	if slug == "" {
		slug = c.FormValue("slug")
	}
	if IsReservedSlug(slug) {
		return ""
	}
	if slug != "" {
		return slug
	}
	return a.Registry.DefaultSlug()
}
