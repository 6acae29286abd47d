package invitengine

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

func (a *App) handleAdminLoginPage(c echo.Context) error {
	if IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return a.renderAdminLogin(c, false)
}

func (a *App) handleAdminLogin(c echo.Context) error {
	if !a.loginLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return a.renderAdminLogin(c, true)
}

func (a *App) handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/login/")
}

func (a *App) renderAdminLogin(c echo.Context, showError bool) error {
	return a.renderAdminTemplate(c, "admin_login.html", map[string]any{
		"SiteName":  a.Config.Name,
		"ShowError": showError,
		"CsrfToken": CsrfToken(c),
	})
}

// handleAdmin serves the dashboard for the selected invitation.
func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/login/")
	}
	if err := a.Registry.EnsureDefault(); err != nil {
		return err
	}
	entries := a.Registry.List()
	slug := a.resolveSlug(c)
	known := false
	for _, e := range entries {
		if e.Slug == slug {
			known = true
			break
		}
	}
	if !known {
		slug = a.Registry.DefaultSlug()
	}

	var cfg Config
	if slug != "" {
		cfg = a.Store.LoadConfig(slug)
	}
	return a.renderAdminTemplate(c, "admin_dashboard.html", map[string]any{
		"SiteName":       a.Config.Name,
		"Invitations":    entries,
		"SelectedSlug":   slug,
		"DefaultSlug":    a.Registry.DefaultSlug(),
		"Config":         cfg,
		"CustomTemplate": a.Renderer.HasCustomTemplate(slug),
		"Message":        c.QueryParam("msg"),
		"CsrfToken":      CsrfToken(c),
	})
}

func (a *App) renderAdminTemplate(c echo.Context, name string, data map[string]any) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return a.adminTmpl.ExecuteTemplate(c.Response().Writer, name, data)
}

// handleAdminSave applies the settings form to the selected
// invitation's config document and re-syncs its index entry.
func (a *App) handleAdminSave(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/login/")
	}
	slug := a.resolveSlug(c)
	if slug == "" || !a.Registry.Exists(slug) {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=Selected+invitation+not+found")
	}
	if err := c.Request().ParseForm(); err != nil {
		return err
	}

	cfg := a.Store.LoadConfig(slug)

	cfg.WeddingInfo = WeddingInfo{
		GroomName:      c.FormValue("groom_name"),
		BrideName:      c.FormValue("bride_name"),
		WeddingDate:    c.FormValue("wedding_date"),
		WeddingTime:    c.FormValue("wedding_time"),
		WeddingVenue:   c.FormValue("wedding_venue"),
		WeddingAddress: c.FormValue("wedding_address"),
	}
	cfg.FamilyInfo = FamilyInfo{
		GroomFather: c.FormValue("groom_father"),
		GroomMother: c.FormValue("groom_mother"),
		BrideFather: c.FormValue("bride_father"),
		BrideMother: c.FormValue("bride_mother"),
	}
	cfg.Messages = Messages{
		InvitationMessage: c.FormValue("invitation_message"),
		PoemMessage:       c.FormValue("poem_message"),
		OutroMessage:      c.FormValue("outro_message"),
	}
	cfg.Transportation = Transportation{
		Subway:  c.FormValue("subway_info"),
		Bus:     c.FormValue("bus_info"),
		Parking: c.FormValue("parking_info"),
	}
	cfg.AccountInfo = AccountInfo{
		GroomAccounts: parseAccounts(c, "groom"),
		BrideAccounts: parseAccounts(c, "bride"),
	}

	// audio controls are saved only when the form carried them; the
	// uploaded background-music file is always preserved
	if formHasAny(c, "audio_autoplay", "audio_loop", "audio_volume") {
		cfg.Audio.Autoplay = c.FormValue("audio_autoplay") != ""
		cfg.Audio.Loop = c.FormValue("audio_loop") != ""
		if v, err := strconv.Atoi(c.FormValue("audio_volume")); err == nil {
			cfg.Audio.Volume = v
		}
	}

	cfg.Map.Link = strings.TrimSpace(c.FormValue("map_link"))

	if cfg.Meta.Name == "" {
		cfg.Meta.Name = pageTitle(cfg)
	}
	cfg.Meta.UpdatedAt = nowStamp()

	if err := a.Store.SaveConfig(slug, cfg); err != nil {
		return err
	}
	if err := a.Registry.SyncIndex(slug, &cfg); err != nil {
		return err
	}
	a.Renderer.Invalidate(slug)
	return c.Redirect(http.StatusSeeOther, "/admin/?slug="+slug+"&msg=saved")
}

// handleTemplateSplit materializes the embedded default template as the
// selected invitation's editable template.html override.
func (a *App) handleTemplateSplit(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/login/")
	}
	slug := a.resolveSlug(c)
	if slug == "" || !a.Registry.Exists(slug) {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=Selected+invitation+not+found")
	}
	msg, err := a.SplitTemplate(slug)
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?slug="+slug+"&msg="+msg)
}

// handleTemplateReset deletes the invitation's template override,
// switching it back to the built-in layout.
func (a *App) handleTemplateReset(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/login/")
	}
	slug := a.resolveSlug(c)
	if slug == "" || !a.Registry.Exists(slug) {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=Selected+invitation+not+found")
	}
	msg, err := a.ResetTemplate(slug)
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?slug="+slug+"&msg="+msg)
}

// SplitTemplate copies the embedded default invitation template into
// slug's directory as template.html. An existing override is left
// untouched. The returned message token feeds the dashboard banner.
func (a *App) SplitTemplate(slug string) (string, error) {
	if a.Renderer.HasCustomTemplate(slug) {
		return "template-exists", nil
	}
	data, err := templateAssets.ReadFile("templates/invitation.html")
	if err != nil {
		return "", fmt.Errorf("read default template: %w", err)
	}
	if _, err := a.Store.EnsureDirs(slug); err != nil {
		return "", err
	}
	if err := os.WriteFile(a.Store.TemplatePath(slug), data, 0o644); err != nil {
		return "", fmt.Errorf("write template override: %w", err)
	}
	a.Renderer.Invalidate(slug)
	return "template-created", nil
}

// ResetTemplate removes slug's template override if one exists.
func (a *App) ResetTemplate(slug string) (string, error) {
	if !a.Renderer.HasCustomTemplate(slug) {
		return "template-missing", nil
	}
	if err := os.Remove(a.Store.TemplatePath(slug)); err != nil {
		return "", fmt.Errorf("remove template override: %w", err)
	}
	a.Renderer.Invalidate(slug)
	return "template-reset", nil
}

// parseAccounts reads the numbered account fields for one side of the
// form (groom_bank_0, groom_number_0, groom_account_name_0, …).
func parseAccounts(c echo.Context, side string) []Account {
	count, _ := strconv.Atoi(c.FormValue(side + "_account_count"))
	accounts := []Account{}
	for i := 0; i < count; i++ {
		bank := strings.TrimSpace(c.FormValue(fmt.Sprintf("%s_bank_%d", side, i)))
		number := strings.TrimSpace(c.FormValue(fmt.Sprintf("%s_number_%d", side, i)))
		name := strings.TrimSpace(c.FormValue(fmt.Sprintf("%s_account_name_%d", side, i)))
		if bank != "" && number != "" && name != "" {
			accounts = append(accounts, Account{Bank: bank, Number: number, Name: name})
		}
	}
	return accounts
}

func formHasAny(c echo.Context, keys ...string) bool {
	form := c.Request().Form
	for _, k := range keys {
		if _, ok := form[k]; ok {
			return true
		}
	}
	return false
}

// --- Invitation management API ---

type invitationResponse struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (a *App) handleListInvitations(c echo.Context) error {
	if !IsAdmin(c) {
		return adminRequired(c)
	}
	idx := a.Store.LoadIndex()
	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"default_slug": idx.DefaultSlug,
		"invitations":  a.Registry.List(),
	})
}

func (a *App) handleCreateInvitation(c echo.Context) error {
	if !IsAdmin(c) {
		return adminRequired(c)
	}
	var req struct {
		Name        string `json:"name"`
		Slug        string `json:"slug"`
		CopyFrom    string `json:"copy_from"`
		MakeDefault bool   `json:"make_default"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request body"})
	}

	opts := CreateOptions{
		Name:        strings.TrimSpace(req.Name),
		Slug:        strings.TrimSpace(req.Slug),
		MakeDefault: req.MakeDefault,
	}
	if copyFrom := strings.TrimSpace(req.CopyFrom); copyFrom != "" && a.Registry.Exists(copyFrom) {
		src := a.Store.LoadConfig(copyFrom)
		cfg := src.Clone()
		cfg.Meta.CreatedAt = ""
		opts.SourceConfig = &cfg
		opts.CopyFrom = copyFrom
	}

	created, err := a.Registry.Create(opts)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"invitation": invitationResponse{
			Slug:      created.Slug,
			Name:      created.Config.Meta.Name,
			CreatedAt: created.Config.Meta.CreatedAt,
			UpdatedAt: created.Config.Meta.UpdatedAt,
		},
		"default_slug": a.Store.LoadIndex().DefaultSlug,
	})
}

// handleUpdateInvitation applies any of: slug rename, display-name
// change, set-default. Partial updates report what changed.
func (a *App) handleUpdateInvitation(c echo.Context) error {
	if !IsAdmin(c) {
		return adminRequired(c)
	}
	slug := c.Param("slug")
	var req struct {
		NewSlug    *string `json:"new_slug"`
		Name       string  `json:"name"`
		SetDefault bool    `json:"set_default"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request body"})
	}

	updates := map[string]any{}

	if req.NewSlug != nil {
		renamed, err := a.Registry.RenameSlug(slug, *req.NewSlug)
		if err != nil {
			return apiError(c, err)
		}
		if renamed != slug {
			a.Renderer.Invalidate(slug)
			a.Renderer.Invalidate(renamed)
			updates["slug"] = renamed
			slug = renamed
		}
		updates["default_slug"] = a.Store.LoadIndex().DefaultSlug
	}

	if req.Name != "" {
		name := strings.TrimSpace(req.Name)
		if name == "" {
			return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": "a valid name is required"})
		}
		cfg, err := a.Registry.UpdateName(slug, name)
		if err != nil {
			return apiError(c, err)
		}
		a.Renderer.Invalidate(slug)
		updates["name"] = cfg.Meta.Name
		updates["updated_at"] = cfg.Meta.UpdatedAt
	}

	if req.SetDefault {
		if _, err := a.Registry.SetDefault(slug); err != nil {
			return apiError(c, err)
		}
		updates["default_slug"] = a.Store.LoadIndex().DefaultSlug
	}

	return c.JSON(http.StatusOK, map[string]any{"success": true, "updates": updates})
}

func (a *App) handleDuplicateInvitation(c echo.Context) error {
	if !IsAdmin(c) {
		return adminRequired(c)
	}
	slug := c.Param("slug")
	var req struct {
		Name string `json:"name"`
	}
	_ = c.Bind(&req)

	created, err := a.Registry.Duplicate(slug, strings.TrimSpace(req.Name))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"invitation": invitationResponse{
			Slug:      created.Slug,
			Name:      created.Config.Meta.Name,
			CreatedAt: created.Config.Meta.CreatedAt,
			UpdatedAt: created.Config.Meta.UpdatedAt,
		},
	})
}

func (a *App) handleDeleteInvitation(c echo.Context) error {
	if !IsAdmin(c) {
		return adminRequired(c)
	}
	slug := c.Param("slug")
	idx, err := a.Registry.Delete(slug)
	if err != nil {
		return apiError(c, err)
	}
	a.Renderer.Invalidate(slug)
	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"default_slug": idx.DefaultSlug,
		"invitations":  a.Registry.List(),
	})
}

func (a *App) handleSetDefaultInvitation(c echo.Context) error {
	if !IsAdmin(c) {
		return adminRequired(c)
	}
	idx, err := a.Registry.SetDefault(c.Param("slug"))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "default_slug": idx.DefaultSlug})
}

func adminRequired(c echo.Context) error {
	return c.JSON(http.StatusForbidden, map[string]any{"success": false, "message": "admin session required"})
}

// apiError maps registry failures to JSON responses: not-found and
// validation errors are user-facing, anything else is a storage fault
// and bubbles up as a 500.
func apiError(c echo.Context, err error) error {
	var ve *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]any{"success": false, "message": "invitation not found"})
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": ve.Reason})
	default:
		return err
	}
}
