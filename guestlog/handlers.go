package guestlog

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler serves the guest-facing JSON API. Public routes resolve the
// target invitation from the request and fall back to the default;
// admin routes sit behind the middleware handed to RegisterRoutes.
type Handler struct {
	store       *Store
	defaultSlug func() string
}

// NewHandler builds a handler. defaultSlug supplies the invitation used
// when a request names none.
func NewHandler(store *Store, defaultSlug func() string) *Handler {
	return &Handler{store: store, defaultSlug: defaultSlug}
}

// RegisterRoutes mounts the guest API. adminOnly guards the
// moderation and reporting routes.
func (h *Handler) RegisterRoutes(e *echo.Echo, adminOnly echo.MiddlewareFunc) {
	e.GET("/api/guestbook", h.handleGuestbookList)
	e.POST("/api/guestbook", h.handleGuestbookAdd)
	e.DELETE("/api/guestbook/:id", h.handleGuestbookDelete)

	e.GET("/api/rsvp", h.handleRSVPList)
	e.POST("/api/rsvp", h.handleRSVPSubmit)

	e.DELETE("/api/admin/guestbook/:id", h.handleAdminGuestbookDelete, adminOnly)
	e.GET("/api/admin/rsvp", h.handleAdminRSVP, adminOnly)
	e.DELETE("/api/admin/rsvp/:id", h.handleAdminRSVPDelete, adminOnly)
	e.GET("/api/admin/visits", h.handleAdminVisits, adminOnly)
	e.DELETE("/api/admin/visits", h.handleAdminVisitsClear, adminOnly)
	e.DELETE("/api/admin/visits/:ip", h.handleAdminVisitDelete, adminOnly)
}

// RecordVisit logs a page view for slug. Best-effort: failures are
// logged and never surface to the visitor.
func (h *Handler) RecordVisit(c echo.Context, slug string) {
	if err := h.store.RecordVisit(slug, c.RealIP(), c.Request().UserAgent(), c.Request().URL.Path); err != nil {
		log.Printf("record visit for %s: %v", slug, err)
	}
}

// resolveSlug picks the invitation a request targets: query parameter
// first, then the request body's slug, then the default invitation.
// Naming an unknown invitation is an error rather than a silent
// fallback.
func (h *Handler) resolveSlug(c echo.Context, bodySlug string) (string, error) {
	slug := c.QueryParam("slug")
	if slug == "" {
		slug = bodySlug
	}
	if slug != "" {
		if !h.store.exists(slug) {
			return "", ErrUnknownInvitation
		}
		return slug, nil
	}
	if slug = h.defaultSlug(); slug == "" {
		return "", ErrUnknownInvitation
	}
	return slug, nil
}

func fail(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, map[string]any{"success": false, "message": message})
}

func (h *Handler) handleGuestbookList(c echo.Context) error {
	slug, err := h.resolveSlug(c, "")
	if err != nil {
		return fail(c, "invitation not found")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    h.store.Guestbook(slug),
		"slug":    slug,
	})
}

func (h *Handler) handleGuestbookAdd(c echo.Context) error {
	var req struct {
		Slug     string `json:"slug"`
		Name     string `json:"name"`
		Message  string `json:"message"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, "invalid request body")
	}
	slug, err := h.resolveSlug(c, req.Slug)
	if err != nil {
		return fail(c, "invitation not found")
	}

	entry, err := h.store.AddGuestbook(slug, req.Name, req.Message, req.Password)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return fail(c, ve.Reason)
		}
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "guestbook entry added",
		"entry":   entry,
		"slug":    slug,
	})
}

func (h *Handler) handleGuestbookDelete(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, "invalid entry id")
	}
	var req struct {
		Slug     string `json:"slug"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, "invalid request body")
	}
	if req.Password == "" {
		return fail(c, "password is required")
	}
	slug, err := h.resolveSlug(c, req.Slug)
	if err != nil {
		return fail(c, "invitation not found")
	}

	switch err := h.store.DeleteGuestbook(slug, id, req.Password, false); {
	case errors.Is(err, ErrEntryNotFound):
		return fail(c, "guestbook entry not found")
	case errors.Is(err, ErrPasswordMismatch):
		return fail(c, "password does not match")
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "guestbook entry deleted"})
}

func (h *Handler) handleAdminGuestbookDelete(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, "invalid entry id")
	}
	slug, err := h.resolveSlug(c, "")
	if err != nil {
		return fail(c, "invitation not found")
	}
	switch err := h.store.DeleteGuestbook(slug, id, "", true); {
	case errors.Is(err, ErrEntryNotFound):
		return fail(c, "guestbook entry not found")
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "guestbook entry deleted"})
}

func (h *Handler) handleRSVPList(c echo.Context) error {
	slug, err := h.resolveSlug(c, "")
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]any{"success": false, "message": "invitation not found"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    h.store.RSVPs(slug),
		"slug":    slug,
	})
}

func (h *Handler) handleRSVPSubmit(c echo.Context) error {
	var req struct {
		Slug      string `json:"slug"`
		Side      string `json:"side"`
		Name      string `json:"name"`
		Attendees int    `json:"attendees"`
		Companion string `json:"companion"`
		Meal      string `json:"meal"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request body"})
	}
	slug, err := h.resolveSlug(c, req.Slug)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]any{"success": false, "message": "invitation not found"})
	}

	entry, err := h.store.AddRSVP(slug, RSVPEntry{
		Side:      req.Side,
		Name:      req.Name,
		Attendees: req.Attendees,
		Companion: req.Companion,
		Meal:      req.Meal,
	})
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": ve.Reason})
		}
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "RSVP recorded",
		"entry":   entry,
		"slug":    slug,
	})
}

func (h *Handler) handleAdminRSVP(c echo.Context) error {
	slug, err := h.resolveSlug(c, "")
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]any{"success": false, "message": "invitation not found"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    h.store.RSVPs(slug),
		"summary": h.store.Summary(slug),
		"slug":    slug,
	})
}

func (h *Handler) handleAdminRSVPDelete(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, "invalid entry id")
	}
	slug, err := h.resolveSlug(c, "")
	if err != nil {
		return fail(c, "invitation not found")
	}
	switch err := h.store.DeleteRSVP(slug, id); {
	case errors.Is(err, ErrEntryNotFound):
		return fail(c, "RSVP entry not found")
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "RSVP entry deleted"})
}

func (h *Handler) handleAdminVisits(c echo.Context) error {
	slug, err := h.resolveSlug(c, "")
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]any{"success": false, "message": "invitation not found"})
	}
	entries := h.store.Visits(slug)
	total := 0
	for _, e := range entries {
		total += e.Count
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"data":         entries,
		"total_visits": total,
		"unique_ips":   len(entries),
		"slug":         slug,
	})
}

func (h *Handler) handleAdminVisitDelete(c echo.Context) error {
	ip := c.Param("ip")
	if ip == "" {
		return fail(c, "ip is required")
	}
	slug, err := h.resolveSlug(c, "")
	if err != nil {
		return fail(c, "invitation not found")
	}
	switch err := h.store.DeleteVisit(slug, ip); {
	case errors.Is(err, ErrEntryNotFound):
		return fail(c, "no visits recorded for that ip")
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "visit log entry deleted"})
}

func (h *Handler) handleAdminVisitsClear(c echo.Context) error {
	slug, err := h.resolveSlug(c, "")
	if err != nil {
		return fail(c, "invitation not found")
	}
	if err := h.store.ClearVisits(slug); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "visit log cleared"})
}
