package invitengine

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapSettingsRequest(t *testing.T, a *App, method, target, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	var err error
	if method == http.MethodPost {
		err = a.handleSaveMapSettings(c)
	} else {
		err = a.handleGetMapSettings(c)
	}
	require.NoError(t, err)

	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestSaveMapSettings(t *testing.T) {
	a := setupTestApp(t)
	created, err := a.Registry.Create(CreateOptions{Name: "Spring"})
	require.NoError(t, err)
	slug := created.Slug
	before := a.Store.LoadConfig(slug).Meta.UpdatedAt

	body := `{"venueName":"The Garden Hall","venueAddress":"12 Blossom St","venueDetail":"3F","subwayInfo":"Line 2, exit 4"}`
	code, out := mapSettingsRequest(t, a, http.MethodPost, "/api/map-settings?slug="+slug, body)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, out["success"])

	cfg := a.Store.LoadConfig(slug)
	assert.Equal(t, "The Garden Hall", cfg.MapSettings.VenueName)
	assert.Equal(t, "12 Blossom St", cfg.MapSettings.VenueAddress)
	assert.Equal(t, "3F", cfg.MapSettings.VenueDetail)
	assert.Equal(t, "Line 2, exit 4", cfg.MapSettings.SubwayInfo)
	assert.NotEmpty(t, cfg.Meta.UpdatedAt)
	assert.GreaterOrEqual(t, cfg.Meta.UpdatedAt, before, "saving bumps the update stamp")
}

func TestSaveMapSettingsValidation(t *testing.T) {
	a := setupTestApp(t)
	created, err := a.Registry.Create(CreateOptions{Name: "Spring"})
	require.NoError(t, err)
	slug := created.Slug

	cases := []struct {
		name string
		body string
	}{
		{"missing venue name", `{"venueAddress":"12 Blossom St"}`},
		{"blank venue name", `{"venueName":"  ","venueAddress":"12 Blossom St"}`},
		{"missing venue address", `{"venueName":"The Garden Hall"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, out := mapSettingsRequest(t, a, http.MethodPost, "/api/map-settings?slug="+slug, tc.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, false, out["success"])
			assert.NotEmpty(t, out["message"])
		})
	}
	assert.Empty(t, a.Store.LoadConfig(slug).MapSettings.VenueAddress,
		"rejected submissions must not be persisted")
}

func TestGetMapSettings(t *testing.T) {
	a := setupTestApp(t)
	created, err := a.Registry.Create(CreateOptions{Name: "Spring"})
	require.NoError(t, err)
	slug := created.Slug

	cfg := a.Store.LoadConfig(slug)
	cfg.MapSettings = MapSettings{VenueName: "The Garden Hall", VenueAddress: "12 Blossom St"}
	require.NoError(t, a.Store.SaveConfig(slug, cfg))

	code, out := mapSettingsRequest(t, a, http.MethodGet, "/api/map-settings?slug="+slug, "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, out["success"])
	settings := out["settings"].(map[string]any)
	assert.Equal(t, "The Garden Hall", settings["venueName"])
	assert.Equal(t, slug, out["slug"])

	// the default invitation answers when no slug is named
	code, out = mapSettingsRequest(t, a, http.MethodGet, "/api/map-settings", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, slug, out["slug"])

	code, _ = mapSettingsRequest(t, a, http.MethodGet, "/api/map-settings?slug=ghost", "")
	assert.Equal(t, http.StatusNotFound, code)
}
