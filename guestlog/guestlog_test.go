package guestlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore backs the exists callback with a set of provisioned slugs,
// the way the invitation registry does in production.
func testStore(t *testing.T, slugs ...string) *Store {
	t.Helper()
	root := t.TempDir()
	known := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		known[slug] = true
		require.NoError(t, os.MkdirAll(filepath.Join(root, slug), 0o755))
	}
	return NewStore(root, func(slug string) bool { return known[slug] })
}

func TestGuestbookAddAndList(t *testing.T) {
	s := testStore(t, "spring")

	first, err := s.AddGuestbook("spring", "Alice", "Congrats!\nSo happy for you", "1234")
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, "Congrats!<br>So happy for you", first.Message)
	assert.Empty(t, first.Password, "returned entry must not echo the password")

	second, err := s.AddGuestbook("spring", "Bob", "Best wishes", "abcd")
	require.NoError(t, err)
	assert.Equal(t, 2, second.ID)

	entries := s.Guestbook("spring")
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Empty(t, e.Password, "listings must strip passwords")
	}
}

func TestGuestbookValidation(t *testing.T) {
	s := testStore(t, "spring")

	cases := []struct {
		name     string
		author   string
		message  string
		password string
	}{
		{"empty name", "", "hi", "1234"},
		{"name too long", strings.Repeat("a", 21), "hi", "1234"},
		{"empty message", "Alice", "", "1234"},
		{"message too long", "Alice", strings.Repeat("x", 501), "1234"},
		{"password too short", "Alice", "hi", "123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.AddGuestbook("spring", tc.author, tc.message, tc.password)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}

	// rune counting, not byte counting: 20 Hangul characters are valid
	_, err := s.AddGuestbook("spring", strings.Repeat("가", 20), "hi", "1234")
	assert.NoError(t, err)
}

func TestGuestbookDelete(t *testing.T) {
	s := testStore(t, "spring")

	entry, err := s.AddGuestbook("spring", "Alice", "hello", "secret99")
	require.NoError(t, err)

	err = s.DeleteGuestbook("spring", entry.ID, "wrong", false)
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Len(t, s.Guestbook("spring"), 1)

	err = s.DeleteGuestbook("spring", 999, "secret99", false)
	assert.ErrorIs(t, err, ErrEntryNotFound)

	require.NoError(t, s.DeleteGuestbook("spring", entry.ID, "secret99", false))
	assert.Empty(t, s.Guestbook("spring"))
}

func TestGuestbookAdminDelete(t *testing.T) {
	s := testStore(t, "spring")

	entry, err := s.AddGuestbook("spring", "Alice", "hello", "secret99")
	require.NoError(t, err)

	// force bypasses the password check
	require.NoError(t, s.DeleteGuestbook("spring", entry.ID, "", true))
	assert.Empty(t, s.Guestbook("spring"))
}

func TestUnknownInvitation(t *testing.T) {
	s := testStore(t, "spring")

	_, err := s.AddGuestbook("ghost", "Alice", "hi", "1234")
	assert.ErrorIs(t, err, ErrUnknownInvitation)

	assert.Empty(t, s.Guestbook("ghost"), "reads against unknown slugs are empty, not errors")
	assert.Empty(t, s.RSVPs("ghost"))
	assert.Empty(t, s.Visits("ghost"))

	err = s.RecordVisit("ghost", "203.0.113.1", "UA", "/ghost/")
	assert.ErrorIs(t, err, ErrUnknownInvitation)
}

func TestRSVPNormalization(t *testing.T) {
	s := testStore(t, "spring")

	entry, err := s.AddRSVP("spring", RSVPEntry{
		Side:      "INVALID",
		Name:      "  Alice  ",
		Attendees: 0,
		Meal:      "maybe",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, entry.ID)
	assert.Equal(t, "groom", entry.Side)
	assert.Equal(t, "Alice", entry.Name)
	assert.Equal(t, 1, entry.Attendees)
	assert.Equal(t, "planned", entry.Meal)
	assert.NotEmpty(t, entry.SubmittedAt)

	_, err = s.AddRSVP("spring", RSVPEntry{Name: "   "})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestRSVPSummary(t *testing.T) {
	s := testStore(t, "spring")

	submissions := []RSVPEntry{
		{Name: "A", Side: "groom", Attendees: 2, Meal: "planned"},
		{Name: "B", Side: "bride", Attendees: 1, Meal: "not_planned"},
		{Name: "C", Side: "bride", Attendees: 3, Meal: "undecided"},
	}
	for _, e := range submissions {
		_, err := s.AddRSVP("spring", e)
		require.NoError(t, err)
	}

	sum := s.Summary("spring")
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.GroomSide)
	assert.Equal(t, 2, sum.BrideSide)
	assert.Equal(t, 6, sum.TotalAttendees)
	assert.Equal(t, 1, sum.MealPlanned)
	assert.Equal(t, 1, sum.MealNotPlanned)
	assert.Equal(t, 1, sum.MealUndecided)
}

func TestDeleteRSVP(t *testing.T) {
	s := testStore(t, "spring")

	entry, err := s.AddRSVP("spring", RSVPEntry{Name: "A"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteRSVP("spring", 999), ErrEntryNotFound)
	require.NoError(t, s.DeleteRSVP("spring", entry.ID))
	assert.Empty(t, s.RSVPs("spring"))
}

func TestRecordVisitGroupsByIP(t *testing.T) {
	s := testStore(t, "spring")

	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordVisit("spring", "203.0.113.1", "Safari", "/spring/"))
	}
	require.NoError(t, s.RecordVisit("spring", "203.0.113.2", "Chrome", "/spring/"))

	entries := s.Visits("spring")
	require.Len(t, entries, 2)

	var byIP = map[string]VisitEntry{}
	for _, e := range entries {
		byIP[e.IP] = e
	}
	assert.Equal(t, 3, byIP["203.0.113.1"].Count)
	assert.Len(t, byIP["203.0.113.1"].Visits, 3)
	assert.Equal(t, []string{"Safari"}, byIP["203.0.113.1"].UserAgents, "repeat user agents are not duplicated")
	assert.Equal(t, "/spring/", byIP["203.0.113.1"].LastPath)
	assert.NotEmpty(t, byIP["203.0.113.1"].LastSeen)
}

func TestRecordVisitCaps(t *testing.T) {
	s := testStore(t, "spring")

	for i := 0; i < maxVisitsPerIP+5; i++ {
		require.NoError(t, s.RecordVisit("spring", "203.0.113.1", "UA", "/spring/"))
	}
	for i := 0; i < maxUserAgentsPerIP+3; i++ {
		require.NoError(t, s.RecordVisit("spring", "203.0.113.1", "UA-"+strings.Repeat("x", i), "/spring/"))
	}

	e := s.Visits("spring")[0]
	assert.Len(t, e.Visits, maxVisitsPerIP, "stored visits are capped")
	assert.Equal(t, maxVisitsPerIP+5+maxUserAgentsPerIP+3, e.Count, "the counter keeps the true total")
	assert.Len(t, e.UserAgents, maxUserAgentsPerIP)
	// newest agent first
	assert.Equal(t, "UA-"+strings.Repeat("x", maxUserAgentsPerIP+2), e.UserAgents[0])
}

func TestDeleteVisit(t *testing.T) {
	s := testStore(t, "spring")

	require.NoError(t, s.RecordVisit("spring", "203.0.113.1", "UA", "/spring/"))
	require.NoError(t, s.RecordVisit("spring", "203.0.113.2", "UA", "/spring/"))

	require.NoError(t, s.DeleteVisit("spring", "203.0.113.1"))
	entries := s.Visits("spring")
	require.Len(t, entries, 1)
	assert.Equal(t, "203.0.113.2", entries[0].IP)

	assert.ErrorIs(t, s.DeleteVisit("spring", "203.0.113.1"), ErrEntryNotFound)
	assert.ErrorIs(t, s.DeleteVisit("spring", "198.51.100.7"), ErrEntryNotFound)
}

func TestClearVisits(t *testing.T) {
	s := testStore(t, "spring")

	require.NoError(t, s.RecordVisit("spring", "203.0.113.1", "UA", "/spring/"))
	require.NoError(t, s.RecordVisit("spring", "203.0.113.2", "UA", "/spring/"))

	require.NoError(t, s.ClearVisits("spring"))
	assert.Empty(t, s.Visits("spring"))

	// clearing an empty log is fine; clearing an unknown slug is not
	require.NoError(t, s.ClearVisits("spring"))
	assert.ErrorIs(t, s.ClearVisits("ghost"), ErrUnknownInvitation)
}

func TestEmptyIPFallsBackToUnknown(t *testing.T) {
	s := testStore(t, "spring")

	require.NoError(t, s.RecordVisit("spring", "", "UA", "/spring/"))
	entries := s.Visits("spring")
	require.Len(t, entries, 1)
	assert.Equal(t, "unknown", entries[0].IP)
}
