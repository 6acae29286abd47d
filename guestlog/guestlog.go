// Package guestlog keeps the per-invitation guest-facing records:
// guestbook entries, RSVP submissions and the visit log. Each record
// type is one JSON array file inside the invitation's directory, so an
// invitation rename or delete carries its guest data with it for free.
package guestlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	guestbookFile = "guestbook.json"
	rsvpFile      = "rsvp.json"
	visitsFile    = "visits.json"

	maxVisitsPerIP     = 50
	maxUserAgentsPerIP = 10
)

// ErrUnknownInvitation is returned when a write targets a slug that has
// no invitation behind it. Reads against unknown slugs return empty
// lists instead, matching how missing files are treated.
var ErrUnknownInvitation = errors.New("invitation not found")

// ErrEntryNotFound is returned when a delete names an id that is not in
// the file.
var ErrEntryNotFound = errors.New("entry not found")

// ErrPasswordMismatch is returned when a guestbook delete carries the
// wrong password.
var ErrPasswordMismatch = errors.New("password mismatch")

// ValidationError reports a user-correctable problem with a submission.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// GuestbookEntry is one message left by a visitor. The password is a
// plain shared secret the author uses to delete their own entry; it is
// stored but stripped before listings go out.
type GuestbookEntry struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Message   string `json:"message"`
	Password  string `json:"password,omitempty"`
	Date      string `json:"date"`
	Timestamp int64  `json:"timestamp"`
}

// RSVPEntry is one attendance submission.
type RSVPEntry struct {
	ID          int    `json:"id"`
	Side        string `json:"side"`
	Name        string `json:"name"`
	Attendees   int    `json:"attendees"`
	Companion   string `json:"companion"`
	Meal        string `json:"meal"`
	SubmittedAt string `json:"submitted_at"`
}

// RSVPSummary aggregates submissions for the admin view.
type RSVPSummary struct {
	Total          int `json:"total"`
	GroomSide      int `json:"groom_side"`
	BrideSide      int `json:"bride_side"`
	TotalAttendees int `json:"total_attendees"`
	MealPlanned    int `json:"meal_planned"`
	MealNotPlanned int `json:"meal_not_planned"`
	MealUndecided  int `json:"meal_undecided"`
}

// Visit is one page view.
type Visit struct {
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}

// VisitEntry groups views by client IP. Visits keeps only the most
// recent maxVisitsPerIP views; Count keeps the true total.
type VisitEntry struct {
	IP         string   `json:"ip"`
	Visits     []Visit  `json:"visits"`
	UserAgents []string `json:"user_agents"`
	Count      int      `json:"count"`
	LastSeen   string   `json:"last_seen,omitempty"`
	LastPath   string   `json:"last_path,omitempty"`
}

// Store reads and writes the guest record files. It does not own the
// invitation registry; the exists callback answers whether a slug is a
// real invitation.
type Store struct {
	root   string
	exists func(slug string) bool
}

// NewStore creates a store over the invitations directory.
func NewStore(root string, exists func(slug string) bool) *Store {
	return &Store{root: root, exists: exists}
}

func (s *Store) path(slug, file string) string {
	return filepath.Join(s.root, slug, file)
}

// readEntries loads a JSON array file into out. Unknown slugs, missing
// files and corrupt files all leave out untouched: guest records never
// block a page.
func (s *Store) readEntries(slug, file string, out any) {
	if slug == "" || !s.exists(slug) {
		return
	}
	data, err := os.ReadFile(s.path(slug, file))
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		return
	}
}

// writeEntries persists a JSON array file. Unlike reads, writes against
// an unknown slug fail: a submission must never create an orphan
// directory.
func (s *Store) writeEntries(slug, file string, entries any) error {
	if slug == "" || !s.exists(slug) {
		return ErrUnknownInvitation
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", file, err)
	}
	if err := os.WriteFile(s.path(slug, file), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	return nil
}

func nextID[T any](entries []T, id func(T) int) int {
	max := 0
	for _, e := range entries {
		if v := id(e); v > max {
			max = v
		}
	}
	return max + 1
}

// Guestbook returns all entries, newest first, passwords stripped.
func (s *Store) Guestbook(slug string) []GuestbookEntry {
	entries := []GuestbookEntry{}
	s.readEntries(slug, guestbookFile, &entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	for i := range entries {
		entries[i].Password = ""
	}
	return entries
}

// AddGuestbook validates and appends one guestbook entry. Newlines in
// the message become <br> so the stored form is render-ready.
func (s *Store) AddGuestbook(slug, name, message, password string) (GuestbookEntry, error) {
	name = strings.TrimSpace(name)
	message = strings.TrimSpace(message)
	password = strings.TrimSpace(password)

	if name == "" || len([]rune(name)) > 20 {
		return GuestbookEntry{}, validationf("name must be 1-20 characters")
	}
	if message == "" || len([]rune(message)) > 500 {
		return GuestbookEntry{}, validationf("message must be 1-500 characters")
	}
	if len([]rune(password)) < 4 {
		return GuestbookEntry{}, validationf("password must be at least 4 characters")
	}

	entries := []GuestbookEntry{}
	s.readEntries(slug, guestbookFile, &entries)

	now := time.Now()
	entry := GuestbookEntry{
		ID:        nextID(entries, func(e GuestbookEntry) int { return e.ID }),
		Name:      name,
		Message:   strings.ReplaceAll(message, "\n", "<br>"),
		Password:  password,
		Date:      now.Format("2006.01.02"),
		Timestamp: now.Unix(),
	}
	entries = append(entries, entry)
	if err := s.writeEntries(slug, guestbookFile, entries); err != nil {
		return GuestbookEntry{}, err
	}
	entry.Password = ""
	return entry, nil
}

// DeleteGuestbook removes the entry with the given id. When force is
// false the caller's password must match the stored one; admins delete
// with force set.
func (s *Store) DeleteGuestbook(slug string, id int, password string, force bool) error {
	entries := []GuestbookEntry{}
	s.readEntries(slug, guestbookFile, &entries)

	for i, e := range entries {
		if e.ID != id {
			continue
		}
		if !force && e.Password != strings.TrimSpace(password) {
			return ErrPasswordMismatch
		}
		entries = append(entries[:i], entries[i+1:]...)
		return s.writeEntries(slug, guestbookFile, entries)
	}
	return ErrEntryNotFound
}

// RSVPs returns all submissions, newest first.
func (s *Store) RSVPs(slug string) []RSVPEntry {
	entries := []RSVPEntry{}
	s.readEntries(slug, rsvpFile, &entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SubmittedAt > entries[j].SubmittedAt
	})
	return entries
}

// AddRSVP validates, normalizes and appends one submission. Side and
// meal fall back to their defaults on unknown values rather than
// rejecting the whole submission.
func (s *Store) AddRSVP(slug string, e RSVPEntry) (RSVPEntry, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return RSVPEntry{}, validationf("name is required")
	}

	e.Side = strings.ToLower(strings.TrimSpace(e.Side))
	if e.Side != "groom" && e.Side != "bride" {
		e.Side = "groom"
	}
	if e.Attendees < 1 {
		e.Attendees = 1
	}
	e.Companion = strings.TrimSpace(e.Companion)
	e.Meal = strings.ToLower(strings.TrimSpace(e.Meal))
	switch e.Meal {
	case "planned", "not_planned", "undecided":
	default:
		e.Meal = "planned"
	}

	entries := []RSVPEntry{}
	s.readEntries(slug, rsvpFile, &entries)

	e.ID = nextID(entries, func(e RSVPEntry) int { return e.ID })
	e.SubmittedAt = time.Now().UTC().Format(time.RFC3339)

	entries = append(entries, e)
	if err := s.writeEntries(slug, rsvpFile, entries); err != nil {
		return RSVPEntry{}, err
	}
	return e, nil
}

// DeleteRSVP removes the submission with the given id.
func (s *Store) DeleteRSVP(slug string, id int) error {
	entries := []RSVPEntry{}
	s.readEntries(slug, rsvpFile, &entries)

	for i, e := range entries {
		if e.ID == id {
			entries = append(entries[:i], entries[i+1:]...)
			return s.writeEntries(slug, rsvpFile, entries)
		}
	}
	return ErrEntryNotFound
}

// Summary aggregates the RSVP file for the admin dashboard.
func (s *Store) Summary(slug string) RSVPSummary {
	var sum RSVPSummary
	for _, e := range s.RSVPs(slug) {
		sum.Total++
		sum.TotalAttendees += e.Attendees
		if e.Side == "bride" {
			sum.BrideSide++
		} else {
			sum.GroomSide++
		}
		switch e.Meal {
		case "not_planned":
			sum.MealNotPlanned++
		case "undecided":
			sum.MealUndecided++
		default:
			sum.MealPlanned++
		}
	}
	return sum
}

// RecordVisit logs one page view, grouped by client IP. The entry keeps
// the last maxVisitsPerIP views and the last maxUserAgentsPerIP
// distinct user agents, newest first.
func (s *Store) RecordVisit(slug, ip, userAgent, path string) error {
	if ip == "" {
		ip = "unknown"
	}
	now := time.Now().UTC().Format(time.RFC3339)

	entries := []VisitEntry{}
	s.readEntries(slug, visitsFile, &entries)

	idx := -1
	for i := range entries {
		if entries[i].IP == ip {
			idx = i
			break
		}
	}
	if idx == -1 {
		entries = append(entries, VisitEntry{IP: ip, Visits: []Visit{}, UserAgents: []string{}})
		idx = len(entries) - 1
	}

	e := &entries[idx]
	e.Count++
	e.Visits = append(e.Visits, Visit{Timestamp: now, Path: path})
	if len(e.Visits) > maxVisitsPerIP {
		e.Visits = e.Visits[len(e.Visits)-maxVisitsPerIP:]
	}
	e.LastSeen = now
	e.LastPath = path

	if userAgent != "" && !contains(e.UserAgents, userAgent) {
		e.UserAgents = append([]string{userAgent}, e.UserAgents...)
		if len(e.UserAgents) > maxUserAgentsPerIP {
			e.UserAgents = e.UserAgents[:maxUserAgentsPerIP]
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastSeen > entries[j].LastSeen
	})
	return s.writeEntries(slug, visitsFile, entries)
}

// DeleteVisit drops the log entry for one client IP.
func (s *Store) DeleteVisit(slug, ip string) error {
	entries := []VisitEntry{}
	s.readEntries(slug, visitsFile, &entries)

	kept := entries[:0]
	for _, e := range entries {
		if e.IP != ip {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return ErrEntryNotFound
	}
	return s.writeEntries(slug, visitsFile, kept)
}

// ClearVisits empties the visit log.
func (s *Store) ClearVisits(slug string) error {
	return s.writeEntries(slug, visitsFile, []VisitEntry{})
}

// Visits returns the per-IP visit log, most recently seen first.
func (s *Store) Visits(slug string) []VisitEntry {
	entries := []VisitEntry{}
	s.readEntries(slug, visitsFile, &entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastSeen > entries[j].LastSeen
	})
	return entries
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
