package invitengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when an operation references an unknown slug.
var ErrNotFound = errors.New("invitation not found")

// ValidationError reports a user-correctable problem with a request:
// a bad slug, a reserved word, an attempt to delete the last
// invitation. The reason is safe to show to the admin as-is.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// DefaultSlugName is the fixed slug used when migrating a legacy
// single-tenant deployment into the registry.
const DefaultSlugName = "default"

// Registry orchestrates the invitation set: it keeps the index document
// and the per-slug directories and config documents mutually consistent
// through create, rename, duplicate, delete and set-default operations.
//
// All failures it reports are either validation errors, ErrNotFound, or
// wrapped storage faults. It never retries and never reports partial
// success — except for asset copies, which degrade non-fatally by
// contract.
type Registry struct {
	store *Store

	// legacyDir is scanned once by EnsureDefault for a pre-multi-tenant
	// config.json and flat asset directories.
	legacyDir string
}

// NewRegistry returns a Registry over the given store. legacyDir is the
// directory a single-tenant deployment kept its config and assets in;
// pass "." for the historical layout.
func NewRegistry(store *Store, legacyDir string) *Registry {
	if legacyDir == "" {
		legacyDir = "."
	}
	return &Registry{store: store, legacyDir: legacyDir}
}

// Store exposes the underlying store to collaborators (renderer,
// uploads, guest logs) that only need reads and config writes.
func (r *Registry) Store() *Store { return r.store }

// Exists reports whether slug names a known invitation.
func (r *Registry) Exists(slug string) bool { return r.store.Exists(slug) }

// List returns the known invitations sorted by creation time.
func (r *Registry) List() []IndexEntry { return r.store.ListInvitations() }

// CreateOptions control Create. Only Name is ordinarily required.
type CreateOptions struct {
	Name         string
	Slug         string  // desired slug; Slugify(Name) when empty
	SourceConfig *Config // starting document, e.g. from a duplication
	MakeDefault  bool
	CopyFrom     string // slug whose asset tree is copied into the new invitation
}

// Created describes the outcome of a successful Create.
type Created struct {
	Slug   string
	Dirs   Dirs
	Config Config
}

// Create provisions a new invitation and registers it in the index. The
// returned slug may differ from the requested one: reserved words get a
// "-inv" suffix and collisions get "-2", "-3", … appended.
func (r *Registry) Create(opts CreateOptions) (Created, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = DefaultInvitationName
	}

	// explicit slugs pass through the same normalization as derived
	// ones, so "My Slug" can never land in the index verbatim
	candidate := slugBase(opts.Slug)
	if candidate == "" {
		candidate = Slugify(name)
	}
	if IsReservedSlug(candidate) {
		candidate += "-inv"
	}
	slug := r.uniqueSlug(candidate)

	dirs, err := r.store.EnsureDirs(slug)
	if err != nil {
		return Created{}, err
	}

	if opts.CopyFrom != "" && r.store.Exists(opts.CopyFrom) {
		r.store.CopyAssets(opts.CopyFrom, slug)
	}

	var cfg Config
	if opts.SourceConfig != nil {
		cfg = opts.SourceConfig.Clone()
	} else {
		cfg = DefaultConfig(name, slug)
	}
	cfg.Meta.Name = name
	cfg.Meta.Slug = slug
	cfg.Meta.UpdatedAt = nowStamp()
	if cfg.Meta.CreatedAt == "" {
		cfg.Meta.CreatedAt = cfg.Meta.UpdatedAt
	}

	if err := r.store.SaveConfig(slug, cfg); err != nil {
		return Created{}, err
	}

	idx := r.store.LoadIndex()
	if !idx.has(slug) {
		idx.Invitations = append(idx.Invitations, IndexEntry{
			Slug:      slug,
			Name:      name,
			CreatedAt: cfg.Meta.CreatedAt,
			UpdatedAt: cfg.Meta.UpdatedAt,
			Thumbnail: cfg.Meta.Thumbnail,
		})
	}
	if opts.MakeDefault || idx.DefaultSlug == "" {
		idx.DefaultSlug = slug
	}
	if err := r.store.SaveIndex(idx); err != nil {
		return Created{}, err
	}

	return Created{Slug: slug, Dirs: dirs, Config: cfg}, nil
}

// uniqueSlug returns candidate, or candidate with the first free
// integer suffix ("-2", "-3", …) when it is already taken.
func (r *Registry) uniqueSlug(candidate string) string {
	existing := make(map[string]struct{})
	for _, e := range r.store.ListInvitations() {
		existing[e.Slug] = struct{}{}
	}
	if _, taken := existing[candidate]; !taken {
		return candidate
	}
	for suffix := 2; ; suffix++ {
		next := fmt.Sprintf("%s-%d", candidate, suffix)
		if _, taken := existing[next]; !taken {
			return next
		}
	}
}

// Duplicate creates a copy of the invitation at slug: the config is
// deep-copied and the whole asset tree is duplicated. The copy's name
// is newName (or "<name> (copy)" when empty).
func (r *Registry) Duplicate(slug, newName string) (Created, error) {
	if !r.store.Exists(slug) {
		return Created{}, ErrNotFound
	}
	src := r.store.LoadConfig(slug)
	if newName == "" {
		newName = src.Meta.Name + " (copy)"
	}
	cfg := src.Clone()
	cfg.Meta.CreatedAt = ""
	return r.Create(CreateOptions{
		Name:         newName,
		SourceConfig: &cfg,
		CopyFrom:     slug,
	})
}

// RenameSlug moves the invitation at oldSlug to the slug derived from
// desired. The directory, the index entry, the default pointer and the
// config's meta.slug are all updated before it reports success, so the
// index never references a slug without a directory and the moved
// config never disagrees with its directory name.
func (r *Registry) RenameSlug(oldSlug, desired string) (string, error) {
	if !r.store.Exists(oldSlug) {
		return "", ErrNotFound
	}
	desired = strings.TrimSpace(desired)
	if desired == "" {
		return "", validationf("a new slug is required")
	}
	newSlug := slugBase(desired)
	if newSlug == "" {
		return "", validationf("%q contains no usable slug characters", desired)
	}
	if IsReservedSlug(newSlug) {
		return "", validationf("%q is a reserved path and cannot be used as a slug", newSlug)
	}
	if newSlug == oldSlug {
		return oldSlug, nil
	}
	if r.store.Exists(newSlug) {
		return "", validationf("slug %q is already in use", newSlug)
	}

	if err := r.store.Move(oldSlug, newSlug); err != nil {
		return "", fmt.Errorf("move invitation directory: %w", err)
	}

	now := nowStamp()
	idx := r.store.LoadIndex()
	for i := range idx.Invitations {
		if idx.Invitations[i].Slug == oldSlug {
			idx.Invitations[i].Slug = newSlug
			idx.Invitations[i].UpdatedAt = now
			break
		}
	}
	if idx.DefaultSlug == oldSlug {
		idx.DefaultSlug = newSlug
	}
	if err := r.store.SaveIndex(idx); err != nil {
		return "", err
	}

	cfg := r.store.LoadConfig(newSlug)
	cfg.Meta.Slug = newSlug
	cfg.Meta.UpdatedAt = now
	if err := r.store.SaveConfig(newSlug, cfg); err != nil {
		return "", err
	}
	if err := r.SyncIndex(newSlug, &cfg); err != nil {
		return "", err
	}
	return newSlug, nil
}

// SetDefault points default_slug at slug.
func (r *Registry) SetDefault(slug string) (Index, error) {
	idx := r.store.LoadIndex()
	if !idx.has(slug) {
		return Index{}, ErrNotFound
	}
	idx.DefaultSlug = slug
	if err := r.store.SaveIndex(idx); err != nil {
		return Index{}, err
	}
	return idx, nil
}

// Delete removes slug's directory and index entry. The last remaining
// invitation cannot be deleted. When the deleted slug was the default,
// the default moves to the first remaining entry so it never dangles.
func (r *Registry) Delete(slug string) (Index, error) {
	if !r.store.Exists(slug) {
		return Index{}, ErrNotFound
	}
	idx := r.store.LoadIndex()
	remaining := idx.Invitations[:0:0]
	for _, e := range idx.Invitations {
		if e.Slug != slug {
			remaining = append(remaining, e)
		}
	}
	if len(remaining) == 0 {
		return Index{}, validationf("at least one invitation must remain")
	}

	r.store.Remove(slug)

	idx.Invitations = remaining
	if idx.DefaultSlug == slug {
		idx.DefaultSlug = remaining[0].Slug
	}
	if err := r.store.SaveIndex(idx); err != nil {
		return Index{}, err
	}
	return idx, nil
}

// DefaultSlug resolves the slug the site root should show: the explicit
// default when set, else the earliest-created invitation, else "".
func (r *Registry) DefaultSlug() string {
	idx := r.store.LoadIndex()
	if idx.DefaultSlug != "" {
		return idx.DefaultSlug
	}
	if entries := r.store.ListInvitations(); len(entries) > 0 {
		return entries[0].Slug
	}
	return ""
}

// SyncIndex re-derives slug's index entry (name, updated_at, thumbnail)
// from the authoritative config document, loading it when cfg is nil.
// A missing entry is created — self-healing for directories that exist
// on disk but were never indexed. An empty thumbnail in the config
// removes the field from the entry instead of leaving a stale value.
func (r *Registry) SyncIndex(slug string, cfg *Config) error {
	idx := r.store.LoadIndex()
	var meta Meta
	if cfg != nil {
		meta = cfg.Meta
	} else {
		meta = r.store.LoadConfig(slug).Meta
	}

	found := false
	for i := range idx.Invitations {
		e := &idx.Invitations[i]
		if e.Slug != slug {
			continue
		}
		if meta.Name != "" {
			e.Name = meta.Name
		}
		if meta.UpdatedAt != "" {
			e.UpdatedAt = meta.UpdatedAt
		}
		e.Thumbnail = meta.Thumbnail
		found = true
		break
	}
	if !found {
		entry := IndexEntry{
			Slug:      slug,
			Name:      meta.Name,
			CreatedAt: meta.CreatedAt,
			UpdatedAt: meta.UpdatedAt,
			Thumbnail: meta.Thumbnail,
		}
		if entry.Name == "" {
			entry.Name = slug
		}
		if entry.CreatedAt == "" {
			entry.CreatedAt = nowStamp()
		}
		if entry.UpdatedAt == "" {
			entry.UpdatedAt = entry.CreatedAt
		}
		idx.Invitations = append(idx.Invitations, entry)
	}
	return r.store.SaveIndex(idx)
}

// UpdateName changes the invitation's display name and bumps
// meta.updated_at, then re-syncs the index entry.
func (r *Registry) UpdateName(slug, name string) (Config, error) {
	if !r.store.Exists(slug) {
		return Config{}, ErrNotFound
	}
	cfg := r.store.LoadConfig(slug)
	if name != "" {
		cfg.Meta.Name = name
	}
	cfg.Meta.UpdatedAt = nowStamp()
	if err := r.store.SaveConfig(slug, cfg); err != nil {
		return Config{}, err
	}
	if err := r.SyncIndex(slug, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EnsureDefault lazily migrates a legacy single-tenant deployment. When
// the index has zero entries it creates one invitation under the fixed
// "default" slug, seeded from the legacy config document when present,
// then best-effort copies the legacy flat asset directories into the
// new tree (existing destination files are skipped, never overwritten).
// Once any invitation exists this is a no-op.
func (r *Registry) EnsureDefault() error {
	idx := r.store.LoadIndex()
	if len(idx.Invitations) > 0 {
		return nil
	}

	legacy, ok := r.loadLegacyConfig()
	name := legacy.Meta.Name
	if name == "" {
		groom := legacy.WeddingInfo.GroomName
		if groom == "" {
			groom = "Groom"
		}
		bride := legacy.WeddingInfo.BrideName
		if bride == "" {
			bride = "Bride"
		}
		name = groom + " ♥ " + bride
	}

	opts := CreateOptions{
		Name:        name,
		Slug:        DefaultSlugName,
		MakeDefault: true,
	}
	if ok {
		opts.SourceConfig = &legacy
	}
	created, err := r.Create(opts)
	if err != nil {
		return err
	}

	// Legacy flat asset layout. Copy failures are not fatal; the
	// invitation stays valid with whatever media made it across.
	for src, dst := range map[string]string{
		filepath.Join(r.legacyDir, "assets", "images"):            created.Dirs.Images,
		filepath.Join(r.legacyDir, "assets", "images", "gallery"): created.Dirs.Gallery,
		filepath.Join(r.legacyDir, "assets", "videos"):            created.Dirs.Videos,
		filepath.Join(r.legacyDir, "assets", "audio"):             created.Dirs.Audio,
	} {
		copyTree(src, dst, true)
	}

	// The legacy deployment kept one flat guestbook file next to the
	// binary. Move a copy into the migrated invitation so old entries
	// survive.
	legacyGuestbook := filepath.Join(r.legacyDir, "guestbook.json")
	target := filepath.Join(r.store.BasePath(created.Slug), "guestbook.json")
	if _, err := os.Stat(legacyGuestbook); err == nil {
		if err := copyFile(legacyGuestbook, target); err != nil {
			log.Printf("copy legacy guestbook: %v", err)
		}
	}
	return nil
}

// loadLegacyConfig reads the pre-multi-tenant config.json. The second
// return is false when the file is missing or unreadable, so callers
// can fall back to the default document.
func (r *Registry) loadLegacyConfig() (Config, bool) {
	data, err := os.ReadFile(filepath.Join(r.legacyDir, configFile))
	if err != nil {
		return Config{}, false
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, false
	}
	return cfg, true
}
