package invitengine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRegistry(t *testing.T) *Registry {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "invitations"))
	require.NoError(t, err)
	return NewRegistry(store, t.TempDir())
}

func TestCreateFromName(t *testing.T) {
	r := setupTestRegistry(t)

	created, err := r.Create(CreateOptions{Name: "John & Jane's Wedding"})
	require.NoError(t, err)
	assert.Equal(t, "john-janes-wedding", created.Slug)
	assert.Equal(t, "John & Jane's Wedding", created.Config.Meta.Name)
	assert.Equal(t, created.Slug, created.Config.Meta.Slug)
	assert.NotEmpty(t, created.Config.Meta.CreatedAt)

	assert.True(t, r.Exists(created.Slug))
	assert.Equal(t, created.Slug, r.DefaultSlug(), "first invitation becomes the default")

	entries := r.List()
	require.Len(t, entries, 1)
	assert.Equal(t, created.Slug, entries[0].Slug)
}

func TestCreateEmptyName(t *testing.T) {
	r := setupTestRegistry(t)

	created, err := r.Create(CreateOptions{Name: "   "})
	require.NoError(t, err)
	assert.Equal(t, DefaultInvitationName, created.Config.Meta.Name)
	assert.Equal(t, "new-invitation", created.Slug)
}

func TestCreateUniqueSuffix(t *testing.T) {
	r := setupTestRegistry(t)

	first, err := r.Create(CreateOptions{Name: "Test"})
	require.NoError(t, err)
	second, err := r.Create(CreateOptions{Name: "Test"})
	require.NoError(t, err)
	third, err := r.Create(CreateOptions{Name: "Test"})
	require.NoError(t, err)

	assert.Equal(t, "test", first.Slug)
	assert.Equal(t, "test-2", second.Slug)
	assert.Equal(t, "test-3", third.Slug)
}

func TestCreateReservedSlug(t *testing.T) {
	r := setupTestRegistry(t)

	created, err := r.Create(CreateOptions{Name: "Admin"})
	require.NoError(t, err)
	assert.Equal(t, "admin-inv", created.Slug, "reserved words are suffixed, never served")

	created, err = r.Create(CreateOptions{Name: "Guestbook", Slug: "guestbook"})
	require.NoError(t, err)
	assert.Equal(t, "guestbook-inv", created.Slug)
}

func TestCreateExplicitSlugNormalized(t *testing.T) {
	r := setupTestRegistry(t)

	created, err := r.Create(CreateOptions{Name: "Spring", Slug: "My Slug!"})
	require.NoError(t, err)
	assert.Equal(t, "my-slug", created.Slug, "explicit slugs are normalized, never stored raw")

	// a slug with no usable characters falls back to the name
	created, err = r.Create(CreateOptions{Name: "Fallback", Slug: "♥♥"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", created.Slug)
}

func TestDuplicate(t *testing.T) {
	r := setupTestRegistry(t)

	src, err := r.Create(CreateOptions{Name: "Original"})
	require.NoError(t, err)

	// give the source an asset so the tree copy is observable
	assetPath := filepath.Join(src.Dirs.Images, "photo.jpg")
	require.NoError(t, os.WriteFile(assetPath, []byte("jpeg"), 0o644))

	cfg := r.Store().LoadConfig(src.Slug)
	cfg.GalleryImages = append(cfg.GalleryImages, GalleryImage{Path: "assets/images/gallery/a.jpg", Size: "small", Type: "image"})
	require.NoError(t, r.Store().SaveConfig(src.Slug, cfg))

	dup, err := r.Duplicate(src.Slug, "")
	require.NoError(t, err)
	assert.Equal(t, "Original (copy)", dup.Config.Meta.Name)
	assert.NotEqual(t, src.Slug, dup.Slug)
	assert.FileExists(t, filepath.Join(dup.Dirs.Images, "photo.jpg"))

	// mutating the copy must not leak into the source
	dupCfg := r.Store().LoadConfig(dup.Slug)
	dupCfg.GalleryImages[0].Path = "assets/images/gallery/changed.jpg"
	require.NoError(t, r.Store().SaveConfig(dup.Slug, dupCfg))

	srcCfg := r.Store().LoadConfig(src.Slug)
	assert.Equal(t, "assets/images/gallery/a.jpg", srcCfg.GalleryImages[0].Path)
}

func TestDuplicateUnknown(t *testing.T) {
	r := setupTestRegistry(t)
	_, err := r.Duplicate("missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenameSlug(t *testing.T) {
	r := setupTestRegistry(t)

	created, err := r.Create(CreateOptions{Name: "Spring"})
	require.NoError(t, err)

	renamed, err := r.RenameSlug(created.Slug, "Summer Party")
	require.NoError(t, err)
	assert.Equal(t, "summer-party", renamed)

	// directory, index, default pointer and config stay coherent
	assert.False(t, r.Exists(created.Slug))
	assert.True(t, r.Exists(renamed))
	assert.Equal(t, renamed, r.DefaultSlug())

	cfg := r.Store().LoadConfig(renamed)
	assert.Equal(t, renamed, cfg.Meta.Slug)

	entries := r.List()
	require.Len(t, entries, 1)
	assert.Equal(t, renamed, entries[0].Slug)
}

func TestRenameSlugNoOp(t *testing.T) {
	r := setupTestRegistry(t)

	created, err := r.Create(CreateOptions{Name: "Keep"})
	require.NoError(t, err)

	renamed, err := r.RenameSlug(created.Slug, created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.Slug, renamed)
}

func TestRenameSlugValidation(t *testing.T) {
	r := setupTestRegistry(t)

	a, err := r.Create(CreateOptions{Name: "A"})
	require.NoError(t, err)
	b, err := r.Create(CreateOptions{Name: "B"})
	require.NoError(t, err)

	var ve *ValidationError

	_, err = r.RenameSlug("missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.RenameSlug(a.Slug, "")
	assert.ErrorAs(t, err, &ve)

	_, err = r.RenameSlug(a.Slug, "♥♥")
	assert.ErrorAs(t, err, &ve)

	_, err = r.RenameSlug(a.Slug, "admin")
	assert.ErrorAs(t, err, &ve)

	_, err = r.RenameSlug(a.Slug, b.Slug)
	assert.ErrorAs(t, err, &ve)

	// failed renames leave everything in place
	assert.True(t, r.Exists(a.Slug))
	assert.True(t, r.Exists(b.Slug))
}

func TestDeleteRepointsDefault(t *testing.T) {
	r := setupTestRegistry(t)

	a, err := r.Create(CreateOptions{Name: "A"})
	require.NoError(t, err)
	b, err := r.Create(CreateOptions{Name: "B"})
	require.NoError(t, err)
	require.Equal(t, a.Slug, r.DefaultSlug())

	idx, err := r.Delete(a.Slug)
	require.NoError(t, err)
	assert.Equal(t, b.Slug, idx.DefaultSlug, "default must never dangle")
	assert.False(t, r.Exists(a.Slug))
	assert.NoDirExists(t, r.Store().BasePath(a.Slug))
}

func TestDeleteLastInvitation(t *testing.T) {
	r := setupTestRegistry(t)

	only, err := r.Create(CreateOptions{Name: "Only"})
	require.NoError(t, err)

	var ve *ValidationError
	_, err = r.Delete(only.Slug)
	assert.ErrorAs(t, err, &ve)
	assert.True(t, r.Exists(only.Slug))
}

func TestDeleteUnknown(t *testing.T) {
	r := setupTestRegistry(t)
	_, err := r.Delete("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetDefault(t *testing.T) {
	r := setupTestRegistry(t)

	_, err := r.Create(CreateOptions{Name: "A"})
	require.NoError(t, err)
	b, err := r.Create(CreateOptions{Name: "B"})
	require.NoError(t, err)

	idx, err := r.SetDefault(b.Slug)
	require.NoError(t, err)
	assert.Equal(t, b.Slug, idx.DefaultSlug)

	_, err = r.SetDefault("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSyncIndexCreatesMissingEntry(t *testing.T) {
	r := setupTestRegistry(t)

	_, err := r.Create(CreateOptions{Name: "Indexed"})
	require.NoError(t, err)

	// a directory written behind the registry's back
	require.NoError(t, r.Store().SaveConfig("stray", DefaultConfig("Stray", "stray")))

	require.NoError(t, r.SyncIndex("stray", nil))

	entries := r.List()
	require.Len(t, entries, 2)
	var found bool
	for _, e := range entries {
		if e.Slug == "stray" {
			found = true
			assert.Equal(t, "Stray", e.Name)
			assert.NotEmpty(t, e.CreatedAt)
		}
	}
	assert.True(t, found, "SyncIndex should self-heal missing entries")
}

func TestSyncIndexThumbnail(t *testing.T) {
	r := setupTestRegistry(t)

	created, err := r.Create(CreateOptions{Name: "Thumb"})
	require.NoError(t, err)

	cfg := r.Store().LoadConfig(created.Slug)
	cfg.Meta.Thumbnail = "assets/images/thumb.jpg"
	require.NoError(t, r.SyncIndex(created.Slug, &cfg))
	assert.Equal(t, "assets/images/thumb.jpg", r.List()[0].Thumbnail)

	// clearing the thumbnail must clear the index too
	cfg.Meta.Thumbnail = ""
	require.NoError(t, r.SyncIndex(created.Slug, &cfg))
	assert.Empty(t, r.List()[0].Thumbnail)
}

func TestUpdateName(t *testing.T) {
	r := setupTestRegistry(t)

	created, err := r.Create(CreateOptions{Name: "Before"})
	require.NoError(t, err)

	cfg, err := r.UpdateName(created.Slug, "After")
	require.NoError(t, err)
	assert.Equal(t, "After", cfg.Meta.Name)
	assert.Equal(t, "After", r.List()[0].Name)

	_, err = r.UpdateName("missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureDefaultMigratesLegacy(t *testing.T) {
	legacyDir := t.TempDir()

	legacy := DefaultConfig("", "")
	legacy.Meta.Name = ""
	legacy.WeddingInfo.GroomName = "Minsu"
	legacy.WeddingInfo.BrideName = "Jiyoung"
	writeJSON(t, filepath.Join(legacyDir, "config.json"), legacy)

	imgDir := filepath.Join(legacyDir, "assets", "images")
	require.NoError(t, os.MkdirAll(imgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(imgDir, "main.jpg"), []byte("jpeg"), 0o644))

	store, err := NewStore(filepath.Join(t.TempDir(), "invitations"))
	require.NoError(t, err)
	r := NewRegistry(store, legacyDir)

	require.NoError(t, r.EnsureDefault())

	assert.Equal(t, DefaultSlugName, r.DefaultSlug())
	assert.True(t, r.Exists(DefaultSlugName))

	cfg := store.LoadConfig(DefaultSlugName)
	assert.Equal(t, "Minsu ♥ Jiyoung", cfg.Meta.Name)
	assert.Equal(t, "Minsu", cfg.WeddingInfo.GroomName)
	assert.FileExists(t, filepath.Join(store.AssetsPath(DefaultSlugName), "images", "main.jpg"))

	// idempotent: a second run must not create another invitation
	require.NoError(t, r.EnsureDefault())
	assert.Len(t, r.List(), 1)
}

func TestEnsureDefaultWithoutLegacy(t *testing.T) {
	r := setupTestRegistry(t)

	require.NoError(t, r.EnsureDefault())
	assert.True(t, r.Exists(DefaultSlugName))

	cfg := r.Store().LoadConfig(DefaultSlugName)
	assert.Equal(t, "Groom ♥ Bride", cfg.Meta.Name)
}

func TestEnsureDefaultSkipsWhenPopulated(t *testing.T) {
	r := setupTestRegistry(t)

	created, err := r.Create(CreateOptions{Name: "Existing"})
	require.NoError(t, err)

	require.NoError(t, r.EnsureDefault())
	assert.Len(t, r.List(), 1)
	assert.Equal(t, created.Slug, r.DefaultSlug())
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "    ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
