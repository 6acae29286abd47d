package invitengine

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
)

const (
	indexFile    = "index.json"
	configFile   = "config.json"
	templateFile = "template.html"
)

// Store is the file-backed storage layer for invitations: one index
// document at the root plus a directory per slug holding the config,
// logs, an optional template override, and the asset tree.
//
// The index follows a load-modify-save pattern with no locking. Two
// concurrent writers can lose an update; the deployment model is a
// single admin process handling one request at a time.
type Store struct {
	root string
}

// NewStore ensures the invitations root directory exists and returns a
// store rooted there.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create invitations root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the invitations root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) indexPath() string { return filepath.Join(s.root, indexFile) }

// BasePath returns the directory owned by slug.
func (s *Store) BasePath(slug string) string { return filepath.Join(s.root, slug) }

// ConfigPath returns the path of slug's config document.
func (s *Store) ConfigPath(slug string) string {
	return filepath.Join(s.root, slug, configFile)
}

// TemplatePath returns the path of slug's custom template override.
// The file may or may not exist.
func (s *Store) TemplatePath(slug string) string {
	return filepath.Join(s.root, slug, templateFile)
}

// AssetsPath returns the root of slug's asset tree.
func (s *Store) AssetsPath(slug string) string {
	return filepath.Join(s.root, slug, "assets")
}

// Dirs holds the provisioned directory tree for one invitation.
type Dirs struct {
	Base    string
	Assets  string
	Images  string
	Gallery string
	Videos  string
	Audio   string
}

// EnsureDirs creates any missing directory in slug's tree. Idempotent;
// never deletes or truncates existing content.
func (s *Store) EnsureDirs(slug string) (Dirs, error) {
	d := Dirs{Base: s.BasePath(slug)}
	d.Assets = filepath.Join(d.Base, "assets")
	d.Images = filepath.Join(d.Assets, "images")
	d.Gallery = filepath.Join(d.Images, "gallery")
	d.Videos = filepath.Join(d.Assets, "videos")
	d.Audio = filepath.Join(d.Assets, "audio")

	for _, dir := range []string{d.Gallery, d.Videos, d.Audio} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Dirs{}, fmt.Errorf("provision %s: %w", dir, err)
		}
	}
	return d, nil
}

// Exists reports whether slug names a known invitation. The config
// document is the authority: an entry without one is treated as absent.
func (s *Store) Exists(slug string) bool {
	if slug == "" {
		return false
	}
	_, err := os.Stat(s.ConfigPath(slug))
	return err == nil
}

// LoadIndex reads the index document. A missing or corrupt file yields
// a fresh empty index — corruption means "no index yet", never an error.
func (s *Store) LoadIndex() Index {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		return Index{}
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}
	}
	return idx
}

// SaveIndex overwrites the whole index document. Last writer wins.
func (s *Store) SaveIndex(idx Index) error {
	if idx.Invitations == nil {
		idx.Invitations = []IndexEntry{}
	}
	data, err := json.MarshalIndent(idx, "", "    ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := os.WriteFile(s.indexPath(), data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// ListInvitations returns the index entries deduplicated by slug (last
// occurrence wins) and sorted by creation time ascending.
func (s *Store) ListInvitations() []IndexEntry {
	idx := s.LoadIndex()
	unique := make(map[string]IndexEntry)
	for _, e := range idx.Invitations {
		if e.Slug != "" {
			unique[e.Slug] = e
		}
	}
	entries := make([]IndexEntry, 0, len(unique))
	for _, e := range unique {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt < entries[j].CreatedAt
	})
	return entries
}

// LoadConfig reads slug's config document. Missing or corrupt storage
// yields a zero-value document; callers fill defaults for absent keys.
func (s *Store) LoadConfig(slug string) Config {
	data, err := os.ReadFile(s.ConfigPath(slug))
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// SaveConfig provisions slug's directory tree and overwrites its config
// document.
func (s *Store) SaveConfig(slug string, cfg Config) error {
	if _, err := s.EnsureDirs(slug); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(s.ConfigPath(slug), data, 0o644); err != nil {
		return fmt.Errorf("write config for %s: %w", slug, err)
	}
	return nil
}

// Move renames oldSlug's entire directory to newSlug's path.
func (s *Store) Move(oldSlug, newSlug string) error {
	return os.Rename(s.BasePath(oldSlug), s.BasePath(newSlug))
}

// Remove deletes slug's entire directory subtree. Best-effort: a
// missing subtree is not an error.
func (s *Store) Remove(slug string) {
	if err := os.RemoveAll(s.BasePath(slug)); err != nil {
		log.Printf("remove invitation %s: %v", slug, err)
	}
}

// CopyAssets recursively copies fromSlug's asset tree into toSlug's,
// preserving relative paths and file modtimes. Individual file copy
// failures are logged and skipped; they never fail the caller.
func (s *Store) CopyAssets(fromSlug, toSlug string) {
	copyTree(s.AssetsPath(fromSlug), s.AssetsPath(toSlug), false)
}

// copyTree copies every file under src into dst. Destination
// directories are always created; per-file errors abort only that
// file. With skipExisting set, files already present in dst are left
// untouched (the legacy-migration contract).
func copyTree(src, dst string, skipExisting bool) {
	if _, err := os.Stat(src); err != nil {
		return
	}
	err := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Printf("copy assets: walk %s: %v", path, err)
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return nil
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", target, err)
			}
			return nil
		}
		if skipExisting {
			if _, err := os.Stat(target); err == nil {
				return nil
			}
		}
		if err := copyFile(path, target); err != nil {
			log.Printf("copy assets: %s: %v", rel, err)
		}
		return nil
	})
	if err != nil {
		log.Printf("copy assets %s -> %s: %v", src, dst, err)
	}
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// carry the source modtime across, like a metadata-preserving copy
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
