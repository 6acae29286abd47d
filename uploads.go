package invitengine

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
)

const (
	maxUploadSize     = 100 << 20 // videos push the limit up
	thumbnailMaxWidth = 800
	thumbnailQuality  = 80
)

var (
	imageExts = map[string]struct{}{".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {}, ".webp": {}}
	videoExts = map[string]struct{}{".mp4": {}, ".mov": {}, ".avi": {}, ".webm": {}}
	audioExts = map[string]struct{}{".mp3": {}, ".wav": {}, ".ogg": {}, ".m4a": {}, ".aac": {}}
)

func extOf(name string) string { return strings.ToLower(filepath.Ext(name)) }

func isAllowedUpload(name string) bool {
	ext := extOf(name)
	if _, ok := imageExts[ext]; ok {
		return true
	}
	if _, ok := videoExts[ext]; ok {
		return true
	}
	_, ok := audioExts[ext]
	return ok
}

func isVideoUpload(name string) bool {
	_, ok := videoExts[extOf(name)]
	return ok
}

func isAudioUpload(name string) bool {
	_, ok := audioExts[extOf(name)]
	return ok
}

// uploadFilename produces a safe on-disk name: slugified base plus the
// original extension, prefixed with a timestamp so repeat uploads never
// collide.
func uploadFilename(original string) string {
	ext := extOf(original)
	base := slugBase(strings.TrimSuffix(original, filepath.Ext(original)))
	if base == "" {
		base = "upload"
	}
	return time.Now().Format("20060102_150405_") + base + ext
}

// invitationFilePath maps a config-relative path back to the file it
// names inside slug's directory. External URLs map to nothing.
func (a *App) invitationFilePath(slug, relative string) string {
	if relative == "" {
		return ""
	}
	if strings.HasPrefix(relative, "http://") || strings.HasPrefix(relative, "https://") || strings.HasPrefix(relative, "//") {
		return ""
	}
	return filepath.Join(a.Store.BasePath(slug), filepath.Clean("/"+relative))
}

func uploadError(c echo.Context, format string, args ...any) error {
	return c.JSON(http.StatusOK, map[string]any{"success": false, "message": fmt.Sprintf(format, args...)})
}

// handleUpload receives one media file and files it under the slot
// named by the image_type form field. The file is written first; if the
// config update then fails the file is removed again so no orphan stays
// behind.
func (a *App) handleUpload(c echo.Context) error {
	if !IsAdmin(c) {
		return adminRequired(c)
	}
	slug := a.resolveSlug(c)
	if slug == "" || !a.Registry.Exists(slug) {
		return uploadError(c, "selected invitation not found")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return uploadError(c, "no file provided")
	}
	if file.Size > maxUploadSize {
		return uploadError(c, "file too large: max %dMB", maxUploadSize>>20)
	}
	if !isAllowedUpload(file.Filename) {
		return uploadError(c, "unsupported file type %s", extOf(file.Filename))
	}

	dirs, err := a.Store.EnsureDirs(slug)
	if err != nil {
		return err
	}

	slot := c.FormValue("image_type")
	filename := uploadFilename(file.Filename)
	isVideo := isVideoUpload(file.Filename)

	var dir, webPath string
	switch {
	case slot == "audio" || isAudioUpload(file.Filename):
		slot = "audio"
		dir, webPath = dirs.Audio, "assets/audio/"+filename
	case isVideo:
		dir, webPath = dirs.Videos, "assets/videos/"+filename
	case slot == "gallery":
		dir, webPath = dirs.Gallery, "assets/images/gallery/"+filename
	default:
		dir, webPath = dirs.Images, "assets/images/"+filename
	}
	target := filepath.Join(dir, filename)

	if slot == "thumbnail" && !isVideo {
		// thumbnails get downscaled and re-encoded; everything else is
		// stored as uploaded
		data, err := processThumbnail(file)
		if err != nil {
			return uploadError(c, "invalid image: %v", err)
		}
		filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jpg"
		webPath = "assets/images/" + filename
		target = filepath.Join(dirs.Images, filename)
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("write thumbnail: %w", err)
		}
	} else {
		if err := saveMultipartFile(file, target); err != nil {
			return fmt.Errorf("write upload: %w", err)
		}
	}

	cfg := a.Store.LoadConfig(slug)
	thumbnailSet := false
	switch slot {
	case "gallery":
		kind := "image"
		if isVideo {
			kind = "video"
		}
		cfg.GalleryImages = append(cfg.GalleryImages, GalleryImage{Path: webPath, Size: "small", Type: kind})
	case "audio":
		cfg.Audio.BackgroundMusic = webPath
	case "map":
		cfg.Map.Image = webPath
	case "thumbnail":
		a.removeThumbnailFile(slug, cfg.Meta.Thumbnail)
		cfg.Meta.Thumbnail = webPath
		thumbnailSet = true
	default:
		kind := "image"
		if isVideo {
			kind = "video"
		}
		switch slot {
		case "main":
			cfg.Images.MainPhoto, cfg.Images.MainPhotoType = webPath, kind
		case "invitation":
			cfg.Images.InvitationPhoto, cfg.Images.InvitationPhotoType = webPath, kind
		case "photobooth":
			cfg.Images.PhotoboothPhoto, cfg.Images.PhotoboothPhotoType = webPath, kind
		case "outro":
			cfg.Images.OutroPhoto, cfg.Images.OutroPhotoType = webPath, kind
		default:
			os.Remove(target)
			return uploadError(c, "unknown upload slot %q", slot)
		}
	}
	cfg.Meta.UpdatedAt = nowStamp()

	if err := a.Store.SaveConfig(slug, cfg); err != nil {
		// the file made it to disk but the config didn't — remove the
		// orphan so the tree stays consistent with the document
		os.Remove(target)
		return uploadError(c, "saving settings failed: %v", err)
	}
	if thumbnailSet {
		if err := a.Registry.SyncIndex(slug, &cfg); err != nil {
			return err
		}
	}
	a.Renderer.Invalidate(slug)

	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"filepath": webPath,
		"filename": filename,
		"slug":     slug,
		"type":     slot,
	})
}

func saveMultipartFile(file *multipart.FileHeader, target string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// processThumbnail decodes the upload, scales it down to
// thumbnailMaxWidth if wider, and re-encodes as JPEG.
func processThumbnail(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if w := bounds.Dx(); w > thumbnailMaxWidth {
		h := bounds.Dy() * thumbnailMaxWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, thumbnailMaxWidth, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// removeThumbnailFile deletes a replaced thumbnail from disk.
// Best-effort: a failure leaves a stray file, never a broken config.
func (a *App) removeThumbnailFile(slug, relative string) {
	path := a.invitationFilePath(slug, relative)
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("remove old thumbnail %s: %v", path, err)
	}
}

// handleDeleteGalleryItem removes one gallery tile by position, file
// included.
func (a *App) handleDeleteGalleryItem(c echo.Context) error {
	if !IsAdmin(c) {
		return adminRequired(c)
	}
	slug := a.resolveSlug(c)
	if slug == "" || !a.Registry.Exists(slug) {
		return uploadError(c, "selected invitation not found")
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return uploadError(c, "invalid gallery index")
	}

	cfg := a.Store.LoadConfig(slug)
	if index < 0 || index >= len(cfg.GalleryImages) {
		return uploadError(c, "invalid gallery index")
	}

	if path := a.invitationFilePath(slug, cfg.GalleryImages[index].Path); path != "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("remove gallery file %s: %v", path, err)
		}
	}
	cfg.GalleryImages = append(cfg.GalleryImages[:index], cfg.GalleryImages[index+1:]...)
	cfg.Meta.UpdatedAt = nowStamp()

	if err := a.Store.SaveConfig(slug, cfg); err != nil {
		return err
	}
	a.Renderer.Invalidate(slug)
	return c.JSON(http.StatusOK, map[string]any{"success": true, "gallery_images": cfg.GalleryImages})
}

// handleAudioSettings saves playback controls without touching the
// uploaded music file.
func (a *App) handleAudioSettings(c echo.Context) error {
	if !IsAdmin(c) {
		return adminRequired(c)
	}
	slug := a.resolveSlug(c)
	if slug == "" || !a.Registry.Exists(slug) {
		return uploadError(c, "selected invitation not found")
	}
	var req struct {
		Autoplay bool `json:"autoplay"`
		Loop     bool `json:"loop"`
		Volume   int  `json:"volume"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request body"})
	}
	if req.Volume < 0 || req.Volume > 100 {
		req.Volume = 50
	}

	cfg := a.Store.LoadConfig(slug)
	cfg.Audio.Autoplay = req.Autoplay
	cfg.Audio.Loop = req.Loop
	cfg.Audio.Volume = req.Volume
	cfg.Meta.UpdatedAt = nowStamp()

	if err := a.Store.SaveConfig(slug, cfg); err != nil {
		return err
	}
	a.Renderer.Invalidate(slug)
	return c.JSON(http.StatusOK, map[string]any{"success": true, "audio": cfg.Audio})
}

// handleThumbnailURL points the thumbnail at an external URL instead of
// an uploaded file.
func (a *App) handleThumbnailURL(c echo.Context) error {
	if !IsAdmin(c) {
		return adminRequired(c)
	}
	slug := a.resolveSlug(c)
	if slug == "" || !a.Registry.Exists(slug) {
		return uploadError(c, "selected invitation not found")
	}
	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request body"})
	}
	url := strings.TrimSpace(req.URL)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return uploadError(c, "thumbnail URL must be absolute")
	}

	cfg := a.Store.LoadConfig(slug)
	a.removeThumbnailFile(slug, cfg.Meta.Thumbnail)
	cfg.Meta.Thumbnail = url
	cfg.Meta.UpdatedAt = nowStamp()

	if err := a.Store.SaveConfig(slug, cfg); err != nil {
		return err
	}
	if err := a.Registry.SyncIndex(slug, &cfg); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "thumbnail": url})
}

// handleDeleteThumbnail clears the thumbnail and removes its index
// field so stale values never linger in the listing.
func (a *App) handleDeleteThumbnail(c echo.Context) error {
	if !IsAdmin(c) {
		return adminRequired(c)
	}
	slug := a.resolveSlug(c)
	if slug == "" || !a.Registry.Exists(slug) {
		return uploadError(c, "selected invitation not found")
	}

	cfg := a.Store.LoadConfig(slug)
	a.removeThumbnailFile(slug, cfg.Meta.Thumbnail)
	cfg.Meta.Thumbnail = ""
	cfg.Meta.UpdatedAt = nowStamp()

	if err := a.Store.SaveConfig(slug, cfg); err != nil {
		return err
	}
	if err := a.Registry.SyncIndex(slug, &cfg); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
