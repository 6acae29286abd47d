package invitengine

import (
	"strings"
	"testing"
)

func TestUploadFilename(t *testing.T) {
	got := uploadFilename("My Photo (1).JPG")
	if !strings.HasSuffix(got, "_my-photo-1.jpg") {
		t.Errorf("uploadFilename = %q, want timestamped slug with .jpg", got)
	}
	if strings.ContainsAny(got, " ()") {
		t.Errorf("uploadFilename = %q contains unsafe characters", got)
	}

	got = uploadFilename("♥♥.png")
	if !strings.HasSuffix(got, "_upload.png") {
		t.Errorf("uploadFilename fallback = %q, want _upload.png suffix", got)
	}
}

func TestIsAllowedUpload(t *testing.T) {
	allowed := []string{"a.jpg", "b.PNG", "c.webp", "d.mp4", "e.mov", "f.mp3", "g.m4a", "h.gif", "i.svg"}
	for _, name := range allowed {
		if !isAllowedUpload(name) {
			t.Errorf("isAllowedUpload(%q) = false, want true", name)
		}
	}
	blocked := []string{"x.exe", "y.html", "z.php", "noext", "w.js"}
	for _, name := range blocked {
		if isAllowedUpload(name) {
			t.Errorf("isAllowedUpload(%q) = true, want false", name)
		}
	}
}

func TestUploadKindClassification(t *testing.T) {
	if !isVideoUpload("clip.MP4") {
		t.Error("mp4 should classify as video")
	}
	if isVideoUpload("still.jpg") {
		t.Error("jpg should not classify as video")
	}
	if !isAudioUpload("song.mp3") {
		t.Error("mp3 should classify as audio")
	}
	if isAudioUpload("clip.webm") {
		t.Error("webm should classify as video, not audio")
	}
}
