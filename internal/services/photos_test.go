package services

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/models"
)

// testJPEG encodes a blank image of the given size.
func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to create test JPEG: %v", err)
	}
	return buf.Bytes()
}

func TestPhotoServiceProcess(t *testing.T) {
	ps := NewPhotoService()

	t.Run("small photo passes through untouched", func(t *testing.T) {
		data := testJPEG(t, 640, 480)

		photo, err := ps.Process(data, "outfit.jpg", "image/jpeg")
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if !bytes.Equal(photo.Data, data) {
			t.Errorf("small photo was re-encoded")
		}
		if photo.Width != 640 || photo.Height != 480 {
			t.Errorf("dimensions = %dx%d, want 640x480", photo.Width, photo.Height)
		}
		if photo.ContentType != "image/jpeg" {
			t.Errorf("ContentType = %q, want image/jpeg", photo.ContentType)
		}
		if photo.OriginalName != "outfit.jpg" {
			t.Errorf("OriginalName = %q, want outfit.jpg", photo.OriginalName)
		}
	})

	t.Run("oversized photo is downscaled to fit", func(t *testing.T) {
		data := testJPEG(t, 2048, 1024)

		photo, err := ps.Process(data, "big.jpg", "image/jpeg")
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if photo.Width != 1024 || photo.Height != 512 {
			t.Errorf("dimensions = %dx%d, want 1024x512", photo.Width, photo.Height)
		}
		if photo.ContentType != "image/jpeg" {
			t.Errorf("ContentType = %q, want image/jpeg", photo.ContentType)
		}

		resized, _, err := image.Decode(bytes.NewReader(photo.Data))
		if err != nil {
			t.Fatalf("resized photo does not decode: %v", err)
		}
		if got := resized.Bounds().Dx(); got != 1024 {
			t.Errorf("stored width = %d, want 1024", got)
		}
	})

	t.Run("rejections", func(t *testing.T) {
		valid := testJPEG(t, 10, 10)

		tests := []struct {
			name        string
			data        []byte
			filename    string
			contentType string
			wantIssue   string
		}{
			{
				name:        "unsupported extension",
				data:        valid,
				filename:    "notes.txt",
				contentType: "image/jpeg",
				wantIssue:   "Invalid file type",
			},
			{
				name:        "missing filename",
				data:        valid,
				filename:    "",
				contentType: "image/jpeg",
				wantIssue:   "No filename",
			},
			{
				name:        "unsupported content type",
				data:        valid,
				filename:    "photo.jpg",
				contentType: "application/pdf",
				wantIssue:   "Invalid content type",
			},
			{
				name:        "bytes that are not an image",
				data:        []byte("definitely not pixels"),
				filename:    "photo.jpg",
				contentType: "image/jpeg",
				wantIssue:   "Invalid image file",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := ps.Process(tt.data, tt.filename, tt.contentType)
				if err == nil {
					t.Fatalf("Process() error = nil, want FileError")
				}
				var fe *models.FileError
				if !errors.As(err, &fe) {
					t.Fatalf("error %T is not a FileError", err)
				}
				if !strings.Contains(fe.Issue, tt.wantIssue) {
					t.Errorf("Issue = %q, want it to mention %q", fe.Issue, tt.wantIssue)
				}
			})
		}
	})

	t.Run("size limit", func(t *testing.T) {
		small := &PhotoService{MaxFileSize: 64, MaxWidth: 1024, MaxHeight: 1024}
		_, err := small.Process(testJPEG(t, 10, 10), "photo.jpg", "image/jpeg")
		var fe *models.FileError
		if !errors.As(err, &fe) {
			t.Fatalf("error %T is not a FileError", err)
		}
		if !strings.Contains(fe.Issue, "File too large") {
			t.Errorf("Issue = %q, want a size complaint", fe.Issue)
		}
	})
}

func TestStoredName(t *testing.T) {
	now := time.Date(2025, 6, 1, 14, 30, 22, 0, time.UTC)

	name := StoredName("My Outfit.JPG", now)
	pattern := regexp.MustCompile(`^20250601_143022_[0-9a-f]{8}\.jpg$`)
	if !pattern.MatchString(name) {
		t.Errorf("StoredName() = %q, want match for %s", name, pattern)
	}

	if a, b := StoredName("a.png", now), StoredName("a.png", now); a == b {
		t.Errorf("two stored names collided: %q", a)
	}
}
