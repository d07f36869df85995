package services

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/models"
)

const (
	// MaxFileSize caps uploads at 10MB, matching the backend's limit.
	MaxFileSize = 10 << 20

	// MaxImageWidth and MaxImageHeight bound stored photos. Larger
	// images get downscaled before storage so the backend never pays
	// for pixels the models throw away.
	MaxImageWidth  = 1024
	MaxImageHeight = 1024

	jpegQuality = 85
)

// extensionList keeps a fixed order for error messages.
var extensionList = []string{"png", "jpg", "jpeg", "gif", "bmp"}

var allowedExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "bmp": true,
}

var allowedMimeTypes = map[string]bool{
	"image/png": true, "image/jpeg": true, "image/jpg": true,
	"image/gif": true, "image/bmp": true,
}

// Photo is a validated upload ready for storage.
type Photo struct {
	Data         []byte
	OriginalName string
	StoredName   string
	ContentType  string
	Width        int
	Height       int
}

// PhotoService validates and prepares uploaded outfit photos.
type PhotoService struct {
	MaxFileSize int64
	MaxWidth    int
	MaxHeight   int
}

func NewPhotoService() *PhotoService {
	return &PhotoService{
		MaxFileSize: MaxFileSize,
		MaxWidth:    MaxImageWidth,
		MaxHeight:   MaxImageHeight,
	}
}

// Process validates the upload and downscales it when oversized.
// Validation failures come back as *models.FileError so handlers can
// show the reason on the upload form.
func (ps *PhotoService) Process(content []byte, filename, contentType string) (*Photo, error) {
	if err := ps.validate(content, filename, contentType); err != nil {
		return nil, err
	}

	// Decoding doubles as the image integrity check
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, &models.FileError{Issue: fmt.Sprintf("Invalid image file: %v", err)}
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width > ps.MaxWidth || height > ps.MaxHeight {
		content, width, height, err = ps.downscale(img, width, height)
		if err != nil {
			return nil, fmt.Errorf("failed to optimize image: %w", err)
		}
		contentType = "image/jpeg"
	}

	return &Photo{
		Data:         content,
		OriginalName: filename,
		StoredName:   StoredName(filename, time.Now()),
		ContentType:  contentType,
		Width:        width,
		Height:       height,
	}, nil
}

func (ps *PhotoService) validate(content []byte, filename, contentType string) error {
	if int64(len(content)) > ps.MaxFileSize {
		sizeMB := float64(len(content)) / (1 << 20)
		maxMB := ps.MaxFileSize / (1 << 20)
		return &models.FileError{Issue: fmt.Sprintf("File too large: %.1fMB. Maximum allowed: %dMB", sizeMB, maxMB)}
	}

	if filename == "" {
		return &models.FileError{Issue: "No filename provided"}
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if !allowedExtensions[ext] {
		return &models.FileError{Issue: fmt.Sprintf("Invalid file type: .%s. Allowed: %s", ext, strings.Join(extensionList, ", "))}
	}

	if !allowedMimeTypes[contentType] {
		return &models.FileError{Issue: fmt.Sprintf("Invalid content type: %s. Allowed: image/png, image/jpeg, image/jpg, image/gif, image/bmp", contentType)}
	}

	return nil
}

// downscale resizes to fit within the bounds, keeping aspect ratio,
// and re-encodes as JPEG.
func (ps *PhotoService) downscale(img image.Image, width, height int) ([]byte, int, int, error) {
	widthRatio := float64(ps.MaxWidth) / float64(width)
	heightRatio := float64(ps.MaxHeight) / float64(height)
	scale := widthRatio
	if heightRatio < scale {
		scale = heightRatio
	}

	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode resized image: %w", err)
	}

	return buf.Bytes(), newWidth, newHeight, nil
}

// StoredName builds the unique storage name for an upload, keeping the
// original extension: 20250601_143022_1a2b3c4d.jpg
func StoredName(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	id := uuid.New().String()[:8]
	return fmt.Sprintf("%s_%s%s", now.Format("20060102_150405"), id, ext)
}
