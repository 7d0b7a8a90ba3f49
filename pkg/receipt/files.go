// Package receipt holds file-level helpers shared by the upload handler and
// the batch ingest tool.
package receipt

import (
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// MaxStoredBytes is the byte budget for a stored receipt image.
const MaxStoredBytes = 1_000_000

// MIME mapping to avoid opening files repeatedly
var extMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// MimeFromExt returns the MIME type for a filename extension, or "" when a
// content sniff is needed.
func MimeFromExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if m, ok := extMime[ext]; ok {
		return m
	}
	return ""
}

// SniffContentType reads the first 512 bytes and returns the detected MIME type.
func SniffContentType(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n == 0 {
		return ""
	}
	return http.DetectContentType(buf[:n])
}

// IsSupportedExt reports whether the file looks like a receipt image or PDF.
func IsSupportedExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".pdf":
		return true
	}
	return false
}

// IsImageExt reports whether the file can be decoded for downscaling.
func IsImageExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}

// ShrinkToBudget downscales an image in place until it fits maxBytes.
// Non-images and undecodable files are left alone. The scale factor is
// estimated from sqrt(max/current) since size roughly scales with area.
func ShrinkToBudget(path string, maxBytes int64) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.Size() <= maxBytes || !IsImageExt(path) {
		return nil
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil // cannot decode, keep the original
	}
	scale := math.Sqrt(float64(maxBytes) / float64(fi.Size()))
	if scale > 0.95 {
		scale = 0.95
	}
	if scale < 0.1 { // avoid absurd downscale
		scale = 0.1
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	newW := int(math.Max(1, math.Round(float64(w)*scale)))
	newH := int(math.Max(1, math.Round(float64(h)*scale)))
	img = imaging.Resize(img, newW, newH, imaging.Lanczos)
	if err := imaging.Save(img, path); err != nil {
		return err
	}
	// If still over budget, one more uniform 80% pass
	if fi2, err2 := os.Stat(path); err2 == nil && fi2.Size() > maxBytes {
		if img2, errOpen := imaging.Open(path); errOpen == nil {
			img2 = imaging.Resize(img2, int(float64(img2.Bounds().Dx())*0.8), 0, imaging.Lanczos)
			_ = imaging.Save(img2, path)
		}
	}
	return nil
}

// MoveFile moves src to dst, attempting an atomic rename first and falling
// back to copy+remove across filesystems.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	_ = out.Close()
	return os.Remove(src)
}
