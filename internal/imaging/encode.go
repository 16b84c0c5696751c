package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality is used when no quality is requested.
const DefaultJPEGQuality = 90

// EncodedImage contains an encoded raster.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Mode        string `json:"mode"`
	Format      string `json:"encoded_format"`
	MimeType    string `json:"mime_type"`
	SizeBytes   int    `json:"size_bytes"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

// encoderFormat maps a format name to an encoder and the name actually
// written. WEBP has no encoder here and falls back to PNG.
func encoderFormat(name string) (imaging.Format, string, error) {
	switch strings.ToUpper(name) {
	case "JPEG", "JPG":
		return imaging.JPEG, "JPEG", nil
	case "PNG", "WEBP":
		return imaging.PNG, "PNG", nil
	case "GIF":
		return imaging.GIF, "GIF", nil
	case "TIFF", "TIF":
		return imaging.TIFF, "TIFF", nil
	case "BMP":
		return imaging.BMP, "BMP", nil
	}
	return 0, "", fmt.Errorf("unsupported output format: %q", name)
}

// MimeType returns the MIME type for a format name, or
// "application/octet-stream" when unknown.
func MimeType(format string) string {
	switch strings.ToUpper(format) {
	case "JPEG", "JPG":
		return "image/jpeg"
	case "PNG":
		return "image/png"
	case "GIF":
		return "image/gif"
	case "TIFF", "TIF":
		return "image/tiff"
	case "BMP":
		return "image/bmp"
	case "WEBP":
		return "image/webp"
	}
	return "application/octet-stream"
}

// Encode writes r to w in the named format and returns the format actually
// written. Quality applies to JPEG only; values outside 1-100 select
// DefaultJPEGQuality. JPEG output drops the alpha channel first.
func Encode(w io.Writer, r Raster, format string, quality int) (string, error) {
	f, written, err := encoderFormat(format)
	if err != nil {
		return "", err
	}

	img := r.Image
	var opts []imaging.EncodeOption
	if f == imaging.JPEG {
		if quality < 1 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		if r.Mode != ModeL {
			img = r.Convert(ModeRGB).Image
		}
		opts = append(opts, imaging.JPEGQuality(quality))
	}

	if err := imaging.Encode(w, img, f, opts...); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return written, nil
}

// EncodeBase64 encodes r and returns the bytes as base64 with metadata.
func EncodeBase64(r Raster, format string, quality int) (*EncodedImage, error) {
	var buf bytes.Buffer
	written, err := Encode(&buf, r, format, quality)
	if err != nil {
		return nil, err
	}

	return &EncodedImage{
		Width:       r.Width(),
		Height:      r.Height(),
		Mode:        string(r.Mode),
		Format:      written,
		MimeType:    MimeType(written),
		SizeBytes:   buf.Len(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}
