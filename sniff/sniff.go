// Package sniff classifies image data by its leading magic bytes.
package sniff

import (
	"bytes"
	"net/http"
)

// Format tags returned by Detect.  They match the core.Format values so the
// result can be cast directly.
const (
	Undefined = "undefined"
	JPEG      = "jpeg"
	PNG       = "png"
	GIF       = "gif"
	TIFF      = "tiff"
	WebP      = "webp"
	HEIC      = "heic"
	PDF       = "pdf"
	SVG       = "svg"
	BMP       = "bmp"
)

// ftyp brands that identify HEIF/HEIC containers.
var heicBrands = [][]byte{
	[]byte("heic"), []byte("heix"), []byte("hevc"), []byte("hevx"),
	[]byte("mif1"), []byte("msf1"),
}

// svgProbeLimit bounds how far Detect looks for an <svg root element, keeping
// classification O(1) in buffer size.
const svgProbeLimit = 256

// Detect classifies data by its header magic.  It is total: any input,
// including nil or truncated data, yields a tag or Undefined.  Only the
// minimal leading bytes are examined.
func Detect(data []byte) string {
	if len(data) < 2 {
		return Undefined
	}
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return JPEG
	case len(data) >= 4 && data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G':
		return PNG
	case len(data) >= 4 && bytes.HasPrefix(data, []byte("GIF8")):
		return GIF
	case len(data) >= 4 && (bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*"))):
		return TIFF
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return WebP
	case isHEIC(data):
		return HEIC
	case bytes.HasPrefix(data, []byte("%PDF")):
		return PDF
	case data[0] == 'B' && data[1] == 'M':
		return BMP
	case isSVG(data):
		return SVG
	}
	// Fallback to net/http sniffing for variants the table misses.
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return JPEG
	case "image/png":
		return PNG
	case "image/gif":
		return GIF
	case "image/webp":
		return WebP
	case "image/bmp":
		return BMP
	}
	return Undefined
}

// isHEIC matches the ISO BMFF ftyp box with a HEIF brand.
func isHEIC(data []byte) bool {
	if len(data) < 12 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return false
	}
	brand := data[8:12]
	for _, b := range heicBrands {
		if bytes.Equal(brand, b) {
			return true
		}
	}
	return false
}

// isSVG looks for an <svg root element in the leading bytes, tolerating an
// XML declaration, comments, and a UTF-8 BOM.
func isSVG(data []byte) bool {
	probe := data
	if len(probe) > svgProbeLimit {
		probe = probe[:svgProbeLimit]
	}
	probe = bytes.TrimPrefix(probe, []byte{0xEF, 0xBB, 0xBF})
	if len(probe) == 0 || probe[0] != '<' {
		return false
	}
	return bytes.Contains(probe, []byte("<svg"))
}
