package service

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/noah-isme/gema-proof-api/pkg/ai"
)

const htmlSniffLength = 20

type fileFormat struct {
	Name      string
	MediaType string
	Kind      ai.ContentKind
}

var (
	formatPDF  = fileFormat{Name: "PDF", MediaType: "application/pdf", Kind: ai.ContentKindDocument}
	formatPNG  = fileFormat{Name: "PNG", MediaType: "image/png", Kind: ai.ContentKindImage}
	formatJPEG = fileFormat{Name: "JPEG", MediaType: "image/jpeg", Kind: ai.ContentKindImage}
	formatWEBP = fileFormat{Name: "WEBP", MediaType: "image/webp", Kind: ai.ContentKindImage}
	formatGIF  = fileFormat{Name: "GIF", MediaType: "image/gif", Kind: ai.ContentKindImage}
)

var allowedExtensions = map[string]fileFormat{
	"pdf":  formatPDF,
	"png":  formatPNG,
	"jpg":  formatJPEG,
	"jpeg": formatJPEG,
	"webp": formatWEBP,
	"gif":  formatGIF,
}

const allowedExtensionList = "pdf, png, jpg, jpeg, webp, gif"

// fileExtension returns the lowercase extension of a storage path without the dot.
func fileExtension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// formatForPath resolves the declared format from the path extension.
func formatForPath(path string) (fileFormat, string, error) {
	ext := fileExtension(path)
	format, ok := allowedExtensions[ext]
	if !ok {
		shown := "(none)"
		if ext != "" {
			shown = "." + ext
		}
		return fileFormat{}, ext, newFailure(ErrUnsupportedExtension, "Unsupported file type: %s. Allowed types: %s", shown, allowedExtensionList)
	}
	return format, ext, nil
}

// sniffFormat identifies the content from its leading magic bytes.
func sniffFormat(data []byte) (fileFormat, bool) {
	switch {
	case bytes.HasPrefix(data, []byte{0x25, 0x50, 0x44, 0x46}):
		return formatPDF, true
	case bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47}):
		return formatPNG, true
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return formatJPEG, true
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte{0x52, 0x49, 0x46, 0x46}) && bytes.Equal(data[8:12], []byte{0x57, 0x45, 0x42, 0x50}):
		return formatWEBP, true
	case bytes.HasPrefix(data, []byte{0x47, 0x49, 0x46}):
		return formatGIF, true
	default:
		return fileFormat{}, false
	}
}

// looksLikeHTML reports whether the first bytes read as markup starting with "<!".
func looksLikeHTML(data []byte) bool {
	head := data
	if len(head) > htmlSniffLength {
		head = head[:htmlSniffLength]
	}
	head = bytes.TrimPrefix(head, []byte{0xEF, 0xBB, 0xBF})
	head = bytes.TrimLeft(head, " \t\r\n")
	return bytes.HasPrefix(head, []byte("<!"))
}

// verifyContent checks that data really is the format declared by ext.
func verifyContent(ext string, expected fileFormat, data []byte) error {
	if looksLikeHTML(data) {
		return newFailure(ErrContentMismatch, "File appears to be an HTML page, not a real %s. Please convert it to PDF first and upload it again.", expected.Name)
	}

	actual, ok := sniffFormat(data)
	if !ok {
		return newFailure(ErrContentMismatch, "File content does not match its .%s extension: expected %s, got unknown or corrupted file (detected %s)", ext, expected.Name, mimetype.Detect(data).String())
	}
	if actual.Name != expected.Name {
		return newFailure(ErrContentMismatch, "File content does not match its .%s extension: expected %s, got %s", ext, expected.Name, actual.Name)
	}
	return nil
}
