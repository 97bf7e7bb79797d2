// Package extraction turns uploaded file bytes into the text the semaphore rules read.
package extraction

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var binarySignatures = [][]byte{
	[]byte("%PDF"),
	{0x89, 0x50, 0x4e, 0x47},
	{0xff, 0xd8, 0xff},
	[]byte("II*\x00"),
	[]byte("MM\x00*"),
	[]byte("BM"),
}

// IsSupportedText reports whether body can be read directly as document text.
func IsSupportedText(body []byte) bool {
	if len(bytes.TrimSpace(body)) == 0 {
		return false
	}
	if !utf8.Valid(body) {
		return false
	}
	for _, sig := range binarySignatures {
		if bytes.HasPrefix(body, sig) {
			return false
		}
	}
	return !bytes.ContainsRune(body, 0)
}

// Text returns the readable text of an upload. Scanned formats need OCR, which runs
// outside this service, so they yield an empty string.
func Text(filename string, body []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".txt" && ext != "" {
		return ""
	}
	if !IsSupportedText(body) {
		return ""
	}
	return strings.TrimSpace(string(body))
}
