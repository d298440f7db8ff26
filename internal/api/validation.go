package api

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// --- Input Validation ---

// safeFilenameRegex allows alphanumeric, dots, hyphens, underscores, spaces, and parentheses.
var safeFilenameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._ ()-]{0,254}$`)

// idRegex matches the decimal ids the store assigns.
var idRegex = regexp.MustCompile(`^[1-9][0-9]{0,18}$`)

func validateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("fileName is required")
	}
	if strings.Contains(name, "..") || strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("fileName contains invalid characters")
	}
	if !safeFilenameRegex.MatchString(name) {
		return fmt.Errorf("fileName contains invalid characters; only alphanumeric, dots, hyphens, underscores, spaces, and parentheses allowed")
	}
	return nil
}

func validID(id string) bool {
	return idRegex.MatchString(id)
}

// cleanFilename strips any directory part a client may have sent.
func cleanFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	if name == "" {
		return ""
	}
	return path.Base(name)
}

// allowedContentTypes is the content-type allowlist for uploads. Anything
// outside image/* and video/* is stored as-is without derivatives.
var allowedContentTypes = map[string]bool{
	// Photos
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/tiff": true,
	"image/bmp":  true,
	// Videos
	"video/mp4":        true,
	"video/quicktime":  true,
	"video/webm":       true,
	"video/x-msvideo":  true,
	"video/x-matroska": true,
	"video/3gpp":       true,
	// Documents
	"application/pdf": true,
	"text/plain":      true,
}

func validateContentType(ct string) error {
	if !allowedContentTypes[strings.ToLower(ct)] {
		return fmt.Errorf("unsupported fileType %q", ct)
	}
	return nil
}
