package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"opendownloadmanager/internal"
)

// URLValidator validates that a URL is well-formed http(s), the only
// scheme this downloader ever dials.
type URLValidator struct{}

// NewURLValidator creates a new URL validator.
func NewURLValidator() *URLValidator {
	return &URLValidator{}
}

// ValidateURL checks that rawURL parses and uses http or https.
func (v *URLValidator) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return internal.NewValidationError("url", "URL cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return internal.NewValidationError("url", fmt.Sprintf("invalid URL format: %v", err))
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return internal.NewValidationError("url", "URL must use http or https protocol").
			WithValue(rawURL)
	}

	if parsedURL.Hostname() == "" {
		return internal.NewValidationError("url", "URL must specify a host").
			WithValue(rawURL)
	}

	return nil
}

// TaskID returns the lowercase hex SHA-256 digest of the URL string,
// the stable identifier used to key tasks, metadata files, and part
// files across process restarts.
func TaskID(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// DefaultOutputPath derives a destination filename from the URL's path
// when the caller didn't supply one, applying the configured
// defaultOutputPath as a directory prefix.
func DefaultOutputPath(rawURL, defaultOutputPath string) string {
	name := "download"
	if parsed, err := url.Parse(rawURL); err == nil {
		base := path.Base(parsed.Path)
		if base != "" && base != "." && base != "/" {
			name = base
		}
	}

	if defaultOutputPath == "" {
		return name
	}
	return filepath.Join(defaultOutputPath, name)
}

// MetaPath returns the on-disk path of a task's metadata file, per the
// wire format `<meta_dir>/<sha256_hex(url)>.meta.json`.
func MetaPath(metaDir, taskID string) string {
	return filepath.Join(metaDir, taskID+".meta.json")
}

// PartPath returns the on-disk path of one segment's part file, named
// `<output_path>.part<segment_id>`.
func PartPath(outputPath string, segmentID int) string {
	return fmt.Sprintf("%s.part%d", outputPath, segmentID)
}

// NormalizeURL trims leading and trailing whitespace, e.g. from a URL
// pasted with padding; the URL is otherwise left unchanged.
func NormalizeURL(rawURL string) string {
	return strings.TrimSpace(rawURL)
}
