// Package storage keeps uploaded files in a local directory or a Google
// Cloud Storage bucket and returns their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Folders used by the upload endpoints.
const (
	FolderResumes          = "resumes"
	FolderCompanyDocuments = "company-documents"
)

// ErrInvalidName is returned for object names that escape their folder.
var ErrInvalidName = errors.New("invalid object name")

// Object is a stored file.
type Object struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// Store saves files under a folder.
type Store interface {
	Put(ctx context.Context, folder, publicID, contentType string, body io.Reader) (Object, error)
	Delete(ctx context.Context, folder, publicID string) error
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// SanitizeName strips the extension from filename and replaces every
// character outside [a-zA-Z0-9] with an underscore.
func SanitizeName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return unsafeChars.ReplaceAllString(base, "_")
}

// ApplicationResumeID names a resume attached to an application:
// resume_<unixmillis>_<sanitized>.pdf.
func ApplicationResumeID(filename string, now time.Time) string {
	return fmt.Sprintf("resume_%d_%s.pdf", now.UnixMilli(), SanitizeName(filename))
}

// UserResumeID names a resume uploaded from the resume endpoint:
// resume_<userID>_<unixmillis><ext>.
func UserResumeID(userID, filename string, now time.Time) string {
	return fmt.Sprintf("resume_%s_%d%s", unsafeChars.ReplaceAllString(userID, "_"), now.UnixMilli(), extension(filename))
}

// DocumentID names a company document: <unixmillis>_<sanitized><ext>.
func DocumentID(filename string, now time.Time) string {
	return fmt.Sprintf("%d_%s%s", now.UnixMilli(), SanitizeName(filename), extension(filename))
}

func extension(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" || unsafeChars.MatchString(ext[1:]) {
		return ""
	}
	return ext
}

// objectName joins folder and publicID, rejecting traversal.
func objectName(folder, publicID string) (string, error) {
	if publicID == "" || strings.ContainsAny(publicID, `/\`) || publicID == "." || publicID == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, publicID)
	}
	if folder == "" {
		return publicID, nil
	}
	clean := path.Clean(folder)
	if strings.HasPrefix(clean, "..") || path.IsAbs(clean) {
		return "", fmt.Errorf("%w: folder %q", ErrInvalidName, folder)
	}
	return clean + "/" + publicID, nil
}
