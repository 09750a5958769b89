package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/nexthire/internal/policy"
	"github.com/jonathan/nexthire/internal/storage"
)

// MaxUploadSize is the largest accepted file.
const MaxUploadSize = 5 << 20

// multipart overhead allowed on top of the file for the text fields.
const formOverhead = 1 << 20

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDOC  = "application/msword"
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
	mimeWEBP = "image/webp"
)

// fileRule names the form field of an upload and the types it accepts.
type fileRule struct {
	field   string
	allowed []string
	invalid string
}

var (
	resumeDocuments = fileRule{
		field:   "resume",
		allowed: []string{mimePDF, mimeDOCX, mimeDOC},
		invalid: "Invalid file type. Only PDF, DOCX and DOC files are allowed.",
	}
	companyDocuments = fileRule{
		field:   "file",
		allowed: []string{mimePDF, mimePNG, mimeJPEG, mimeWEBP},
		invalid: "Invalid file type. Only PDF, PNG, JPEG and WEBP files are allowed.",
	}
)

// pdfOnly accepts a single PDF under field.
func pdfOnly(field string) fileRule {
	return fileRule{
		field:   field,
		allowed: []string{mimePDF},
		invalid: "Invalid file type. Only PDF files are allowed.",
	}
}

func (f fileRule) accepts(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, a := range f.allowed {
		if ct == a {
			return true
		}
	}
	return false
}

// upload is a file read from a multipart request.
type upload struct {
	Name        string
	ContentType string
	Data        []byte
}

func (u *upload) reader() io.Reader { return bytes.NewReader(u.Data) }

// parseForm reads a multipart body bounded by the upload limit.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+formOverhead)
	if err := r.ParseMultipartForm(MaxUploadSize + formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusBadRequest, "File size exceeds 5MB limit")
			return false
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid form data")
		return false
	}
	return true
}

// readFile extracts and checks the file named by rule. parseForm must
// have run first. A missing file is reported as nil without a response
// so callers can choose their own message.
func (s *Server) readFile(w http.ResponseWriter, r *http.Request, rule fileRule) (*upload, bool) {
	file, header, err := r.FormFile(rule.field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, true
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid form data")
		return nil, false
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !rule.accepts(contentType) {
		s.errorResponse(w, http.StatusBadRequest, rule.invalid)
		return nil, false
	}
	if header.Size > MaxUploadSize {
		s.errorResponse(w, http.StatusBadRequest, "File size exceeds 5MB limit")
		return nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	if len(data) > MaxUploadSize {
		s.errorResponse(w, http.StatusBadRequest, "File size exceeds 5MB limit")
		return nil, false
	}
	return &upload{Name: header.Filename, ContentType: strings.ToLower(contentType), Data: data}, true
}

// requireFile is readFile with the standard missing-file response.
func (s *Server) requireFile(w http.ResponseWriter, r *http.Request, rule fileRule) (*upload, bool) {
	if !s.parseForm(w, r) {
		return nil, false
	}
	f, ok := s.readFile(w, r, rule)
	if !ok {
		return nil, false
	}
	if f == nil {
		s.errorResponse(w, http.StatusBadRequest, "No file uploaded")
		return nil, false
	}
	return f, true
}

// saveFile stores f and maps storage deadlines to ErrTimeout.
func (s *Server) saveFile(ctx context.Context, folder, publicID string, f *upload) (storage.Object, error) {
	obj, err := s.files.Put(ctx, folder, publicID, f.ContentType, f.reader())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return storage.Object{}, &ErrTimeout{Message: "Upload timed out"}
		}
		return storage.Object{}, err
	}
	return obj, nil
}

func (s *Server) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, policy.Authenticated(s.caller(r)), signInRequired) {
		return
	}
	f, ok := s.requireFile(w, r, resumeDocuments)
	if !ok {
		return
	}

	obj, err := s.saveFile(r.Context(), storage.FolderResumes, storage.DocumentID(f.Name, s.now()), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"message":    "Resume uploaded successfully",
		"url":        obj.URL,
		"secure_url": obj.URL,
		"publicId":   obj.PublicID,
	})
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, policy.Authenticated(s.caller(r)), signInRequired) {
		return
	}
	f, ok := s.requireFile(w, r, companyDocuments)
	if !ok {
		return
	}

	obj, err := s.saveFile(r.Context(), storage.FolderCompanyDocuments, storage.DocumentID(f.Name, s.now()), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"url": obj.URL})
}
