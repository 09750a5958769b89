package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local stores files on disk below Dir and serves them from PublicURL.
type Local struct {
	Dir       string
	PublicURL string
}

// NewLocal creates the root directory if needed.
func NewLocal(dir, publicURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Local{Dir: dir, PublicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Put writes body to Dir/folder/publicID. The write goes through a
// temporary file so readers never see a partial upload.
func (l *Local) Put(ctx context.Context, folder, publicID, _ string, body io.Reader) (Object, error) {
	name, err := objectName(folder, publicID)
	if err != nil {
		return Object{}, err
	}
	dst := filepath.Join(l.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, fmt.Errorf("failed to create folder: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: body}); err != nil {
		tmp.Close()
		return Object{}, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return Object{}, fmt.Errorf("failed to store file: %w", err)
	}

	return Object{URL: l.PublicURL + "/" + name, PublicID: name}, nil
}

// Delete removes a stored file. Missing files are not an error.
func (l *Local) Delete(_ context.Context, folder, publicID string) error {
	name, err := objectName(folder, publicID)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(l.Dir, filepath.FromSlash(name))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
