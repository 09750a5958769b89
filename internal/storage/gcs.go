package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

// GCS stores files in a Google Cloud Storage bucket.
type GCS struct {
	bucket    string
	publicURL string
	objects   *gcs.ObjectsService
}

// NewGCS connects to the bucket using credentialsFile, or application
// default credentials when it is empty.
func NewGCS(ctx context.Context, bucket, credentialsFile string, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS bucket is required")
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gcs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCS{
		bucket:    bucket,
		publicURL: "https://storage.googleapis.com/" + bucket,
		objects:   gcs.NewObjectsService(svc),
	}, nil
}

// Put uploads body as folder/publicID.
func (g *GCS) Put(ctx context.Context, folder, publicID, contentType string, body io.Reader) (Object, error) {
	name, err := objectName(folder, publicID)
	if err != nil {
		return Object{}, err
	}
	obj := &gcs.Object{Name: name, ContentType: contentType}
	if _, err := g.objects.Insert(g.bucket, obj).
		Media(body, googleapi.ContentType(contentType)).
		Context(ctx).
		Do(); err != nil {
		return Object{}, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return Object{URL: g.publicURL + "/" + (&url.URL{Path: name}).EscapedPath(), PublicID: name}, nil
}

// Delete removes folder/publicID. Missing objects are not an error.
func (g *GCS) Delete(ctx context.Context, folder, publicID string) error {
	name, err := objectName(folder, publicID)
	if err != nil {
		return err
	}
	err = g.objects.Delete(g.bucket, name).Context(ctx).Do()
	if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}
