// Package gcs provides a Google Cloud Storage resource resolver.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/rucko24/technovationslp-backend/resource"
)

const scheme = "gs://"

// Resolver resolves gs://bucket/key references using Google Cloud Storage.
type Resolver struct {
	client *storage.Client
	logger *slog.Logger
}

// Ensure Resolver implements resource.Resolver.
var _ resource.Resolver = (*Resolver)(nil)

// New creates a new GCS resolver.
func New(ctx context.Context, opts ...Option) (*Resolver, error) {
	o := &options{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	var clientOpts []option.ClientOption
	if o.credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(o.credentialsFile))
	}
	if o.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(o.endpoint))
	}
	// Without explicit credentials, Application Default Credentials
	// apply: GOOGLE_APPLICATION_CREDENTIALS, gcloud login, Workload
	// Identity on GKE, or the Compute Engine service account.

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &Resolver{client: client, logger: o.logger}, nil
}

// Stat returns object metadata via the object attrs call.
func (r *Resolver) Stat(ctx context.Context, ref string) (*resource.Info, error) {
	bucket, key, err := resource.ParseRef(scheme, ref)
	if err != nil {
		return nil, err
	}

	attrs, err := r.client.Bucket(bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, resource.ErrNotFound
		}
		return nil, fmt.Errorf("object attrs: %w", err)
	}

	return &resource.Info{
		Ref:         ref,
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		Updated:     attrs.Updated,
	}, nil
}

// Delete removes the referenced object.
func (r *Resolver) Delete(ctx context.Context, ref string) error {
	bucket, key, err := resource.ParseRef(scheme, ref)
	if err != nil {
		return err
	}

	if err := r.client.Bucket(bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return resource.ErrNotFound
		}
		return fmt.Errorf("delete object: %w", err)
	}

	r.logger.Debug("deleted object from gcs", "bucket", bucket, "key", key)
	return nil
}

// Close closes the GCS client.
func (r *Resolver) Close() error {
	return r.client.Close()
}
