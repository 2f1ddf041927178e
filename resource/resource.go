// Package resource resolves opaque attachment references.
//
// Messages carry attachment references as strings and never interpret
// them. A Resolver turns a reference into object metadata or removes
// the underlying object; implementations live in resource/s3 and
// resource/gcs, with resource/cached wrapping any of them.
package resource

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for resolvers.
var (
	// ErrNotFound is returned when the referenced object does not exist.
	ErrNotFound = errors.New("resource: not found")

	// ErrInvalidRef is returned when a reference cannot be parsed.
	ErrInvalidRef = errors.New("resource: invalid reference")
)

// Info is the metadata of a referenced object.
type Info struct {
	Ref         string    `json:"ref"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Updated     time.Time `json:"updated"`
}

// Resolver resolves opaque references against a storage backend.
type Resolver interface {
	// Stat returns metadata for the referenced object.
	// Returns ErrNotFound if the object does not exist and
	// ErrInvalidRef if the reference cannot be parsed.
	Stat(ctx context.Context, ref string) (*Info, error)

	// Delete removes the referenced object.
	// Returns ErrNotFound if the object does not exist.
	Delete(ctx context.Context, ref string) error
}

// ParseRef splits a scheme://bucket/key reference.
// The scheme argument includes the trailing "://".
func ParseRef(scheme, ref string) (bucket, key string, err error) {
	if len(ref) <= len(scheme) || ref[:len(scheme)] != scheme {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidRef, ref)
	}
	rest := ref[len(scheme):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			if rest[i+1:] == "" {
				break
			}
			return rest[:i], rest[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("%w (no key): %s", ErrInvalidRef, ref)
}
