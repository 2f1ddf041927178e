package resource

import (
	"errors"
	"testing"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		scheme  string
		ref     string
		bucket  string
		key     string
		wantErr bool
	}{
		{
			name:   "simple key",
			scheme: "s3://",
			ref:    "s3://cohort-files/guide.pdf",
			bucket: "cohort-files",
			key:    "guide.pdf",
		},
		{
			name:   "nested key",
			scheme: "gs://",
			ref:    "gs://cohort-files/batch-7/week-2/slides.pdf",
			bucket: "cohort-files",
			key:    "batch-7/week-2/slides.pdf",
		},
		{
			name:    "wrong scheme",
			scheme:  "s3://",
			ref:     "gs://cohort-files/guide.pdf",
			wantErr: true,
		},
		{
			name:    "bucket only",
			scheme:  "s3://",
			ref:     "s3://cohort-files",
			wantErr: true,
		},
		{
			name:    "trailing slash without key",
			scheme:  "s3://",
			ref:     "s3://cohort-files/",
			wantErr: true,
		},
		{
			name:    "empty reference",
			scheme:  "s3://",
			ref:     "",
			wantErr: true,
		},
		{
			name:    "scheme only",
			scheme:  "s3://",
			ref:     "s3://",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseRef(tt.scheme, tt.ref)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRef) {
					t.Fatalf("expected ErrInvalidRef, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Errorf("expected %s/%s, got %s/%s", tt.bucket, tt.key, bucket, key)
			}
		})
	}
}
