// Package s3 provides an AWS S3 resource resolver.
package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/rucko24/technovationslp-backend/resource"
)

const scheme = "s3://"

// Resolver resolves s3://bucket/key references using AWS S3.
type Resolver struct {
	client *s3.Client
	logger *slog.Logger
}

// Ensure Resolver implements resource.Resolver.
var _ resource.Resolver = (*Resolver)(nil)

// New creates a new S3 resolver.
// The context is used for AWS credential loading and configuration.
func New(ctx context.Context, opts ...Option) (*Resolver, error) {
	o := &options{
		region: "us-east-1",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	awsCfg, err := buildAWSConfig(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("build aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(opts *s3.Options) {
		if o.endpoint != "" {
			opts.BaseEndpoint = aws.String(o.endpoint)
			opts.UsePathStyle = o.usePathStyle
		}
	})

	return &Resolver{client: client, logger: o.logger}, nil
}

// buildAWSConfig builds AWS config based on authentication options.
func buildAWSConfig(ctx context.Context, o *options) (aws.Config, error) {
	var optFns []func(*config.LoadOptions) error

	optFns = append(optFns, config.WithRegion(o.region))

	if o.accessKey != "" && o.secretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(o.accessKey, o.secretKey, o.sessionToken)
		optFns = append(optFns, config.WithCredentialsProvider(creds))
	}
	// Otherwise the default credential chain applies: environment
	// variables, shared config, EC2/ECS roles, IRSA on EKS.

	return config.LoadDefaultConfig(ctx, optFns...)
}

// Stat returns object metadata via HeadObject.
func (r *Resolver) Stat(ctx context.Context, ref string) (*resource.Info, error) {
	bucket, key, err := resource.ParseRef(scheme, ref)
	if err != nil {
		return nil, err
	}

	out, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, resource.ErrNotFound
		}
		return nil, fmt.Errorf("head object: %w", err)
	}

	info := &resource.Info{
		Ref:  ref,
		Size: aws.ToInt64(out.ContentLength),
	}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	if out.LastModified != nil {
		info.Updated = *out.LastModified
	}
	return info, nil
}

// Delete removes the referenced object.
func (r *Resolver) Delete(ctx context.Context, ref string) error {
	bucket, key, err := resource.ParseRef(scheme, ref)
	if err != nil {
		return err
	}

	_, err = r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	r.logger.Debug("deleted object from s3", "bucket", bucket, "key", key)
	return nil
}
