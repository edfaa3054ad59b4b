// file: internal/browse/s3.go
// version: 1.0.0
// guid: 9e0f1a2b-3c4d-4e5f-6a7b-8c9d0e1f2a3b

package browse

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3 browses "directories" of a bucket, using "/" as the delimiter.
type S3 struct {
	client s3iface.S3API
	bucket string
}

// NewS3 creates an S3 browser over an existing client.
func NewS3(client s3iface.S3API, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// NewS3FromOptions builds a client from bucket credentials. Static keys are
// used when given; otherwise the SDK's default credential chain applies.
func NewS3FromOptions(opts Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 source requires a bucket")
	}

	cfg := aws.NewConfig()
	if opts.Region != "" {
		cfg = cfg.WithRegion(opts.Region)
	}
	if opts.Endpoint != "" {
		cfg = cfg.WithEndpoint(opts.Endpoint).WithS3ForcePathStyle(true)
	}
	if opts.AccessKey != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, ""))
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 session: %w", err)
	}
	return NewS3(s3.New(sess), opts.Bucket), nil
}

// Browse lists the objects and common prefixes directly under prefix.
func (b *S3) Browse(ctx context.Context, prefix string) (*Listing, error) {
	target := strings.Trim(prefix, "/")
	if target == "." {
		target = ""
	}
	listPrefix := target
	if listPrefix != "" {
		listPrefix += "/"
	}

	listing := &Listing{Target: target}
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(listPrefix),
		Delimiter: aws.String("/"),
	}

	err := b.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, cp := range page.CommonPrefixes {
			dir := strings.TrimSuffix(aws.StringValue(cp.Prefix), "/")
			if dir != "" && dir != target {
				listing.Dirs = append(listing.Dirs, dir)
			}
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.StringValue(obj.Key), listPrefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			listing.Files = append(listing.Files, name)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list s3://%s/%s: %w", b.bucket, listPrefix, err)
	}

	sort.Strings(listing.Files)
	sort.Strings(listing.Dirs)
	return listing, nil
}

// URL returns the object URL of key for playback.
func (b *S3) URL(key string) string {
	return fmt.Sprintf("s3://%s/%s", b.bucket, strings.TrimPrefix(key, "/"))
}
