package store

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/readvideos/vt-engine/internal/config"
)

// Archiver copies persisted transcript records to an S3-compatible bucket
// after each completed run. Best effort: archive failures never fail a run.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
	log    zerolog.Logger
}

// NewArchiver creates an S3 archiver from config and verifies bucket access.
func NewArchiver(ctx context.Context, cfg config.S3Config, log zerolog.Logger) (*Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	a := &Archiver{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		log:    log.With().Str("component", "s3-archiver").Logger(),
	}

	if _, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &a.bucket}); err != nil {
		return nil, fmt.Errorf("S3 bucket check (bucket=%q endpoint=%q): %w", cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Msg("S3 archive enabled")

	return a, nil
}

// Archive uploads one transcript record's serialized bytes under the given key.
func (a *Archiver) Archive(ctx context.Context, key string, data []byte) error {
	objKey := a.objectKey(key)
	contentType := "application/json"
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &objKey,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", objKey, err)
	}
	a.log.Debug().Str("key", objKey).Int("bytes", len(data)).Msg("transcript archived")
	return nil
}

func (a *Archiver) objectKey(key string) string {
	if a.prefix != "" {
		return a.prefix + "/transcripts/" + key
	}
	return "transcripts/" + key
}
