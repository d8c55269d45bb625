package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/silvestred/nba-team-ats-trends-scrape/config"
)

// Archiver stores the raw fetched HTML for each league run in S3-compatible
// storage, so a bad parse can be diagnosed after the fact. Archiving is best
// effort and never blocks ingestion.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewArchiver(ctx context.Context, cfg *config.ArchiveConfig) (*Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// ArchivePage uploads one league run's raw HTML under
// {prefix}/{league}/{date}/{run_id}.html.
func (a *Archiver) ArchivePage(ctx context.Context, league, runID string, scrapedAt time.Time, html []byte) error {
	key := fmt.Sprintf("%s/%s/%s/%s.html", a.prefix, league, scrapedAt.UTC().Format("2006-01-02"), runID)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(html),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}
