package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the subset of the S3 client the store uses
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store archives audits as JSON objects in an S3 bucket. Each record is
// stored under runs/<run id>.json with an empty marker under
// poles/<pole key>/<run id> for listing by pole pair.
type S3Store struct {
	client s3API
	bucket string
	prefix string
}

// S3Location is a parsed s3:// archive URL
type S3Location struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // S3-compatible endpoint, path-style addressing
	AccessKey string
	SecretKey string
}

// ParseS3URL parses s3://[key:secret@]bucket[/prefix][?region=..&endpoint=..]
func ParseS3URL(raw string) (S3Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return S3Location{}, fmt.Errorf("invalid archive URL: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return S3Location{}, fmt.Errorf("invalid archive URL %q: want s3://bucket[/prefix]", raw)
	}
	loc := S3Location{
		Bucket:   u.Host,
		Prefix:   strings.Trim(u.Path, "/"),
		Region:   u.Query().Get("region"),
		Endpoint: u.Query().Get("endpoint"),
	}
	if u.User != nil {
		loc.AccessKey = u.User.Username()
		loc.SecretKey, _ = u.User.Password()
	}
	return loc, nil
}

// NewS3Store builds a client from the default AWS configuration chain,
// overridden by the location's region, endpoint and static credentials.
func NewS3Store(ctx context.Context, loc S3Location) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if loc.Region != "" {
		opts = append(opts, awsconfig.WithRegion(loc.Region))
	}
	if loc.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(loc.AccessKey, loc.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if loc.Endpoint != "" {
			o.BaseEndpoint = aws.String(loc.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(client, loc.Bucket, loc.Prefix), nil
}

func newS3Store(client s3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3Store) runKey(runID string) string {
	return path.Join(s.prefix, "runs", runID+".json")
}

func (s *S3Store) poleDir(a, b string) string {
	return path.Join(s.prefix, "poles", url.PathEscape(poleKey(a, b))) + "/"
}

// Save implements Store.
func (s *S3Store) Save(ctx context.Context, rec *Record) error {
	if rec.RunID == "" {
		return errors.New("audit record has no run id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.runKey(rec.RunID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to save audit %s: %w", rec.RunID, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.poleDir(rec.PoleA, rec.PoleB) + rec.RunID),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return fmt.Errorf("failed to index audit %s: %w", rec.RunID, err)
	}
	return nil
}

// Get implements Store.
func (s *S3Store) Get(ctx context.Context, runID string) (*Record, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.runKey(runID)),
	})
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("corrupt archive object %s: %w", runID, err)
	}
	return &rec, nil
}

// ListByPoles implements Store, newest first.
func (s *S3Store) ListByPoles(ctx context.Context, a, b string, limit int) ([]*Record, error) {
	dir := s.poleDir(a, b)
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(dir),
	})

	var out []*Record
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list audits: %w", err)
		}
		for _, obj := range page.Contents {
			rec, err := s.Get(ctx, strings.TrimPrefix(aws.ToString(obj.Key), dir))
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].RunID < out[j].RunID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements Store.
func (s *S3Store) Close() error { return nil }
