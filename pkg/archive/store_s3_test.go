package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// memS3 is an in-memory bucket
type memS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemS3() *memS3 {
	return &memS3{objects: make(map[string][]byte)}
}

func (m *memS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestParseS3URL(t *testing.T) {
	loc, err := ParseS3URL("s3://key:secret@audits/team/diffraction/?region=eu-west-1&endpoint=http://localhost:9000")
	if err != nil {
		t.Fatal(err)
	}
	want := S3Location{
		Bucket:    "audits",
		Prefix:    "team/diffraction",
		Region:    "eu-west-1",
		Endpoint:  "http://localhost:9000",
		AccessKey: "key",
		SecretKey: "secret",
	}
	if loc != want {
		t.Errorf("ParseS3URL = %+v, want %+v", loc, want)
	}

	for _, bad := range []string{"s3://", "http://bucket/x", "s3://%zz"} {
		if _, err := ParseS3URL(bad); err == nil {
			t.Errorf("ParseS3URL(%q) should fail", bad)
		}
	}
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	bucket := newMemS3()
	s := newS3Store(bucket, "audits", "/runs/v1/")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, rec := range []*Record{
		NewRecord(testDocument("old", "frío", "calor", base)),
		NewRecord(testDocument("new", "Calor", "frío", base.Add(time.Minute))),
		NewRecord(testDocument("other", "espacio", "tiempo", base)),
	} {
		if err := s.Save(ctx, rec); err != nil {
			t.Fatalf("Save(%s) failed: %v", rec.RunID, err)
		}
	}

	if _, ok := bucket.objects["runs/v1/runs/old.json"]; !ok {
		t.Errorf("record not stored under the prefix: %v", bucket.objects)
	}

	got, err := s.Get(ctx, "new")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Equilibrium != "tibio" || got.Document == nil || got.Document.Synthesis.Node.ID != "temperatura" {
		t.Errorf("record did not round trip: %+v", got)
	}

	list, err := s.ListByPoles(ctx, "frío", "calor", 0)
	if err != nil {
		t.Fatalf("ListByPoles failed: %v", err)
	}
	if len(list) != 2 || list[0].RunID != "new" || list[1].RunID != "old" {
		t.Errorf("ListByPoles = %v, want [new old]", list)
	}

	if _, err := s.Get(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing record error = %v", err)
	}
	if err := s.Save(ctx, &Record{}); err == nil {
		t.Error("record without run id should be rejected")
	}
}
