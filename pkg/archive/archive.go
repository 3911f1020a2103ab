// Package archive persists audit reports so earlier runs can be compared.
package archive

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dd0wney/cluso-diffraction/pkg/report"
)

// ErrNotFound is returned when no record exists for a run id
var ErrNotFound = errors.New("audit record not found")

// Record is one archived audit
type Record struct {
	RunID       string
	PoleA       string
	PoleB       string
	Verdict     string
	Confidence  string
	Equilibrium string // empty when no equilibrium was found
	Synthesis   string
	CreatedAt   time.Time
	Document    *report.Document
}

// Store archives audit records
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, runID string) (*Record, error)
	ListByPoles(ctx context.Context, a, b string, limit int) ([]*Record, error)
	Close() error
}

// NewRecord summarizes a report document
func NewRecord(doc *report.Document) *Record {
	rec := &Record{
		RunID:      doc.RunID,
		PoleA:      doc.PoleA,
		PoleB:      doc.PoleB,
		Verdict:    doc.Verdict,
		Confidence: doc.Confidence,
		CreatedAt:  doc.FinishedAt,
		Document:   doc,
	}
	if doc.Equilibrium != nil {
		rec.Equilibrium = doc.Equilibrium.ID
	}
	if doc.Synthesis != nil && doc.Synthesis.Node != nil {
		rec.Synthesis = doc.Synthesis.Node.ID
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return rec
}

// poleKey is the order-independent lookup key of a pole pair
func poleKey(a, b string) string {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// Open returns the store for url: postgres:// and postgresql:// open a
// PGStore, s3:// an S3Store, anything else is a directory for a DirStore.
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPGStore(ctx, url)
	case strings.HasPrefix(url, "s3://"):
		loc, err := ParseS3URL(url)
		if err != nil {
			return nil, err
		}
		return NewS3Store(ctx, loc)
	default:
		return NewDirStore(strings.TrimPrefix(url, "file://"))
	}
}
