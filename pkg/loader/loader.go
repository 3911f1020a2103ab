package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dd0wney/cluso-diffraction/pkg/semgraph"
	"github.com/dd0wney/cluso-diffraction/pkg/validation"
	"github.com/golang/snappy"
	"golang.org/x/exp/mmap"
)

// CompressedExt marks snappy-compressed documents
const CompressedExt = ".sz"

// snappy stream identifier chunk
var streamMagic = []byte("\xff\x06\x00\x00sNaPpY")

// ErrEmptyDocument is returned for zero-length input
var ErrEmptyDocument = errors.New("empty graph document")

// LoadError reports a document that could not be read, decoded or turned
// into a graph. It matches semgraph.ErrGraphLoad.
type LoadError struct {
	Op    string // "read", "decompress", "decode", "validate" or "build"
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("load %s: %s: %v", e.Path, e.Op, e.Cause)
	}
	return fmt.Sprintf("load: %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Is matches semgraph.ErrGraphLoad.
func (e *LoadError) Is(target error) bool {
	return target == semgraph.ErrGraphLoad
}

// ReadFile returns the raw document bytes, memory-mapping the file and
// decompressing .sz files.
func ReadFile(path string) ([]byte, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, &LoadError{Op: "read", Path: path, Cause: err}
	}
	defer reader.Close()

	if reader.Len() == 0 {
		return nil, &LoadError{Op: "read", Path: path, Cause: ErrEmptyDocument}
	}
	data := make([]byte, reader.Len())
	if _, err := reader.ReadAt(data, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{Op: "read", Path: path, Cause: err}
	}

	if strings.HasSuffix(path, CompressedExt) {
		data, err = Decompress(data)
		if err != nil {
			return nil, &LoadError{Op: "decompress", Path: path, Cause: err}
		}
	}
	return data, nil
}

// Decompress accepts both snappy block and snappy stream encodings.
func Decompress(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, streamMagic) {
		return io.ReadAll(snappy.NewReader(bytes.NewReader(data)))
	}
	return snappy.Decode(nil, data)
}

// Compress encodes data in the snappy block format.
func Compress(data []byte) []byte {
	return snappy.Encode(nil, data)
}

// Decode parses and validates a JSON graph document.
func Decode(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &LoadError{Op: "decode", Cause: ErrEmptyDocument}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Op: "decode", Cause: err}
	}
	if err := validation.Struct(&doc); err != nil {
		return nil, &LoadError{Op: "validate", Cause: err}
	}
	return &doc, nil
}

// Encode serializes a document, snappy-compressed when compress is set.
func Encode(doc *Document, compress bool) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	if compress {
		return Compress(data), nil
	}
	return data, nil
}

// Parse decodes a document and builds its graph.
func Parse(data []byte, opts semgraph.GraphOptions) (*semgraph.Graph, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	g, err := doc.Graph(opts)
	if err != nil {
		return nil, &LoadError{Op: "build", Cause: err}
	}
	return g, nil
}

// Load reads a graph document from disk.
func Load(path string, opts semgraph.GraphOptions) (*semgraph.Graph, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := Parse(data, opts)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	return g, nil
}
