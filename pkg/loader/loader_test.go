package loader

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-diffraction/pkg/semgraph"
	"github.com/golang/snappy"
)

const datasets = "../../examples/datasets"

func TestLoad_Demo(t *testing.T) {
	g, err := Load(filepath.Join(datasets, "demo.json"), semgraph.GraphOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if g.Len() != 12 {
		t.Errorf("nodes = %d, want 12", g.Len())
	}
	if g.EdgeCount() != 25 {
		t.Errorf("edges = %d, want 25", g.EdgeCount())
	}
	n, ok := g.Node("tibio")
	if !ok || n.Kind != semgraph.KindEquilibrium {
		t.Errorf("tibio = %+v", n)
	}
	if len(g.Dualities()) != 1 {
		t.Errorf("dualities = %v", g.Dualities())
	}
	if arriba, _ := g.Node("arriba"); !arriba.Skeleton {
		t.Error("arriba should be a skeleton node")
	}
}

func TestLoad_LegacySample(t *testing.T) {
	g, err := Load(filepath.Join(datasets, "sample.json"), semgraph.GraphOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := g.AxisNames("espacio"); !reflect.DeepEqual(got, []string{"eje:dimension", "eje:fisica"}) {
		t.Errorf("roles should become axes, got %v", got)
	}
	if n, _ := g.Node("temperatura"); n.Kind != semgraph.KindSynthesis {
		t.Errorf("tipo should become kind, got %q", n.Kind)
	}

	var embedding int
	for _, e := range g.Edges() {
		if e.Kind == semgraph.EdgeEmbedding {
			embedding++
		}
	}
	if embedding != 5 {
		t.Errorf("embedding edges = %d, want 5", embedding)
	}
}

func TestParse_Aliases(t *testing.T) {
	doc := `{
		"nodes": [
			{"id": "a", "axes": ["eje:x", "eje:dualidad_auto:a_b"]},
			{"id": "b", "roles": {"eje:y": "polo"}}
		],
		"links": [
			{"source": "a", "target": "b", "tipo": "dualidad", "axis": "eje:x"}
		],
		"edges": [
			{"source": "b", "target": "a", "kind": "embedding", "weight": 0.4}
		]
	}`

	g, err := Parse([]byte(doc), semgraph.GraphOptions{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if g.EdgeCount() != 2 {
		t.Fatalf("edges and links should merge, got %d", g.EdgeCount())
	}
	if len(g.Dualities()) != 1 || g.Dualities()[0].Axis != "eje:x" {
		t.Errorf("a duality edge should register a duality, got %v", g.Dualities())
	}
	for _, e := range g.Edges() {
		if e.From == "a" && e.Weight != 1 {
			t.Errorf("missing weight should default to 1, got %v", e.Weight)
		}
	}
	if got := g.AxisNames("a"); len(got) != 2 {
		t.Errorf("auto duality axes are kept by default, got %v", got)
	}

	g, err = Parse([]byte(doc), semgraph.GraphOptions{ExcludeAutoDuality: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := g.AxisNames("a"); !reflect.DeepEqual(got, []string{"eje:x"}) {
		t.Errorf("auto duality axes should be dropped, got %v", got)
	}
}

func TestParse_LegacyUntypedLinks(t *testing.T) {
	doc := `{
		"nodes": [
			{"id": "a", "tipo": "concepto", "tipo_global": "emergente"},
			{"id": "b", "tipo": "sintesis"},
			{"id": "c"}
		],
		"links": [
			{"source": "a", "target": "b"},
			{"source": "a", "target": "c", "tipo": "relacion"}
		],
		"edges": [
			{"source": "b", "target": "c"}
		]
	}`

	g, err := Parse([]byte(doc), semgraph.GraphOptions{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if n, _ := g.Node("a"); n.Kind != semgraph.KindEmergent {
		t.Errorf("tipo_global should win over tipo, got %q", n.Kind)
	}
	if n, _ := g.Node("b"); n.Kind != semgraph.KindSynthesis {
		t.Errorf("tipo without tipo_global, got %q", n.Kind)
	}

	kinds := make(map[string]semgraph.EdgeKind)
	for _, e := range g.Edges() {
		kinds[e.From+">"+e.To] = e.Kind
	}
	want := map[string]semgraph.EdgeKind{
		"a>b": semgraph.EdgeUntyped,
		"a>c": semgraph.EdgeStructural,
		"b>c": semgraph.EdgeStructural,
	}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("edge kinds = %v, want %v", kinds, want)
	}

	outDegree := func(mode semgraph.Mode) int {
		opts := semgraph.DefaultViewOptions()
		opts.Mode = mode
		v, err := semgraph.BuildView(g, opts)
		if err != nil {
			t.Fatal(err)
		}
		i, _ := g.Index("a")
		targets, _ := v.Out(i)
		return len(targets)
	}
	if got := outDegree(semgraph.ModeStructure); got != 1 {
		t.Errorf("structure mode should drop the untyped link, out(a) = %d", got)
	}
	if got := outDegree(semgraph.ModeMixed); got != 2 {
		t.Errorf("mixed mode keeps untyped links, out(a) = %d", got)
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "  ", "empty graph document"},
		{"syntax", `{"nodes": [`, "decode"},
		{"no nodes", `{"nodes": []}`, "nodes"},
		{"missing id", `{"nodes": [{"label": "x"}]}`, "nodes[0].id"},
		{"bad axis", `{"nodes": [{"id": "a", "axes": ["eje x"]}]}`, "nodes[0].axes[0]"},
		{"self loop", `{"nodes": [{"id": "a"}], "edges": [{"source": "a", "target": "a"}]}`, "edges[0].target"},
		{"negative weight", `{"nodes": [{"id": "a"}, {"id": "b"}], "edges": [{"source": "a", "target": "b", "weight": -1}]}`, "edges[0].weight"},
		{"one pole", `{"nodes": [{"id": "a"}], "dualities": [{"axis": "eje:x", "poles": ["a"]}]}`, "dualities[0].poles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
			if !errors.Is(err, semgraph.ErrGraphLoad) {
				t.Errorf("decode errors must match ErrGraphLoad: %v", err)
			}
		})
	}
}

func TestParse_UnknownEndpoint(t *testing.T) {
	_, err := Parse([]byte(`{"nodes": [{"id": "a"}], "edges": [{"source": "a", "target": "ghost"}]}`), semgraph.GraphOptions{})
	if !errors.Is(err, semgraph.ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
	var le *LoadError
	if !errors.As(err, &le) || le.Op != "build" {
		t.Errorf("expected a build LoadError, got %v", err)
	}
}

func TestLoad_Compressed(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join(datasets, "demo.json"))
	if err != nil {
		t.Fatal(err)
	}

	var stream bytes.Buffer
	w := snappy.NewBufferedWriter(&stream)
	if _, err := w.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	files := map[string][]byte{
		"block.json.sz":  Compress(raw),
		"stream.json.sz": stream.Bytes(),
	}
	for name, data := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatal(err)
		}
		g, err := Load(path, semgraph.GraphOptions{})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if g.Len() != 12 {
			t.Errorf("%s: nodes = %d", name, g.Len())
		}
	}

	corrupt := filepath.Join(dir, "corrupt.json.sz")
	if err := os.WriteFile(corrupt, []byte("not snappy"), 0o600); err != nil {
		t.Fatal(err)
	}
	var le *LoadError
	if _, err := Load(corrupt, semgraph.GraphOptions{}); !errors.As(err, &le) || le.Op != "decompress" {
		t.Errorf("expected decompress error, got %v", err)
	}
}

func TestLoad_FileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json"), semgraph.GraphOptions{}); !errors.Is(err, semgraph.ErrGraphLoad) {
		t.Errorf("missing file: %v", err)
	}

	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(empty, semgraph.GraphOptions{}); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("empty file: %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"nodes": []}`), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(bad, semgraph.GraphOptions{})
	var le *LoadError
	if !errors.As(err, &le) || le.Path != bad {
		t.Errorf("load errors should carry the path, got %v", err)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	w := 0.5
	doc := &Document{
		Nodes:     []NodeDoc{{ID: "a", Axes: []string{"eje:x"}}, {ID: "b", Axes: []string{"eje:x"}}},
		Edges:     []EdgeDoc{{Source: "a", Target: "b", Weight: &w}},
		Dualities: []DualityDoc{{Axis: "eje:x", Poles: []string{"a", "b"}}},
	}

	for _, compress := range []bool{false, true} {
		data, err := Encode(doc, compress)
		if err != nil {
			t.Fatal(err)
		}
		if compress {
			if data, err = Decompress(data); err != nil {
				t.Fatal(err)
			}
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("compress=%v: %v", compress, err)
		}
		if !reflect.DeepEqual(got, doc) {
			t.Errorf("compress=%v: round trip mismatch: %+v", compress, got)
		}
	}
}
