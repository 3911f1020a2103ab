// Package config holds the audit tunables and their YAML representation.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-diffraction/pkg/algorithms"
	"github.com/dd0wney/cluso-diffraction/pkg/diffraction"
	"github.com/dd0wney/cluso-diffraction/pkg/semgraph"
	"github.com/dd0wney/cluso-diffraction/pkg/validation"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the complete audit configuration
type Config struct {
	Graph       string            `yaml:"graph"`
	Mode        string            `yaml:"mode"`
	Propagation PropagationConfig `yaml:"propagation"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Stability   StabilityConfig   `yaml:"stability"`
	Axis        AxisConfig        `yaml:"axis"`
	View        ViewConfig        `yaml:"view"`
	Drift       DriftConfig       `yaml:"drift"`
	Synthesis   bool              `yaml:"synthesis"`
	Output      OutputConfig      `yaml:"output"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Workers     int               `yaml:"workers"`
}

// PropagationConfig tunes personalized PageRank
type PropagationConfig struct {
	Alpha         float64 `yaml:"alpha"` // damping factor
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
}

// ScoringConfig tunes diffraction scoring
type ScoringConfig struct {
	LambdaBalance   float64       `yaml:"lambda_balance"`
	SynthesisLambda float64       `yaml:"synthesis_lambda"`
	Top             int           `yaml:"top"`
	Weights         WeightsConfig `yaml:"weights"`
}

// WeightsConfig weighs the three synthesis fields
type WeightsConfig struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
	E float64 `yaml:"e"`
}

// StabilityConfig holds the acceptance thresholds
type StabilityConfig struct {
	RatioMin   float64 `yaml:"ratio_min"`
	BalanceMax float64 `yaml:"balance_max"`
}

// AxisConfig selects the axis policy
type AxisConfig struct {
	NoAxis             bool   `yaml:"no_axis"`
	Only               string `yaml:"only"`
	Strict             bool   `yaml:"strict"`
	Refine             bool   `yaml:"refine"`
	ExcludeAutoDuality bool   `yaml:"exclude_auto_duality"`
}

// ViewConfig restricts the propagation graph
type ViewConfig struct {
	Exclude               []string `yaml:"exclude"`
	IncludeMeta           bool     `yaml:"include_meta"`
	ExcludeSkeleton       bool     `yaml:"exclude_skeleton"`
	EmbeddingWeightCap    float64  `yaml:"embedding_weight_cap"`
	MinEmbeddingWeight    float64  `yaml:"min_embedding_weight"`
	MaxEmbeddingOutDegree int      `yaml:"max_embedding_out_degree"`
	UseWeights            bool     `yaml:"use_weights"`
	MinWeight             float64  `yaml:"min_weight"`
	MaxWeight             float64  `yaml:"max_weight"`
}

// DriftConfig bounds the drift diagnostics
type DriftConfig struct {
	TopN      int     `yaml:"top_n"`
	Threshold float64 `yaml:"threshold"`
}

// OutputConfig controls rendering and telemetry
type OutputConfig struct {
	Format      string `yaml:"format"`
	Quiet       bool   `yaml:"quiet"`
	LogLevel    string `yaml:"log_level"`
	MetricsFile string `yaml:"metrics_file"`
}

// ArchiveConfig points at an optional result archive: a postgres:// or s3://
// URL, or a directory
type ArchiveConfig struct {
	URL string `yaml:"url"`
}

// Default returns the default configuration
func Default() *Config {
	view := semgraph.DefaultViewOptions()
	ppr := algorithms.DefaultPPROptions()
	w := algorithms.DefaultTripleWeights()
	return &Config{
		Mode: string(semgraph.ModeStructure),
		Propagation: PropagationConfig{
			Alpha:         ppr.DampingFactor,
			Tolerance:     ppr.Tolerance,
			MaxIterations: ppr.MaxIterations,
		},
		Scoring: ScoringConfig{
			LambdaBalance:   algorithms.DefaultLambda,
			SynthesisLambda: algorithms.DefaultSynthesisLambda,
			Top:             algorithms.DefaultTopK,
			Weights:         WeightsConfig{A: w.A, B: w.B, E: w.E},
		},
		Stability: StabilityConfig{
			RatioMin:   diffraction.DefaultRatioMin,
			BalanceMax: diffraction.DefaultBalanceMax,
		},
		View: ViewConfig{
			EmbeddingWeightCap:    view.EmbeddingWeightCap,
			MinEmbeddingWeight:    view.MinEmbeddingWeight,
			MaxEmbeddingOutDegree: view.MaxEmbeddingOutDegree,
			UseWeights:            view.UseWeights,
			MinWeight:             view.MinWeight,
			MaxWeight:             view.MaxWeight,
		},
		Drift: DriftConfig{
			TopN:      diffraction.DefaultDriftTopN,
			Threshold: diffraction.DefaultDriftThreshold,
		},
		Output: OutputConfig{
			Format:   FormatText,
			LogLevel: "warn",
		},
		Workers: diffraction.DefaultWorkers,
	}
}

// LoadFile reads a YAML file over the defaults. Keys absent from the file
// keep their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the audit options do not cover.
func (c *Config) Validate() error {
	cv := validation.NewConfigValidator("Config").
		Custom("mode", func() error {
			_, err := semgraph.ParseMode(c.Mode)
			return err
		}).
		OneOf("output.format", c.Output.Format, []string{FormatText, FormatJSON}).
		OneOf("output.log_level", c.Output.LogLevel, []string{"debug", "info", "warn", "warning", "error"}).
		Positive("workers", c.Workers).
		When(c.Axis.Only != "", func(cv *validation.ConfigValidator) {
			cv.Custom("axis.only", func() error { return validation.ValidateAxisName(c.Axis.Only) })
		}).
		When(c.Axis.NoAxis && c.Axis.Only != "", func(cv *validation.ConfigValidator) {
			cv.Custom("axis", func() error { return errors.New("no_axis and only are mutually exclusive") })
		})
	if err := cv.Validate(); err != nil {
		return err
	}

	opts, err := c.AuditOptions()
	if err != nil {
		return err
	}
	return opts.Validate()
}

// GraphOptions returns the loader options
func (c *Config) GraphOptions() semgraph.GraphOptions {
	return semgraph.GraphOptions{ExcludeAutoDuality: c.Axis.ExcludeAutoDuality}
}

// AuditOptions converts the configuration into auditor options.
func (c *Config) AuditOptions() (diffraction.Options, error) {
	mode, err := semgraph.ParseMode(c.Mode)
	if err != nil {
		return diffraction.Options{}, err
	}

	opts := diffraction.DefaultOptions()
	opts.View = semgraph.ViewOptions{
		Mode:                  mode,
		Exclude:               c.View.Exclude,
		IncludeMeta:           c.View.IncludeMeta,
		ExcludeSkeleton:       c.View.ExcludeSkeleton,
		EmbeddingWeightCap:    c.View.EmbeddingWeightCap,
		MinEmbeddingWeight:    c.View.MinEmbeddingWeight,
		MaxEmbeddingOutDegree: c.View.MaxEmbeddingOutDegree,
		UseWeights:            c.View.UseWeights,
		MinWeight:             c.View.MinWeight,
		MaxWeight:             c.View.MaxWeight,
	}
	opts.PPR = algorithms.PPROptions{
		DampingFactor: c.Propagation.Alpha,
		Tolerance:     c.Propagation.Tolerance,
		MaxIterations: c.Propagation.MaxIterations,
	}
	opts.Lambda = c.Scoring.LambdaBalance
	opts.SynthesisLambda = c.Scoring.SynthesisLambda
	opts.TopK = c.Scoring.Top
	opts.TripleWeights = algorithms.TripleWeights{A: c.Scoring.Weights.A, B: c.Scoring.Weights.B, E: c.Scoring.Weights.E}
	opts.Stability = diffraction.StabilityOptions{RatioMin: c.Stability.RatioMin, BalanceMax: c.Stability.BalanceMax}
	opts.Drift = diffraction.DriftOptions{TopN: c.Drift.TopN, Threshold: c.Drift.Threshold}
	opts.Refine = c.Axis.Refine
	opts.StrictAxis = c.Axis.Strict
	opts.Synthesis = c.Synthesis
	opts.Workers = c.Workers

	switch {
	case c.Axis.NoAxis:
		opts.Policy = diffraction.PolicyNone
	case c.Axis.Only != "":
		opts.Policy = diffraction.PolicyAxisOnly
		opts.AxisOnly = c.Axis.Only
	default:
		opts.Policy = diffraction.PolicyShared
	}
	return opts, nil
}
