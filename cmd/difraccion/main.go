// Command difraccion audits the equilibrium between two poles of a semantic graph.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-diffraction/pkg/config"
	"github.com/dd0wney/cluso-diffraction/pkg/diffraction"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "difraccion: %v\n", err)
		return diffraction.ExitCode(err)
	}
	return diffraction.ExitOK
}

// cliOptions holds the flags that are not part of the configuration file
type cliOptions struct {
	configPath string
	poleA      string
	poleB      string
	top        int
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts cliOptions
	flagCfg := config.Default()

	cmd := &cobra.Command{
		Use:   "difraccion [graph.json]",
		Short: "Diffraction audit of the equilibrium between two semantic poles",
		Long: `difraccion propagates personalized PageRank from two poles of a semantic
graph, ranks the nodes both fields reach in balance and reports whether the
winning equilibrium is stable within the poles' shared axis scope.

Exit codes: 0 success, 1 load or usage error, 2 empty axis scope under
--strict_axis, 3 no auditable scope after --refine under --strict_axis.`,
		Example: `  difraccion --json examples/datasets/demo.json --a frío --b calor --sintesis
  difraccion examples/datasets/sample.json --a espacio --b calor --refine --strict_axis`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Flags(), opts.configPath, flagCfg, args)
			if err != nil {
				return err
			}
			if opts.poleA == "" || opts.poleB == "" {
				return fmt.Errorf("%w: --a and --b are required", diffraction.ErrInvalidRequest)
			}
			return runAudit(cmd.Context(), cfg, opts, stdout, stderr)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&opts.poleA, "a", "", "first pole id (case-insensitive)")
	fs.StringVar(&opts.poleB, "b", "", "second pole id (case-insensitive)")
	fs.IntVar(&opts.top, "top", 12, "ranked candidates to report")
	bindConfigFlags(fs, flagCfg)
	return cmd
}

// bindConfigFlags registers the flags that mirror configuration keys
func bindConfigFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Graph, "json", cfg.Graph, "graph document (.json, or .sz for snappy)")
	fs.StringVar(&cfg.Mode, "modo", cfg.Mode, "propagation mode: estructura, mixto or todo")
	fs.BoolVar(&cfg.Synthesis, "sintesis", cfg.Synthesis, "search a synthesis node when the equilibrium is stable")
	fs.BoolVar(&cfg.Axis.Refine, "refine", cfg.Axis.Refine, "re-run once in the provisional equilibrium's axis family")
	fs.StringVar(&cfg.Axis.Only, "axis_only", cfg.Axis.Only, "restrict candidates to this axis family")
	fs.BoolVar(&cfg.Axis.Strict, "strict_axis", cfg.Axis.Strict, "fail instead of reporting unconstrained results")
	fs.BoolVar(&cfg.Axis.NoAxis, "no_axis", cfg.Axis.NoAxis, "disable axis filtering")
	fs.BoolVar(&cfg.Axis.ExcludeAutoDuality, "exclude_auto_dualidad", cfg.Axis.ExcludeAutoDuality, "ignore auto-generated duality axes")
	fs.BoolVar(&cfg.View.ExcludeSkeleton, "exclude_skeleton", cfg.View.ExcludeSkeleton, "drop skeleton nodes from propagation")
	fs.BoolVar(&cfg.View.IncludeMeta, "include_meta", cfg.View.IncludeMeta, "keep meta nodes in propagation")
	fs.StringSliceVar(&cfg.View.Exclude, "exclude", cfg.View.Exclude, "node ids to drop from propagation")
	fs.Float64Var(&cfg.Propagation.Alpha, "alpha", cfg.Propagation.Alpha, "PageRank damping factor")
	fs.Float64Var(&cfg.Scoring.LambdaBalance, "lambda_balance", cfg.Scoring.LambdaBalance, "imbalance penalty")
	fs.Float64Var(&cfg.Stability.RatioMin, "ratio_min", cfg.Stability.RatioMin, "minimum top/runner-up score ratio")
	fs.Float64Var(&cfg.Stability.BalanceMax, "balance_max", cfg.Stability.BalanceMax, "maximum equilibrium imbalance")
	fs.BoolVar(&cfg.Output.Quiet, "quiet", cfg.Output.Quiet, "print a one-line summary")
	fs.StringVar(&cfg.Output.Format, "format", cfg.Output.Format, "report format: text or json")
	fs.StringVar(&cfg.Output.LogLevel, "log-level", cfg.Output.LogLevel, "log level: debug, info, warn or error")
	fs.StringVar(&cfg.Output.MetricsFile, "metrics_file", cfg.Output.MetricsFile, "write Prometheus metrics to this file")
	fs.StringVar(&cfg.Archive.URL, "archive_url", cfg.Archive.URL, "archive results to a postgres:// or s3:// URL, or a directory")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent PageRank fields")
}

// flagOverrides copies one flag's value between configurations
var flagOverrides = map[string]func(dst, src *config.Config){
	"json":                  func(d, s *config.Config) { d.Graph = s.Graph },
	"modo":                  func(d, s *config.Config) { d.Mode = s.Mode },
	"sintesis":              func(d, s *config.Config) { d.Synthesis = s.Synthesis },
	"refine":                func(d, s *config.Config) { d.Axis.Refine = s.Axis.Refine },
	"axis_only":             func(d, s *config.Config) { d.Axis.Only = s.Axis.Only },
	"strict_axis":           func(d, s *config.Config) { d.Axis.Strict = s.Axis.Strict },
	"no_axis":               func(d, s *config.Config) { d.Axis.NoAxis = s.Axis.NoAxis },
	"exclude_auto_dualidad": func(d, s *config.Config) { d.Axis.ExcludeAutoDuality = s.Axis.ExcludeAutoDuality },
	"exclude_skeleton":      func(d, s *config.Config) { d.View.ExcludeSkeleton = s.View.ExcludeSkeleton },
	"include_meta":          func(d, s *config.Config) { d.View.IncludeMeta = s.View.IncludeMeta },
	"exclude":               func(d, s *config.Config) { d.View.Exclude = s.View.Exclude },
	"alpha":                 func(d, s *config.Config) { d.Propagation.Alpha = s.Propagation.Alpha },
	"lambda_balance":        func(d, s *config.Config) { d.Scoring.LambdaBalance = s.Scoring.LambdaBalance },
	"ratio_min":             func(d, s *config.Config) { d.Stability.RatioMin = s.Stability.RatioMin },
	"balance_max":           func(d, s *config.Config) { d.Stability.BalanceMax = s.Stability.BalanceMax },
	"quiet":                 func(d, s *config.Config) { d.Output.Quiet = s.Output.Quiet },
	"format":                func(d, s *config.Config) { d.Output.Format = s.Output.Format },
	"log-level":             func(d, s *config.Config) { d.Output.LogLevel = s.Output.LogLevel },
	"metrics_file":          func(d, s *config.Config) { d.Output.MetricsFile = s.Output.MetricsFile },
	"archive_url":           func(d, s *config.Config) { d.Archive.URL = s.Archive.URL },
	"workers":               func(d, s *config.Config) { d.Workers = s.Workers },
}

// resolveConfig layers the configuration file, explicitly set flags and the
// positional graph path, in that order.
func resolveConfig(fs *pflag.FlagSet, path string, flagCfg *config.Config, args []string) (*config.Config, error) {
	cfg := flagCfg
	if path != "" {
		fileCfg, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		fs.Visit(func(f *pflag.Flag) {
			if apply, ok := flagOverrides[f.Name]; ok {
				apply(fileCfg, flagCfg)
			}
		})
		cfg = fileCfg
	}
	if len(args) == 1 {
		cfg.Graph = args[0]
	}
	if cfg.Graph == "" {
		return nil, fmt.Errorf("%w: a graph document is required (--json or positional argument)", diffraction.ErrInvalidRequest)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
