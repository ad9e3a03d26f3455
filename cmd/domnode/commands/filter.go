package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/domnode/internal/logger"
	"github.com/jmylchreest/domnode/internal/output"
	"github.com/jmylchreest/domnode/internal/source"
	"github.com/jmylchreest/domnode/pkg/dom"
	"github.com/jmylchreest/domnode/pkg/filter"
	"github.com/jmylchreest/domnode/pkg/parse"
)

// presetNone skips filtering and emits the tree as read.
const presetNone = "none"

var filterCmd = &cobra.Command{
	Use:   "filter [file|url|-]",
	Short: "Read a page and reduce it to its visible, semantic tree",
	Long: `Read a page from a file, a URL or stdin, build a normalized tree and
run a filter preset over it.

Input formats:
  html   HTML markup (bounding_box_rect and backend_node_id attributes are read)
  cdp    DOMSnapshot.captureSnapshot result as JSON
  tree   a tree previously written by domnode with --format json

By default the format is detected: JSON with a "documents" member is a
snapshot, other JSON is a tree, everything else is HTML.

Presets:
  visible    drop non-rendering tags, CSS-hidden and zero-size subtrees
  semantic   narrow attributes, strip presentational roles, prune empty
             nodes and collapse single-child wrappers
  all        visible followed by semantic (default)
  none       no filtering`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFilter,
}

func init() {
	rootCmd.AddCommand(filterCmd)

	filterCmd.Flags().String("input-format", "", "input format: html, cdp, tree (default: detect)")
	filterCmd.Flags().StringP("preset", "p", filter.PresetAll, "filter preset: visible, semantic, all, none")
	filterCmd.Flags().StringSlice("keep-attr", nil, "attributes kept by the semantic preset (replaces the default allow-list)")
	filterCmd.Flags().String("root", "", "CSS selector for the root element (html input only)")
	filterCmd.Flags().StringSlice("computed-styles", nil, "computed style names the snapshot was captured with (cdp input only)")
	filterCmd.Flags().Bool("no-frames", false, "do not attach iframe documents (cdp input only)")
	filterCmd.Flags().StringP("format", "f", string(output.FormatJSON), "output format: json, jsonl, yaml, html, markdown, text")
	filterCmd.Flags().Bool("pretty", false, "indent json output and pretty-print html output")
	filterCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	filterCmd.Flags().Bool("stats", false, "print per-stage statistics to stderr")
	filterCmd.Flags().Duration("timeout", 30*time.Second, "request timeout for URL input")
	filterCmd.Flags().String("max-input-size", "", "maximum input size, e.g. 10MB (default: unlimited)")

	for key, name := range map[string]string{
		"input_format":    "input-format",
		"preset":          "preset",
		"keep_attr":       "keep-attr",
		"root":            "root",
		"computed_styles": "computed-styles",
		"no_frames":       "no-frames",
		"format":          "format",
		"pretty":          "pretty",
		"output":          "output",
		"stats":           "stats",
		"timeout":         "timeout",
		"max_input_size":  "max-input-size",
	} {
		_ = viper.BindPFlag(key, filterCmd.Flags().Lookup(name))
	}
}

// filterConfig is the resolved configuration of a filter run.
type filterConfig struct {
	InputFormat    string        `flag:"input-format" validate:"omitempty,oneof=html cdp tree"`
	Preset         string        `flag:"preset" validate:"required,oneof=visible semantic all none"`
	KeepAttrs      []string      `flag:"keep-attr" validate:"dive,required"`
	Root           string        `flag:"root"`
	ComputedStyles []string      `flag:"computed-styles" validate:"dive,required"`
	NoFrames       bool          `flag:"no-frames"`
	Format         string        `flag:"format" validate:"required,oneof=json jsonl yaml html markdown text"`
	Pretty         bool          `flag:"pretty"`
	Output         string        `flag:"output"`
	Stats          bool          `flag:"stats"`
	Timeout        time.Duration `flag:"timeout" validate:"gte=0"`
	MaxInputSize   string        `flag:"max-input-size"`

	maxInputBytes uint64
}

func loadFilterConfig() (*filterConfig, error) {
	cfg := &filterConfig{
		InputFormat:    viper.GetString("input_format"),
		Preset:         viper.GetString("preset"),
		KeepAttrs:      viper.GetStringSlice("keep_attr"),
		Root:           viper.GetString("root"),
		ComputedStyles: viper.GetStringSlice("computed_styles"),
		NoFrames:       viper.GetBool("no_frames"),
		Format:         viper.GetString("format"),
		Pretty:         viper.GetBool("pretty"),
		Output:         viper.GetString("output"),
		Stats:          viper.GetBool("stats"),
		Timeout:        viper.GetDuration("timeout"),
		MaxInputSize:   viper.GetString("max_input_size"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *filterConfig) validate() error {
	c.InputFormat = strings.ToLower(strings.TrimSpace(c.InputFormat))
	c.Preset = strings.ToLower(strings.TrimSpace(c.Preset))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("flag")
	})
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("--%s %s", e.Field(), formatValidationError(e)))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}

	if c.MaxInputSize != "" {
		n, err := humanize.ParseBytes(c.MaxInputSize)
		if err != nil {
			return fmt.Errorf("invalid --max-input-size %q: %w", c.MaxInputSize, err)
		}
		if n > math.MaxInt64 {
			return fmt.Errorf("invalid --max-input-size %q: too large", c.MaxInputSize)
		}
		c.maxInputBytes = n
	}
	return nil
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(e.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

func runFilter(cmd *cobra.Command, args []string) error {
	cfg, err := loadFilterConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	target := "-"
	if len(args) > 0 {
		target = args[0]
	}
	in, err := loadInput(ctx, cmd, target, cfg)
	if err != nil {
		logger.Error("failed to load input", "source", target, "error", err)
		return err
	}

	root, err := readTree(in, cfg)
	if err != nil {
		logger.Error("failed to read tree", "source", in.Name, "error", err)
		return err
	}

	out, stats, err := applyPreset(root, cfg)
	if err != nil {
		return err
	}
	if stats != nil && cfg.Stats {
		fmt.Fprint(cmd.ErrOrStderr(), formatStats(in, stats))
	}
	if out == nil {
		logger.Info("filters removed the whole tree", "source", in.Name, "preset", cfg.Preset)
	}

	var w io.Writer = cmd.OutOrStdout()
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			logger.Error("failed to create output file", "path", cfg.Output, "error", err)
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	return writeTree(w, out, cfg)
}

func loadInput(ctx context.Context, cmd *cobra.Command, target string, cfg *filterConfig) (*source.Input, error) {
	srcCfg := source.DefaultConfig()
	srcCfg.Timeout = cfg.Timeout
	srcCfg.Stdin = cmd.InOrStdin()
	srcCfg.MaxBytes = int64(cfg.maxInputBytes)

	in, err := source.Load(ctx, target, srcCfg)
	if errors.Is(err, source.ErrTooLarge) {
		return nil, fmt.Errorf("%s: larger than --max-input-size %s: %w",
			target, humanize.Bytes(cfg.maxInputBytes), source.ErrTooLarge)
	}
	return in, err
}

// readTree builds the tree for an input using the configured or detected
// reader.
func readTree(in *source.Input, cfg *filterConfig) (*dom.Node, error) {
	format := cfg.InputFormat
	if format == "" {
		format = source.DetectFormat(in)
		logger.Debug("detected input format", "source", in.Name, "format", format)
	}
	if cfg.Root != "" && format != source.FormatHTML {
		logger.Warn("--root only applies to html input", "format", format)
	}

	switch format {
	case source.FormatHTML:
		var opts []parse.HTMLOption
		if cfg.Root != "" {
			opts = append(opts, parse.WithRootSelector(cfg.Root))
		}
		return parse.HTML(string(in.Data), opts...)
	case source.FormatCDP:
		opts := []parse.CDPOption{parse.WithFrames(!cfg.NoFrames)}
		if len(cfg.ComputedStyles) > 0 {
			opts = append(opts, parse.WithComputedStyles(cfg.ComputedStyles...))
		}
		return parse.CDPJSON(in.Data, opts...)
	case source.FormatTree:
		var n dom.Node
		if err := json.Unmarshal(in.Data, &n); err != nil {
			if errors.Is(err, dom.ErrEmptyTree) {
				return nil, fmt.Errorf("%s: %w (null, every node was removed by an earlier run)", in.Name, err)
			}
			return nil, fmt.Errorf("decode tree: %w", err)
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
}

// applyPreset runs the configured preset. Stats are nil for the none preset.
func applyPreset(root *dom.Node, cfg *filterConfig) (*dom.Node, *filter.Stats, error) {
	if cfg.Preset == presetNone {
		return root, nil, nil
	}
	var opts []filter.Option
	if len(cfg.KeepAttrs) > 0 {
		opts = append(opts, filter.WithKeepAttributes(cfg.KeepAttrs...))
	}
	chain, err := filter.ByName(cfg.Preset, opts...)
	if err != nil {
		return nil, nil, err
	}

	out, stats := chain.ApplyWithStats(root)
	for _, st := range stats.Stages {
		logger.Debug("stage applied",
			"stage", st.Name,
			"elements_in", st.Input.Elements,
			"elements_out", st.Output.Elements,
			"removed_root", st.RemovedRoot,
			"duration", st.Duration)
	}
	return out, stats, nil
}

func formatStats(in *source.Input, stats *filter.Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Input: %s (%s)\n", in.Name, humanize.Bytes(uint64(len(in.Data))))
	fmt.Fprintf(&sb, "Removed: %s of %s elements\n",
		humanize.Comma(int64(stats.ElementsRemoved())), humanize.Comma(int64(stats.Input.Elements)))
	sb.WriteString(stats.String())
	return sb.String()
}

func writeTree(w io.Writer, n *dom.Node, cfg *filterConfig) error {
	writer, err := output.NewWriter(w, output.Format(cfg.Format), output.WithPretty(cfg.Pretty))
	if err != nil {
		logger.Error("failed to create output writer", "format", cfg.Format, "error", err)
		return err
	}
	if err := writer.Write(n); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return writer.Close()
}
