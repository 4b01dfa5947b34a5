package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/WenSimEHRP/paiagram/internal/config"
	"github.com/WenSimEHRP/paiagram/internal/layout"
	"github.com/WenSimEHRP/paiagram/internal/logging"
	"github.com/WenSimEHRP/paiagram/internal/network"
	"github.com/WenSimEHRP/paiagram/internal/render"
)

var errUnknownFormat = errors.New("unknown output format")

type options struct {
	networkFile string
	configFile  string
	outputDir   string
	format      string
}

// formats returns the file extensions selected by --format.
func (o options) formats() ([]string, error) {
	switch strings.ToLower(o.format) {
	case "svg":
		return []string{".svg"}, nil
	case "yaml":
		return []string{".yaml"}, nil
	case "both":
		return []string{".svg", ".yaml"}, nil
	default:
		return nil, fmt.Errorf("%w %q, expected svg, yaml or both", errUnknownFormat, o.format)
	}
}

// getOutputFilename places a diagram file in the output directory. Path
// separators in the diagram name are replaced so every file stays inside it.
func getOutputFilename(dir, name, ext string) string {
	base := strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	return filepath.Join(dir, base+ext)
}

// run builds every configured diagram concurrently and returns the written
// paths in diagram order.
func run(ctx context.Context, opts options, logger *zap.Logger) ([]string, error) {
	exts, err := opts.formats()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded",
		zap.Int("diagrams", len(cfg.Diagrams)),
		zap.Float64("unit_length", cfg.UnitLength),
		zap.Stringer("position_axis_scale_mode", cfg.PositionAxisScaleMode))

	net, err := network.Load(opts.networkFile)
	if err != nil {
		return nil, err
	}
	logger.Debug("network loaded",
		zap.String("file", opts.networkFile),
		zap.Int("stations", len(net.Stations)),
		zap.Int("trains", len(net.Trains)),
		zap.Int("intervals", len(net.Intervals)))

	if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}

	written := make([][]string, len(cfg.Diagrams))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, d := range cfg.Diagrams {
		g.Go(func() error {
			out, err := layout.Build(ctx, net, d, cfg, logger)
			if err != nil {
				return err
			}
			for _, ext := range exts {
				path := getOutputFilename(opts.outputDir, d.Name, ext)
				if err := writeDiagram(path, ext, out, cfg); err != nil {
					return err
				}
				written[i] = append(written[i], path)
			}
			logger.Info("diagram built",
				zap.String("diagram", d.Name),
				zap.Int("trains", len(out.Trains)),
				zap.Strings("skipped", out.Skipped))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var paths []string
	for _, p := range written {
		paths = append(paths, p...)
	}
	return paths, nil
}

func writeDiagram(path, ext string, d *layout.Diagram, cfg config.Config) error {
	var buf bytes.Buffer
	switch ext {
	case ".svg":
		if err := render.SVG(&buf, d, cfg); err != nil {
			return err
		}
	case ".yaml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("error encoding diagram %q: %w", d.Name, err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("error encoding diagram %q: %w", d.Name, err)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s [options]\n", os.Args[0])
	fmt.Fprintf(w, "\nOptions:\n")
	fmt.Fprintf(w, "  --network <file>    YAML network with stations, intervals and trains (required)\n")
	fmt.Fprintf(w, "  --config <file>     YAML configuration with the diagrams to draw (required for output)\n")
	fmt.Fprintf(w, "  --output <dir>      Directory for the generated files (default: current directory)\n")
	fmt.Fprintf(w, "  --format <fmt>      svg, yaml or both (default: svg)\n")
	fmt.Fprintf(w, "  --debug             Enable debug logging\n")
	fmt.Fprintf(w, "\nEach configured diagram is written to <output>/<name>.svg and/or <name>.yaml.\n")
	fmt.Fprintf(w, "\nExample:\n")
	fmt.Fprintf(w, "  %s --network network.yaml --config diagrams.yaml --output out --format both\n", os.Args[0])
}

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	networkFile := flag.String("network", "", "YAML network file (required)")
	configFile := flag.String("config", "", "YAML configuration file")
	outputDir := flag.String("output", ".", "Output directory")
	format := flag.String("format", "svg", "Output format: svg, yaml or both")

	flag.Usage = func() { usage(os.Stderr) }
	flag.Parse()

	if *networkFile == "" {
		fmt.Fprintf(os.Stderr, "Error: network file is required. Use --network to specify the file.\n\n")
		flag.Usage()
		os.Exit(1)
	}

	logger, err := logging.New(*debugFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	paths, err := run(ctx, options{
		networkFile: *networkFile,
		configFile:  *configFile,
		outputDir:   *outputDir,
		format:      *format,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating diagrams: %v\n", err)
		stop()
		logger.Sync() //nolint:errcheck
		os.Exit(1)
	}

	for _, p := range paths {
		fmt.Printf("Diagram generated successfully: %s\n", p)
	}
}
