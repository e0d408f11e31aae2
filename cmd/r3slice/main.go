package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"r3slice/internal/config"
	"r3slice/internal/logging"
	"r3slice/internal/preview"
	"r3slice/internal/slice"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Slice flags
	inputVolume  string
	outputRaster string
	coordinates  string
	sliceLineOut string
	axesOut      string
	unitsFlag    string
	offsetFlag   string
	previewPath  string
	overwrite    bool

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// skipConfigAnnotation marks commands that must run without a valid config.
const skipConfigAnnotation = "skip-config"

// rootCmd computes a slice
var rootCmd = &cobra.Command{
	Use:   "r3slice",
	Short: "Vertical slice of a GRASS 3D raster along a line",
	Long: `r3slice creates a 2D raster holding a vertical slice of a 3D raster.

The slice follows the line between two horizontal points and is placed with its
lower left corner at (0, 0). Columns are samples along the line and rows are the
depths of the volume, top depth first.

Optionally a vector with the slice line and a labelled axes frame is written.

Example:
  r3slice --input geology --output geology_slice \
    --coordinates 637500,221000,632500,218000 --axes axes --units m,m`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipConfigAnnotation] == "true" {
			return nil
		}
		return initRuntime()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runSlice,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: "+config.DefaultPath()+")")

	flags := rootCmd.Flags()
	flags.StringVarP(&inputVolume, "input", "i", "", "Input 3D raster")
	flags.StringVarP(&outputRaster, "output", "o", "", "Output 2D raster")
	flags.StringVarP(&coordinates, "coordinates", "c", "", "Slice line end points x1,y1,x2,y2")
	flags.StringVar(&sliceLineOut, "slice-line", "", "Vector map receiving the slice line")
	flags.StringVar(&axesOut, "axes", "", "Vector map receiving the labelled axes")
	flags.StringVar(&unitsFlag, "units", "", "Units of the horizontal and vertical axis labels (unit1,unit2)")
	flags.StringVar(&offsetFlag, "offset", "", "Offset of the slice placement in percent of its size (x,y)")
	flags.StringVar(&previewPath, "preview", "", "Write a heatmap of the slice to this image file (.png, .svg, .pdf)")
	flags.BoolVar(&overwrite, "overwrite", false, "Allow output maps to overwrite existing maps")

	_ = rootCmd.MarkFlagRequired("input")
	_ = rootCmd.MarkFlagRequired("output")
	_ = rootCmd.MarkFlagRequired("coordinates")

	rootCmd.AddCommand(sweepCmd, runsCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// initRuntime loads the config and starts logging.
func initRuntime() error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	cfg = loaded

	logger, err = logging.Initialize(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		Categories: cfg.Logging.Categories,
	}, verbose)
	if err != nil {
		return err
	}
	logging.BootDebug("loaded config from %s (mode=%s)", path, cfg.Execution.Mode)
	return nil
}

// signalContext is canceled on SIGINT or SIGTERM so the running module is
// killed and cleanup still happens.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logging.SliceWarn("received %s, cleaning up", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// newRunID returns a token usable inside GRASS map names.
func newRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// sliceRequest builds the request from flags. Input errors are reported
// before anything is executed.
func sliceRequest() (slice.Request, error) {
	line, err := slice.ParseCoordinates(coordinates)
	if err != nil {
		return slice.Request{}, err
	}
	offset, err := slice.ParseOffset(offsetFlag)
	if err != nil {
		return slice.Request{}, err
	}

	req := slice.Request{
		Volume:    inputVolume,
		Output:    outputRaster,
		Line:      line,
		SliceLine: sliceLineOut,
		Axes:      axesOut,
		Units:     slice.ParseUnits(unitsFlag),
		Offset:    offset,
	}
	return req, req.Validate()
}

func runSlice(cmd *cobra.Command, args []string) error {
	req, err := sliceRequest()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	rt, err := newApp(cfg, overwrite)
	if err != nil {
		return err
	}
	defer rt.Close()

	runID := newRunID()
	logger.Debug("starting run", zap.String("run_id", runID), zap.String("input", req.Volume), zap.String("output", req.Output))

	res, err := rt.Slicer(runID).Run(ctx, runID, req)
	logging.SliceDebug("run %s: %s", runID, formatStats(rt.Stats()))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted: %w", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created raster %s (%d rows x %d cols) from %d layers\n",
		req.Output, res.Grid.Rows(), res.Grid.Cols(), len(res.Layers))
	if req.SliceLine != "" {
		fmt.Fprintf(out, "Created vector %s\n", req.SliceLine)
	}
	if req.Axes != "" {
		fmt.Fprintf(out, "Created vector %s with labels %q\n", req.Axes, res.Labels)
	}
	fmt.Fprintf(out, "Ran %s\n", formatStats(rt.Stats()))

	if previewPath != "" {
		if err := preview.Save(res.Grid, previewPath, preview.Options{Title: req.Volume + " along " + coordinates}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote preview %s\n", previewPath)
	}
	return nil
}
