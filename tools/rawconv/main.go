// Command rawconv decodes camera RAW files to PNG or TIFF.
//
// Usage:
//
//	rawconv [-config profile.yaml] [-o out.png] [-format png|png8|tiff]
//	        [-scale f] [-filter name] [-workers n] [-log-level lvl]
//	        [-dicom syntax] [-info] files...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/cocosip/go-raw-codec/batch"
	"github.com/cocosip/go-raw-codec/codec"
	"github.com/cocosip/go-raw-codec/config"
	"github.com/cocosip/go-raw-codec/dicom"
	"github.com/cocosip/go-raw-codec/export"
	"github.com/cocosip/go-raw-codec/raw"
	"github.com/cocosip/go-raw-codec/rawio"
)

func main() {
	a := &app{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		newEngine: newEngine,
		codecs:    codec.RawFormats,
	}
	os.Exit(a.run(context.Background(), os.Args[1:]))
}

type app struct {
	stdout    io.Writer
	stderr    io.Writer
	newEngine func() (raw.Engine, error)
	codecs    func(dec *raw.Decoder) []codec.Codec
}

type options struct {
	cfg      *config.Config
	output   string
	format   string
	infoOnly bool
	inputs   []string
}

func (a *app) parse(args []string) (*options, error) {
	fs := flag.NewFlagSet("rawconv", flag.ContinueOnError)
	fs.SetOutput(a.stderr)

	var (
		configPath = fs.String("config", "", "YAML conversion profile")
		output     = fs.String("o", "", "output file (single input only)")
		format     = fs.String("format", "", "output format: png, png8 or tiff")
		scale      = fs.Float64("scale", 0, "downscale factor in (0, 1]")
		filter     = fs.String("filter", "", "resize filter: triangle, catmullrom, mitchell, lanczos3")
		workers    = fs.Int("workers", 0, "number of files decoded in parallel")
		logLevel   = fs.String("log-level", "", "log level: debug, info, warn, error")
		syntax     = fs.String("dicom", "", "also write a DICOM pixel data frame in this transfer syntax")
		outDir     = fs.String("dir", "", "output directory")
		infoOnly   = fs.Bool("info", false, "print capture information without writing images")
	)
	fs.Usage = func() {
		fmt.Fprintln(a.stderr, "Usage: rawconv [flags] files...")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, errors.New("no input files")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}

	// Flags given on the command line override the profile.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Output.Format = *format
		case "scale":
			cfg.Resize.Scale = *scale
		case "filter":
			cfg.Resize.Filter = *filter
		case "workers":
			cfg.Batch.Workers = *workers
		case "log-level":
			cfg.Log.Level = *logLevel
		case "dicom":
			cfg.DICOM.TransferSyntax = *syntax
		case "dir":
			cfg.Output.Dir = *outDir
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if *output != "" && fs.NArg() > 1 {
		return nil, errors.New("-o needs exactly one input file")
	}

	return &options{
		cfg:      cfg,
		output:   *output,
		format:   cfg.Output.Format,
		infoOnly: *infoOnly,
		inputs:   fs.Args(),
	}, nil
}

func (a *app) run(ctx context.Context, args []string) int {
	opts, err := a.parse(args)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(a.stderr, "rawconv: %v\n", err)
		}
		return 2
	}

	level, _ := opts.cfg.Level()
	logger := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	raw.SetLogger(logger)
	defer raw.SetLogger(nil)

	engine, err := a.newEngine()
	if err != nil {
		logger.Error("no RAW engine", "error", err)
		return 1
	}
	dec := raw.NewDecoder(engine)
	fmt.Fprintf(a.stdout, "Engine version: %s\n", dec.Version())

	reg := codec.NewRegistry()
	for _, c := range a.codecs(dec) {
		reg.Register(c)
	}
	decodeOpts, err := opts.cfg.DecodeOptions()
	if err != nil {
		logger.Error("invalid resize options", "error", err)
		return 2
	}

	var failed atomic.Int32
	jobs := make(chan batch.Job)
	go func() {
		defer close(jobs)
		for _, path := range opts.inputs {
			data, err := rawio.ReadFileLimit(path, opts.cfg.MaxInputBytes())
			if err != nil {
				logger.Error("read failed", "file", path, "error", err)
				failed.Add(1)
				continue
			}
			select {
			case jobs <- batch.Job{Name: path, Data: data}:
			case <-ctx.Done():
				return
			}
		}
	}()

	decoder := batch.DecoderFunc(func(data []byte) (*raw.DecodedResult, error) {
		return reg.Decode(data, decodeOpts)
	})

	for res := range batch.Process(ctx, decoder, jobs, opts.cfg.Batch.Workers) {
		if res.Err != nil {
			logger.Error("decode failed", "file", res.Name, "trace_id", res.TraceID, "error", res.Err)
			failed.Add(1)
			continue
		}
		fmt.Fprintf(a.stdout, "%s\n%s\n", res.Name, indent(res.Image.Summary()))
		if opts.infoOnly {
			continue
		}
		if err := a.save(opts, res); err != nil {
			logger.Error("write failed", "file", res.Name, "error", err)
			failed.Add(1)
		}
	}

	if failed.Load() > 0 {
		return 1
	}
	return 0
}

func (a *app) save(opts *options, res batch.Result) error {
	out, format, err := outputPath(opts, res.Name)
	if err != nil {
		return err
	}
	if err := export.WriteFile(out, res.Image, format); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "  wrote %s\n", out)

	if opts.cfg.DICOM.TransferSyntax == "" {
		return nil
	}
	ts, err := dicom.SyntaxByName(opts.cfg.DICOM.TransferSyntax)
	if err != nil {
		return err
	}
	frame, err := dicom.Transcode(res.Image, ts, nil)
	if err != nil {
		return err
	}
	framePath := strings.TrimSuffix(out, filepath.Ext(out)) + ".frame"
	if err := os.WriteFile(framePath, frame, 0o644); err != nil { //nolint:gosec // output files are world readable
		return err
	}
	fmt.Fprintf(a.stdout, "  wrote %s (%s)\n", framePath, ts.UID().UID())
	return nil
}

// outputPath picks the file and format for input. An explicit -o wins;
// otherwise the input's base name gets the format's extension, in the
// configured directory or next to the input.
func outputPath(opts *options, input string) (string, export.Format, error) {
	var (
		format export.Format
		err    error
	)
	if opts.format != "" {
		format, err = export.ParseFormat(opts.format)
		if err != nil {
			return "", 0, err
		}
	}

	if opts.output != "" {
		if opts.format == "" {
			format, err = export.FormatFor(opts.output)
		}
		return opts.output, format, err
	}

	dir := opts.cfg.Output.Dir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := filepath.Base(input)
	for _, ext := range []string{".zst", ".gz"} {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+format.Ext()), format, nil
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n  ")
}
