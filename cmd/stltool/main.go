// stltool inspects, dumps and renders binary STL models.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-stl/internal/assets"
	"github.com/Faultbox/midgard-stl/internal/config"
	"github.com/Faultbox/midgard-stl/internal/logger"
	"github.com/Faultbox/midgard-stl/internal/preview"
	"github.com/Faultbox/midgard-stl/pkg/mesh"
	"github.com/Faultbox/midgard-stl/pkg/stl"
)

func main() {
	os.Exit(run())
}

func run() int {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()
	logger.Sugar.Debugf("Config: %+v", cfg)

	args := config.Args()
	if len(args) < 1 {
		printUsage()
		return 1
	}

	command := args[0]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return 0
	}
	if command == "config" {
		return cmdConfig(cfg, args[1:])
	}

	files := assets.NewManager(cfg.Data.RootDir, logger.Named("assets"))
	defer files.Close()
	for _, archive := range cfg.Data.Archives {
		logger.Debug("adding archive", zap.String("path", archive))
		if err := files.AddArchive(archive); err != nil {
			logger.Error("failed to add archive", zap.String("path", archive), zap.Error(err))
			return 1
		}
	}

	t := &tool{
		cfg: cfg,
		importer: stl.NewImporter(
			stl.WithLogger(logger.Named("stl")),
			stl.WithFileReader(files),
		),
	}

	switch command {
	case "info":
		return t.cmdInfo(args[1:])
	case "dump":
		return t.cmdDump(args[1:])
	case "render":
		return t.cmdRender(args[1:])
	case "validate", "check":
		return t.cmdValidate(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Println(`stltool - binary STL model utility

Usage:
  stltool [flags] <command> [options]

Commands:
  info <model.stl>                 Show triangle count and bounds
  dump <model.stl>                 Print decoded vertices
  render <model.stl> [output]      Render a preview thumbnail
  validate <model.stl>...          Check files without decoding
  config [path]                    Write the effective config (default: user config dir)

Flags:
  -config <file>    Config file (default ./stltool.yaml)
  -data <dir>       Base directory for model paths
  -archive <a,b>    GRF archives to search (last wins)
  -size <px>        Preview size
  -format <fmt>     Preview format: webp, png
  -debug            Debug logging

Examples:
  stltool info part.stl
  stltool dump -n 9 part.stl
  stltool -archive data.grf render data/model/prontera/fountain.stl fountain.webp
  stltool validate *.stl`)
}

// tool holds what every command needs.
type tool struct {
	cfg      *config.Config
	importer *stl.Importer
}

// load opens path and decodes its single mesh.
func (t *tool) load(path string) (*mesh.Mesh, error) {
	if err := t.importer.OpenFile(path); err != nil {
		return nil, err
	}
	defer t.importer.Close()

	return t.importer.Mesh(0)
}

func (t *tool) cmdInfo(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: stltool info <model.stl>")
		return 1
	}

	m, err := t.load(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		return 1
	}

	b := m.Bounds()
	fmt.Println(titleStyle.Render(args[0]))
	printField("Primitive", m.Primitive.String())
	printField("Triangles", fmt.Sprintf("%d", m.VertexCount()/3))
	printField("Vertices", fmt.Sprintf("%d", m.VertexCount()))
	printField("Vertex data", fmt.Sprintf("%d bytes", len(m.VertexData)))
	for _, a := range m.Attributes {
		printField(a.Kind.String(), fmt.Sprintf("offset %d, stride %d, count %d", a.Offset, a.Stride, a.Count))
	}
	printField("Bounds min", formatVec(b.Min))
	printField("Bounds max", formatVec(b.Max))
	printField("Size", formatVec(b.Size()))
	return 0
}

func (t *tool) cmdDump(args []string) int {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N vertices (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: stltool dump [-n N] <model.stl>")
		return 1
	}

	m, err := t.load(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	positions := m.Vec3s(mesh.Position)
	normals := m.Vec3s(mesh.Normal)
	for i := range positions {
		if *limit > 0 && i >= *limit {
			fmt.Fprintf(os.Stderr, "\n(showing first %d of %d vertices, use -n 0 for all)\n", *limit, len(positions))
			break
		}
		fmt.Printf("%d\t%s\t%s\n", i, formatVec(positions[i]), formatVec(normals[i]))
	}
	return 0
}

func (t *tool) cmdRender(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: stltool render <model.stl> [output]")
		return 1
	}

	input := args[0]
	output := strings.TrimSuffix(filepath.Base(strings.ReplaceAll(input, "\\", "/")), filepath.Ext(input)) +
		"." + t.cfg.Preview.Format
	if len(args) > 1 {
		output = args[1]
	}

	m, err := t.load(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	opts, err := preview.OptionsFromConfig(t.cfg.Preview)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	img, err := preview.Render(m, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering %s: %v\n", input, err)
		return 1
	}

	if err := writePreview(output, img, t.cfg.Preview.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", output, err)
		return 1
	}

	logger.Info("rendered preview",
		zap.String("input", input),
		zap.String("output", output),
		zap.Int("triangles", m.VertexCount()/3))
	fmt.Printf("Rendered: %s\n", output)
	return 0
}

// writePreview encodes img to path. A failed encode or close removes the
// partial file.
func writePreview(path string, img image.Image, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	err = preview.Encode(f, img, format)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			logger.Warn("failed to remove partial preview", zap.String("path", path), zap.Error(rerr))
		}
		return err
	}
	return nil
}

func (t *tool) cmdValidate(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: stltool validate <model.stl>...")
		return 1
	}

	failed := 0
	for _, path := range args {
		if err := t.importer.OpenFile(path); err != nil {
			logger.Warn("validation failed", zap.String("path", path), zap.Error(err))
			fmt.Printf("%s %s: %v\n", errorStyle.Render("FAIL"), path, err)
			failed++
			continue
		}
		fmt.Printf("%s %s (%d triangles)\n", okStyle.Render("OK  "), path, t.importer.TriangleCount())
		t.importer.Close()
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%d of %d files failed\n", failed, len(args))
		return 1
	}
	return 0
}

func cmdConfig(cfg *config.Config, args []string) int {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	saved, err := saveConfig(cfg, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		return 1
	}
	fmt.Printf("Saved config: %s\n", saved)
	return 0
}

// saveConfig writes cfg to path, or to the user config directory when path
// is empty, and returns where it went.
func saveConfig(cfg *config.Config, path string) (string, error) {
	if path == "" {
		return filepath.Join(config.ConfigDir(), "config.yaml"), cfg.Save()
	}
	return path, cfg.SaveTo(path)
}

func formatVec(v [3]float32) string {
	return fmt.Sprintf("%g %g %g", v[0], v[1], v[2])
}
