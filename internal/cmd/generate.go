package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/skintex/internal/export"
	"github.com/MeKo-Tech/skintex/internal/noise"
	"github.com/MeKo-Tech/skintex/internal/skin"
	"github.com/MeKo-Tech/skintex/internal/skinpak"
	"github.com/MeKo-Tech/skintex/internal/skintone"
	"github.com/MeKo-Tech/skintex/internal/worker"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Bake skin texture sets",
	Long: `Bake procedural skin texture sets and export them as PNG files or a
.skinpak archive.

A single tone is baked synchronously:

  skintex generate --tone "#e0ac8a"

A batch bakes several tones on a worker pool:

  skintex generate --palette --format skinpak --output-file skins.skinpak
  skintex generate --tones "#f1c2a1,#b47f5a,#552e1f" --sheet`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("tone", "", "Bake a single tone (hex, e.g. \"#e0ac8a\")")
	generateCmd.Flags().String("tones", "", "Comma-separated tone hexes for a batch bake")
	generateCmd.Flags().Bool("palette", false, "Bake every preset palette tone")
	generateCmd.Flags().Int("resolution", 512, "Texture resolution in pixels (square)")
	generateCmd.Flags().String("detail", "medium", "Pore detail level (low, medium, high, ultra)")
	generateCmd.Flags().Bool("sss", true, "Bake subsurface scattering maps")
	generateCmd.Flags().Float64("variation", 1.0, "Base color variation intensity (0-1)")
	generateCmd.Flags().Float64("pore-intensity", 1.0, "Pore depth intensity (0-1)")
	generateCmd.Flags().Float64("imperfection", 1.0, "Roughness imperfection intensity (0-1)")
	generateCmd.Flags().String("noise", "value", "Noise primitive (value, perlin)")
	generateCmd.Flags().Int64("seed", 0, "Offset applied to the built-in noise seeds (0 keeps the canonical look)")
	generateCmd.Flags().IntP("workers", "w", 0, "Number of parallel bake workers (default: number of CPUs)")
	generateCmd.Flags().Bool("progress", true, "Show progress during batch bakes")
	generateCmd.Flags().Bool("allow-failures", false, "Continue a batch bake even if some tones fail")
	generateCmd.Flags().String("format", "folder", "Output format: folder (PNG files) or skinpak")
	generateCmd.Flags().String("output-file", "", "Output file path for skinpak format (e.g., skins.skinpak)")
	generateCmd.Flags().Bool("sheet", false, "Also render a palette contact sheet PNG")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"generate.tone", "tone"},
		{"generate.tones", "tones"},
		{"generate.palette", "palette"},
		{"generate.resolution", "resolution"},
		{"generate.detail", "detail"},
		{"generate.sss", "sss"},
		{"generate.variation", "variation"},
		{"generate.pore_intensity", "pore-intensity"},
		{"generate.imperfection", "imperfection"},
		{"generate.noise", "noise"},
		{"generate.seed", "seed"},
		{"generate.workers", "workers"},
		{"generate.progress", "progress"},
		{"generate.allow_failures", "allow-failures"},
		{"generate.format", "format"},
		{"generate.output_file", "output-file"},
		{"generate.sheet", "sheet"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, generateCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	format := viper.GetString("generate.format")
	if format != "folder" && format != "skinpak" {
		return fmt.Errorf("invalid format %q: must be 'folder' or 'skinpak'", format)
	}
	if format == "skinpak" && viper.GetString("generate.output_file") == "" {
		return fmt.Errorf("--output-file is required when using --format=skinpak")
	}

	detail, err := skin.ParseDetailLevel(viper.GetString("generate.detail"))
	if err != nil {
		return err
	}
	source, err := noiseFactory(viper.GetString("generate.noise"), viper.GetInt64("generate.seed"))
	if err != nil {
		return err
	}

	params := skin.Params{
		Resolution:    viper.GetInt("generate.resolution"),
		Detail:        detail,
		IncludeSSS:    viper.GetBool("generate.sss"),
		Source:        source,
		Variation:     viper.GetFloat64("generate.variation"),
		PoreIntensity: viper.GetFloat64("generate.pore_intensity"),
		Imperfection:  viper.GetFloat64("generate.imperfection"),
	}
	if err := params.Validate(); err != nil {
		return err
	}

	tones, single, err := resolveTones(
		viper.GetString("generate.tone"),
		viper.GetString("generate.tones"),
		viper.GetBool("generate.palette"),
	)
	if err != nil {
		return err
	}

	outputDir := viper.GetString("output-dir")

	if single {
		if format == "skinpak" {
			return fmt.Errorf("skinpak format requires a batch bake (use --tones or --palette)")
		}
		return runSingleGenerate(tones[0], params, outputDir)
	}

	return runBatchGenerate(tones, params, batchOptions{
		workers:       viper.GetInt("generate.workers"),
		showProgress:  viper.GetBool("generate.progress"),
		allowFailures: viper.GetBool("generate.allow_failures"),
		outputDir:     outputDir,
		format:        format,
		outputFile:    viper.GetString("generate.output_file"),
		sheet:         viper.GetBool("generate.sheet"),
	})
}

func runSingleGenerate(tone skintone.Descriptor, params skin.Params, outputDir string) error {
	logger.Info("Baking texture set",
		"tone", tone.Hex,
		"resolution", params.Resolution,
		"detail", params.Detail,
		"sss", params.IncludeSSS,
	)

	start := time.Now()
	set, err := skin.GenerateSet(tone, params)
	if err != nil {
		return fmt.Errorf("failed to bake texture set: %w", err)
	}
	defer set.Dispose()

	paths, err := export.WriteSet(outputDir, tone, set)
	if err != nil {
		return err
	}

	logger.Info("Texture set baked",
		"tone", tone.Hex,
		"maps", len(paths),
		"dir", outputDir,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

type batchOptions struct {
	workers       int
	showProgress  bool
	allowFailures bool
	outputDir     string
	format        string
	outputFile    string
	sheet         bool
}

func runBatchGenerate(tones []skintone.Descriptor, params skin.Params, opts batchOptions) error {
	workers := opts.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	logger.Info("Starting batch texture bake",
		"tones", len(tones),
		"resolution", params.Resolution,
		"detail", params.Detail,
		"workers", workers,
		"format", opts.format,
	)

	var pakWriter *skinpak.Writer
	if opts.format == "skinpak" {
		metadata := skinpak.Metadata{
			Name:        "Skintex Textures",
			Description: "Procedural skin texture sets",
			Resolution:  params.Resolution,
			Detail:      string(params.Detail),
			Version:     "1.0",
		}
		var err error
		pakWriter, err = skinpak.New(opts.outputFile, metadata)
		if err != nil {
			return fmt.Errorf("failed to create skinpak writer: %w", err)
		}
		defer pakWriter.Close() //nolint:errcheck // close after flush is a no-op
		logger.Info("Skinpak writer created", "path", opts.outputFile)
	}

	baker := &setBaker{
		params:  params,
		outDir:  opts.outputDir,
		pak:     pakWriter,
		pakPath: opts.outputFile,
		keep:    opts.sheet,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received interrupt signal, cancelling...")
		cancel()
	}()

	tasks := make([]worker.Task, 0, len(tones))
	for _, tone := range tones {
		tasks = append(tasks, worker.Task{Tone: tone})
	}

	progress := worker.NewProgress(len(tasks), opts.showProgress)

	pool := worker.New(worker.Config{
		Workers:    workers,
		Baker:      baker,
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	var failedCount int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Tone bake failed", "tone", r.Task.Tone.Hex, "error", r.Err)
		}
	}

	logger.Info(progress.Summary())

	if failedCount > 0 {
		if !opts.allowFailures {
			return fmt.Errorf("%d tones failed to bake", failedCount)
		}
		logger.Warn("Some tones failed to bake, but continuing due to --allow-failures flag",
			"failed_count", failedCount)
	}

	if opts.format == "skinpak" {
		logger.Info("Flushing skinpak database...")
		if err := pakWriter.Flush(); err != nil {
			return fmt.Errorf("failed to flush skinpak: %w", err)
		}
		logger.Info("Skinpak generation complete", "path", opts.outputFile)
	}

	if opts.sheet {
		sheetPath, err := baker.writeSheet(opts.outputDir)
		if err != nil {
			return fmt.Errorf("failed to render contact sheet: %w", err)
		}
		logger.Info("Contact sheet written", "path", sheetPath)
	}

	return nil
}

// setBaker bakes one texture set per task and writes it to the
// configured destination.
type setBaker struct {
	params  skin.Params
	outDir  string
	pak     *skinpak.Writer // nil in folder mode
	pakPath string
	keep    bool // retain sets for the contact sheet

	mu   sync.Mutex
	kept []export.SheetEntry
}

func (b *setBaker) Bake(ctx context.Context, tone skintone.Descriptor) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	set, err := skin.GenerateSet(tone, b.params)
	if err != nil {
		return "", err
	}

	if b.keep {
		b.mu.Lock()
		b.kept = append(b.kept, export.SheetEntry{Tone: tone, Set: set})
		b.mu.Unlock()
	} else {
		defer set.Dispose()
	}

	if b.pak != nil {
		if err := b.pak.WriteSet(tone, set); err != nil {
			return "", err
		}
		return b.pakPath, nil
	}

	if _, err := export.WriteSet(b.outDir, tone, set); err != nil {
		return "", err
	}
	return b.outDir, nil
}

// writeSheet renders the kept sets light-to-dark into one overview PNG
// and releases them.
func (b *setBaker) writeSheet(dir string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sort.Slice(b.kept, func(i, j int) bool {
		return b.kept[i].Tone.Luminance() > b.kept[j].Tone.Luminance()
	})

	img, err := export.ContactSheet(b.kept, 0)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, "palette_sheet.png")
	if err := export.WriteImage(path, img); err != nil {
		return "", err
	}

	for _, e := range b.kept {
		e.Set.Dispose()
	}
	b.kept = nil
	return path, nil
}

// resolveTones picks the tone list from the three selector flags. The
// single result reports whether the bake came from --tone.
func resolveTones(tone, tones string, palette bool) ([]skintone.Descriptor, bool, error) {
	switch {
	case palette:
		return skintone.DefaultPalette(), false, nil
	case tones != "":
		list, err := parseToneList(tones)
		if err != nil {
			return nil, false, err
		}
		return list, false, nil
	case tone != "":
		d, err := parseTone(tone)
		if err != nil {
			return nil, false, err
		}
		return []skintone.Descriptor{d}, true, nil
	default:
		return nil, false, fmt.Errorf("nothing to bake: pass --tone, --tones or --palette")
	}
}

// parseTone accepts "#rrggbb" or bare "rrggbb".
func parseTone(s string) (skintone.Descriptor, error) {
	hex := strings.TrimSpace(s)
	if hex != "" && !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	return skintone.Parse(hex, "")
}

// parseToneList splits a comma-separated list of tone hexes, dropping
// blanks and duplicates.
func parseToneList(s string) ([]skintone.Descriptor, error) {
	parts := strings.Split(s, ",")
	tones := make([]skintone.Descriptor, 0, len(parts))
	seen := make(map[skintone.Key]bool)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tone, err := parseTone(part)
		if err != nil {
			return nil, err
		}
		if seen[tone.Key()] {
			continue
		}
		seen[tone.Key()] = true
		tones = append(tones, tone)
	}
	if len(tones) == 0 {
		return nil, fmt.Errorf("no tones in list %q", s)
	}
	return tones, nil
}

// noiseFactory maps a primitive name to a source factory. A nonzero
// seed offset shifts every built-in generator seed, giving a different
// but still deterministic look.
func noiseFactory(name string, seed int64) (skin.SourceFactory, error) {
	var base skin.SourceFactory
	switch name {
	case "value":
		base = func(s int64) noise.Source { return noise.NewValueSource(s) }
	case "perlin":
		base = func(s int64) noise.Source { return noise.NewPerlinSource(s) }
	default:
		return nil, fmt.Errorf("unknown noise primitive %q: must be 'value' or 'perlin'", name)
	}
	if seed == 0 {
		return base, nil
	}
	return func(s int64) noise.Source { return base(s + seed) }, nil
}
