package cmd

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/skintex/internal/export"
	"github.com/MeKo-Tech/skintex/internal/skinpak"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert between PNG folders and skinpak archives",
	Long: `Pack a folder of exported texture maps into a .skinpak archive, or
unpack an archive back into PNG files.

  skintex convert --input-dir ./textures -o skins.skinpak
  skintex convert --from-pak skins.skinpak --output-dir ./unpacked`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().String("input-dir", "./textures", "Input directory containing exported maps (pack mode)")
	convertCmd.Flags().StringP("output", "o", "", "Output .skinpak file path (pack mode)")
	convertCmd.Flags().String("from-pak", "", "Input .skinpak file to unpack into --output-dir")
	convertCmd.Flags().String("name", "Skintex Textures", "Archive name (pack mode)")
	convertCmd.Flags().String("description", "Procedural skin texture sets", "Archive description (pack mode)")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"convert.input_dir", "input-dir"},
		{"convert.output", "output"},
		{"convert.from_pak", "from-pak"},
		{"convert.name", "name"},
		{"convert.description", "description"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, convertCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	if fromPak := viper.GetString("convert.from_pak"); fromPak != "" {
		return runUnpack(fromPak, viper.GetString("output-dir"))
	}
	return runPack(
		viper.GetString("convert.input_dir"),
		viper.GetString("convert.output"),
		viper.GetString("convert.name"),
		viper.GetString("convert.description"),
	)
}

func runPack(inputDir, outputFile, name, description string) error {
	if outputFile == "" {
		return fmt.Errorf("--output is required")
	}
	if _, err := os.Stat(inputDir); os.IsNotExist(err) {
		return fmt.Errorf("input directory does not exist: %s", inputDir)
	}

	logger.Info("Packing texture maps into skinpak",
		"input_dir", inputDir,
		"output", outputFile,
		"name", name,
	)

	files, err := scanMapsDirectory(inputDir)
	if err != nil {
		return fmt.Errorf("failed to scan maps directory: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no texture maps found in %s", inputDir)
	}

	logger.Info("Found texture maps", "count", len(files))

	// Resolution is read off the first decoded map.
	first, err := loadMapFile(files[0].path)
	if err != nil {
		return err
	}
	resolution := first.Width
	first.Dispose()

	metadata := skinpak.Metadata{
		Name:        name,
		Description: description,
		Resolution:  resolution,
		Version:     "1.0",
	}

	writer, err := skinpak.New(outputFile, metadata)
	if err != nil {
		return fmt.Errorf("failed to create skinpak writer: %w", err)
	}
	defer writer.Close() //nolint:errcheck // close after flush is a no-op

	logger.Info("Packing maps...")
	written := 0
	for _, mf := range files {
		buf, err := loadMapFile(mf.path)
		if err != nil {
			logger.Error("Failed to read map", "path", mf.path, "error", err)
			continue
		}

		err = writer.WriteMap(mf.tone, mf.kind, buf)
		buf.Dispose()
		if err != nil {
			logger.Error("Failed to write map", "tone", mf.tone, "kind", mf.kind, "error", err)
			continue
		}
		written++

		if written%20 == 0 {
			logger.Info("Progress", "packed", written, "total", len(files))
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush skinpak: %w", err)
	}

	logger.Info("Packing complete", "output", outputFile, "maps", written)
	return nil
}

func runUnpack(pakPath, outputDir string) error {
	reader, err := skinpak.OpenReader(pakPath)
	if err != nil {
		return err
	}
	defer reader.Close() //nolint:errcheck

	meta, err := reader.Metadata()
	if err != nil {
		return fmt.Errorf("failed to read skinpak metadata: %w", err)
	}

	tones, err := reader.Tones()
	if err != nil {
		return fmt.Errorf("failed to list skinpak tones: %w", err)
	}
	if len(tones) == 0 {
		return fmt.Errorf("no tones stored in %s", pakPath)
	}

	logger.Info("Unpacking skinpak",
		"input", pakPath,
		"name", meta.Name,
		"tones", len(tones),
		"output_dir", outputDir,
	)

	written := 0
	for _, toneHex := range tones {
		tone, err := parseTone(toneHex)
		if err != nil {
			logger.Error("Skipping malformed tone", "tone", toneHex, "error", err)
			continue
		}

		set, err := reader.ReadSet(toneHex)
		if err != nil {
			logger.Error("Failed to read tone", "tone", toneHex, "error", err)
			continue
		}

		paths, err := export.WriteSet(outputDir, tone, set)
		set.Dispose()
		if err != nil {
			return err
		}
		written += len(paths)
		logger.Debug("Tone unpacked", "tone", toneHex, "maps", len(paths))
	}

	logger.Info("Unpacking complete", "output_dir", outputDir, "maps", written)
	return nil
}

type mapFile struct {
	tone string
	kind texture.MapKind
	path string
}

// scanMapsDirectory scans a directory for exported map files.
func scanMapsDirectory(dir string) ([]mapFile, error) {
	// Pattern: {hex}_{kind}.png, e.g. e0ac8a_basecolor.png
	pattern := regexp.MustCompile(`^([0-9a-fA-F]{6})_(basecolor|normal|roughness|sss)\.png$`)

	var files []mapFile
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		matches := pattern.FindStringSubmatch(filepath.Base(path))
		if matches == nil {
			return nil
		}

		files = append(files, mapFile{
			tone: "#" + strings.ToLower(matches[1]),
			kind: texture.MapKind(matches[2]),
			path: path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// loadMapFile decodes one exported PNG back into a texture buffer.
func loadMapFile(path string) (*texture.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open map file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return texture.FromImage(img)
}
