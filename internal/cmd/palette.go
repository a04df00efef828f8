package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/skintex/internal/skintone"
)

var paletteCmd = &cobra.Command{
	Use:   "palette",
	Short: "List the preset skin tone palette",
	Long:  "List the built-in skin tone presets, or find the closest preset for an arbitrary color.",
	RunE:  runPalette,
}

func init() {
	rootCmd.AddCommand(paletteCmd)

	paletteCmd.Flags().String("match", "", "Find the closest preset for a hex color (e.g. \"#c68642\")")

	if err := viper.BindPFlag("palette.match", paletteCmd.Flags().Lookup("match")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func runPalette(cmd *cobra.Command, args []string) error {
	match := viper.GetString("palette.match")
	palette := skintone.DefaultPalette()

	if match != "" {
		tone, err := parseTone(match)
		if err != nil {
			return err
		}
		nearest, dist := skintone.Nearest(tone, palette)
		fmt.Printf("%s -> %s (%s, distance %.3f)\n", tone.Hex, nearest.Hex, nearest.Description, dist)
		return nil
	}

	for _, tone := range palette {
		fmt.Printf("%s  lum=%.3f  %s\n", tone.Hex, tone.Luminance(), tone.Description)
	}
	return nil
}
