// Package main is the sizefit CLI: re-encode an image so its file size
// lands inside a requested kilobyte range.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "sizefit",
	Short: "Re-encode images to a target file-size range",
	Long: `sizefit re-encodes a raster image (JPEG, PNG, GIF, WebP or HEIF input)
so the encoded output lands inside a [min,max] kilobyte range, trading
lossy quality first and pixel dimensions second. When the range cannot be
hit, the closest achievable result is still written and the shortfall or
overshoot is reported on stderr.`,
	Version: version,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(fitCmd)
}

func initConfig() {
	viper.SetEnvPrefix("SIZEFIT")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
