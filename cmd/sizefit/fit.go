package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harliandi/go-sizefit/internal/codec"
	"github.com/harliandi/go-sizefit/internal/search"
)

var fitCmd = &cobra.Command{
	Use:   "fit <image>",
	Short: "Re-encode an image into a kilobyte range",
	Args:  cobra.ExactArgs(1),
	RunE:  runFit,
}

func init() {
	fitCmd.Flags().Int("min", 200, "minimum output size in KB")
	fitCmd.Flags().Int("max", 500, "maximum output size in KB")
	fitCmd.Flags().String("format", codec.FormatJPEG, "output format (jpeg or webp)")
	fitCmd.Flags().StringP("out", "o", "", "output file (default: <image>.fit.<ext>)")

	viper.BindPFlag("min", fitCmd.Flags().Lookup("min"))
	viper.BindPFlag("max", fitCmd.Flags().Lookup("max"))
	viper.BindPFlag("format", fitCmd.Flags().Lookup("format"))
}

func runFit(cmd *cobra.Command, args []string) error {
	input := args[0]
	rng := search.Range{MinKB: viper.GetInt("min"), MaxKB: viper.GetInt("max")}
	format := viper.GetString("format")
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = input + ".fit." + extFor(format)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	engine := search.NewEngine(codec.New(format))
	res, err := engine.Fit(context.Background(), data, rng)
	if err != nil {
		if errors.Is(err, search.ErrInvalidRange) {
			return fmt.Errorf("bad range %s: %w", rng, err)
		}
		return err
	}

	if err := os.WriteFile(out, res.Bytes, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %dKB at %dx%d (quality %.2f, %d encode attempts) -> %s\n",
		input, res.SizeKB, res.Width, res.Height, res.Quality, res.Encodes, out)
	if msg := res.Message(); msg != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: "+msg)
	}
	return nil
}

func extFor(format string) string {
	if format == codec.FormatWebP {
		return "webp"
	}
	return "jpg"
}
