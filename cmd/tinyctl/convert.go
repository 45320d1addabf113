// Handles the "tinyctl convert" command

package main

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/raynoryim/tinify"
)

var convertCmdConfig struct {
	format     string
	background string
	output     string
}

var convertFormats = map[string]tinify.ImageFormat{
	"png":  tinify.FormatPNG,
	"jpg":  tinify.FormatJPEG,
	"jpeg": tinify.FormatJPEG,
	"webp": tinify.FormatWebP,
	"avif": tinify.FormatAVIF,
}

var convertCmd = &cobra.Command{
	Use:   "convert <image>",
	Short: "Compress an image and convert it to another format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimPrefix(strings.ToLower(convertCmdConfig.format), "image/")
		format, ok := convertFormats[name]
		if !ok {
			return errors.Errorf("unknown format %q (use png, jpg, webp or avif)", convertCmdConfig.format)
		}

		input, err := expandPath(args[0])
		if err != nil {
			return errors.Wrap(err, "Bad input path")
		}
		output := convertCmdConfig.output
		if output == "" {
			output = strings.TrimSuffix(input, filepath.Ext(input)) + "." + name
		}

		ctx := cmd.Context()
		src, err := client.SourceFromFile(ctx, input)
		if err != nil {
			return errors.Wrap(err, "Upload failed")
		}

		res, err := src.Convert(ctx, tinify.ConvertOptions{
			Type:       format,
			Background: convertCmdConfig.background,
		})
		if err != nil {
			return errors.Wrap(err, "Convert failed")
		}
		log.WithField("content_type", res.ContentType()).Debug("converted")

		return saveResult(res, input, output)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertCmdConfig.format, "type", "t", "", "target format: png, jpg, webp or avif (required)")
	convertCmd.Flags().StringVarP(&convertCmdConfig.background, "background", "b", "", "fill for transparent regions, e.g. white or #FAFAFA")
	convertCmd.Flags().StringVarP(&convertCmdConfig.output, "output", "o", "", "output path (default <input>.<type>)")
	convertCmd.MarkFlagRequired("type")
}
