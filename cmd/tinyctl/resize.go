// Handles the "tinyctl resize" command

package main

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/raynoryim/tinify"
)

var resizeCmdConfig struct {
	method string
	width  int
	height int
	output string
}

var resizeMethods = map[string]tinify.ResizeMethod{
	"scale": tinify.ResizeScale,
	"fit":   tinify.ResizeFit,
	"cover": tinify.ResizeCover,
	"thumb": tinify.ResizeThumb,
}

var resizeCmd = &cobra.Command{
	Use:   "resize <image>",
	Short: "Compress and resize an image",
	Long: `Resizes while compressing. Methods: scale (one dimension, keeps
aspect ratio), fit (shrinks into the box), cover (fills the box, crops),
thumb (cover with content-aware cropping).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		method, ok := resizeMethods[resizeCmdConfig.method]
		if !ok {
			return errors.Errorf("unknown method %q (use scale, fit, cover or thumb)", resizeCmdConfig.method)
		}

		input, err := expandPath(args[0])
		if err != nil {
			return errors.Wrap(err, "Bad input path")
		}

		ctx := cmd.Context()
		src, err := client.SourceFromFile(ctx, input)
		if err != nil {
			return errors.Wrap(err, "Upload failed")
		}

		res, err := src.Resize(ctx, tinify.ResizeOptions{
			Method: method,
			Width:  resizeCmdConfig.width,
			Height: resizeCmdConfig.height,
		})
		if err != nil {
			return errors.Wrap(err, "Resize failed")
		}
		if width, ok := res.ImageWidth(); ok {
			height, _ := res.ImageHeight()
			log.WithFields(logrus.Fields{"width": width, "height": height}).Debug("resized")
		}

		return saveResult(res, input, resizeCmdConfig.output)
	},
}

func init() {
	rootCmd.AddCommand(resizeCmd)

	resizeCmd.Flags().StringVarP(&resizeCmdConfig.method, "method", "m", "fit", "resize method: scale, fit, cover or thumb")
	resizeCmd.Flags().IntVarP(&resizeCmdConfig.width, "width", "W", 0, "target width in pixels")
	resizeCmd.Flags().IntVarP(&resizeCmdConfig.height, "height", "H", 0, "target height in pixels")
	resizeCmd.Flags().StringVarP(&resizeCmdConfig.output, "output", "o", "", "output path (default <input>.tiny.<ext>)")
}
