// Handles the "tinyctl preserve" command

package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/raynoryim/tinify"
)

var preserveCmdConfig struct {
	keep   []string
	output string
}

var preserveKeys = map[string]tinify.Preserve{
	"copyright": tinify.PreserveCopyright,
	"creation":  tinify.PreserveCreation,
	"location":  tinify.PreserveLocation,
}

var preserveCmd = &cobra.Command{
	Use:   "preserve <image>",
	Short: "Compress an image while keeping selected metadata",
	Long: `Compression normally strips all metadata. This keeps the named
categories: copyright (copyright notices), creation (the creation date,
JPEG only), location (GPS data, JPEG only).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := make([]tinify.Preserve, 0, len(preserveCmdConfig.keep))
		for _, name := range preserveCmdConfig.keep {
			key, ok := preserveKeys[name]
			if !ok {
				return errors.Errorf("unknown metadata category %q (use copyright, creation or location)", name)
			}
			keys = append(keys, key)
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

		res, err := src.Preserve(ctx, keys...)
		if err != nil {
			return errors.Wrap(err, "Preserve failed")
		}

		return saveResult(res, input, preserveCmdConfig.output)
	},
}

func init() {
	rootCmd.AddCommand(preserveCmd)

	preserveCmd.Flags().StringSliceVarP(&preserveCmdConfig.keep, "keep", "k", []string{"copyright"}, "metadata to keep: copyright, creation, location")
	preserveCmd.Flags().StringVarP(&preserveCmdConfig.output, "output", "o", "", "output path (default <input>.tiny.<ext>)")
}
