// Handles the "tinyctl shrink" command

package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var shrinkCmdConfig struct {
	output string
}

var shrinkCmd = &cobra.Command{
	Use:   "shrink <image>",
	Short: "Compress an image without changing its dimensions",
	Long: `Uploads the image, lets the API recompress it, and downloads the
smaller file. PNG, JPEG and WebP inputs up to 5 MiB are accepted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := expandPath(args[0])
		if err != nil {
			return errors.Wrap(err, "Bad input path")
		}
		output := shrinkCmdConfig.output
		if output == "" {
			output = defaultOutput(input)
		}

		ctx := cmd.Context()
		src, err := client.SourceFromFile(ctx, input)
		if err != nil {
			return errors.Wrap(err, "Upload failed")
		}
		log.WithField("location", src.Location()).Debug("uploaded")

		if err := src.ToFile(ctx, output); err != nil {
			return errors.Wrap(err, "Download failed")
		}
		fmt.Printf("%s -> %s\n", input, output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shrinkCmd)

	shrinkCmd.Flags().StringVarP(&shrinkCmdConfig.output, "output", "o", "", "output path (default <input>.tiny.<ext>)")
}
