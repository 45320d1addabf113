// Root of command-line argument parsing.
// This file was based off the standard cobra template, see
// https://github.com/spf13/cobra
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raynoryim/tinify"
)

const version = "0.3.0"

var (
	cfgFile string
	verbose bool

	log = logrus.New()

	// conf is a private viper context so embedding tinyctl in other tools
	// does not clash with their configuration.
	conf = viper.New()

	client *tinify.Client
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tinyctl",
	Short: "Compress, resize and convert images with the Tinify API",
	Long: `tinyctl drives the Tinify image compression service (the API behind
TinyPNG and TinyJPG) from the command line.

An API key is required: set TINIFY_API_KEY, or put "api_key: ..." into
~/.tinyctl.yaml.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
		if err := initConfig(); err != nil {
			return err
		}
		return initClient()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main(). It only needs to happen once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func initConfig() error {
	conf.SetDefault("timeout", 30*time.Second)
	conf.SetDefault("app_identifier", "tinyctl/"+version)

	// Order of precedence: ENV, .tinyctl.yaml, defaults.
	conf.BindEnv("api_key", "TINIFY_API_KEY")
	conf.BindEnv("store.s3.access_key_id", "AWS_ACCESS_KEY_ID")
	conf.BindEnv("store.s3.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	conf.BindEnv("store.s3.region", "AWS_REGION")
	conf.BindEnv("store.gcs.access_token", "GCP_ACCESS_TOKEN")

	if cfgFile != "" {
		// Use config file from the flag.
		conf.SetConfigFile(cfgFile)
	} else {
		if home, err := homedir.Dir(); err == nil {
			conf.AddConfigPath(home)
		}
		conf.AddConfigPath(".")
		conf.SetConfigName(".tinyctl")
	}

	if err := conf.ReadInConfig(); err != nil {
		// Missing config is fine unless one was named explicitly; env vars
		// and flags can carry everything.
		if cfgFile != "" {
			return errors.Wrap(err, "Failed to load config")
		}
	} else {
		log.WithField("file", conf.ConfigFileUsed()).Debug("loaded config")
	}
	return nil
}

func initClient() error {
	key := conf.GetString("api_key")
	if key == "" {
		return errors.New("no API key configured (set TINIFY_API_KEY or api_key in ~/.tinyctl.yaml)")
	}

	opts := []tinify.Option{
		tinify.WithAppIdentifier(conf.GetString("app_identifier")),
		tinify.WithTimeout(conf.GetDuration("timeout")),
	}
	if verbose {
		opts = append(opts, tinify.WithLogger(log))
	}

	var err error
	client, err = tinify.NewClient(key, opts...)
	if err != nil {
		return errors.Wrap(err, "Failed to create API client")
	}
	return nil
}

// expandPath resolves a leading ~ in user-supplied paths.
func expandPath(p string) (string, error) {
	return homedir.Expand(p)
}

// defaultOutput derives an output path: photo.png becomes photo.tiny.png.
func defaultOutput(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".tiny" + ext
}

func parseKeyValue(s string) map[string]string {
	if s == "" {
		return nil
	}

	result := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		keyValue := strings.SplitN(pair, "=", 2)
		if len(keyValue) == 2 {
			result[keyValue[0]] = keyValue[1]
		}
	}

	return result
}

// saveResult writes a transform result next to the input unless -o was given.
func saveResult(res *tinify.Result, input, output string) error {
	if output == "" {
		output = defaultOutput(input)
	}
	if err := res.ToFile(output); err != nil {
		return errors.Wrap(err, "Saving output failed")
	}
	fmt.Printf("%s -> %s\n", input, output)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tinyctl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
