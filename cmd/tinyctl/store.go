// Handles the "tinyctl store" commands

package main

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/raynoryim/tinify"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Compress an image and deliver it into cloud storage",
	Long: `The API writes the compressed image into the bucket itself; the
image bytes never travel back to this machine.`,
}

var storeS3CmdConfig struct {
	region  string
	path    string
	acl     string
	headers string
	verify  bool
}

var storeS3Cmd = &cobra.Command{
	Use:   "s3 <image>",
	Short: "Store the compressed image in an Amazon S3 bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accessKey := conf.GetString("store.s3.access_key_id")
		secretKey := conf.GetString("store.s3.secret_access_key")
		if accessKey == "" || secretKey == "" {
			return errors.New("missing S3 credentials (set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY)")
		}
		region := storeS3CmdConfig.region
		if region == "" {
			region = conf.GetString("store.s3.region")
		}
		if region == "" {
			return errors.New("missing S3 region (set AWS_REGION or --region)")
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

		res, err := src.Store(ctx, tinify.S3Store{
			AccessKeyID:     accessKey,
			SecretAccessKey: secretKey,
			Region:          region,
			Path:            storeS3CmdConfig.path,
			Headers:         parseKeyValue(storeS3CmdConfig.headers),
			ACL:             storeS3CmdConfig.acl,
		})
		if err != nil {
			return errors.Wrap(err, "Store failed")
		}
		if count, ok := res.CompressionCount(); ok {
			log.WithField("compression_count", count).Debug("stored")
		}
		fmt.Printf("%s -> s3://%s\n", input, storeS3CmdConfig.path)

		if storeS3CmdConfig.verify {
			if err := verifyS3Object(region, storeS3CmdConfig.path); err != nil {
				return errors.Wrap(err, "Verification failed")
			}
			fmt.Println("Verified: object is in place")
		}
		return nil
	},
}

var storeGCSCmdConfig struct {
	path    string
	headers string
}

var storeGCSCmd = &cobra.Command{
	Use:   "gcs <image>",
	Short: "Store the compressed image in a Google Cloud Storage bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := conf.GetString("store.gcs.access_token")
		if token == "" {
			return errors.New("missing GCS credentials (set GCP_ACCESS_TOKEN)")
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

		_, err = src.Store(ctx, tinify.GCSStore{
			AccessToken: token,
			Path:        storeGCSCmdConfig.path,
			Headers:     parseKeyValue(storeGCSCmdConfig.headers),
		})
		if err != nil {
			return errors.Wrap(err, "Store failed")
		}
		fmt.Printf("%s -> gs://%s\n", input, storeGCSCmdConfig.path)
		return nil
	},
}

// verifyS3Object heads the stored object to confirm the provider-side
// transfer landed.
func verifyS3Object(region, storePath string) error {
	bucket, key, found := strings.Cut(storePath, "/")
	if !found || key == "" {
		return errors.Errorf("store path %q must be bucket/key", storePath)
	}

	sess := session.Must(session.NewSession())
	svc := s3.New(sess, &aws.Config{Region: aws.String(region)})

	_, err := svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeS3Cmd)
	storeCmd.AddCommand(storeGCSCmd)

	storeS3Cmd.Flags().StringVar(&storeS3CmdConfig.region, "region", "", "S3 region (default from AWS_REGION)")
	storeS3Cmd.Flags().StringVarP(&storeS3CmdConfig.path, "path", "p", "", "target as bucket/key (required)")
	storeS3Cmd.Flags().StringVar(&storeS3CmdConfig.acl, "acl", "", "canned ACL for the stored object, e.g. public-read")
	storeS3Cmd.Flags().StringVar(&storeS3CmdConfig.headers, "header", "", "headers for the stored object: key1=value1,key2=value2")
	storeS3Cmd.Flags().BoolVar(&storeS3CmdConfig.verify, "verify", false, "HeadObject the stored key afterwards to confirm delivery")
	storeS3Cmd.MarkFlagRequired("path")

	storeGCSCmd.Flags().StringVarP(&storeGCSCmdConfig.path, "path", "p", "", "target as bucket/object (required)")
	storeGCSCmd.Flags().StringVar(&storeGCSCmdConfig.headers, "header", "", "headers for the stored object: key1=value1,key2=value2")
	storeGCSCmd.MarkFlagRequired("path")
}
