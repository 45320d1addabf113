package tinify

import "encoding/json"

// ResizeMethod selects how the API fits an image into the requested box.
type ResizeMethod string

const (
	// ResizeScale scales proportionally; set exactly one dimension.
	ResizeScale ResizeMethod = "scale"
	// ResizeFit scales down so the image fits within width x height.
	ResizeFit ResizeMethod = "fit"
	// ResizeCover fills width x height exactly, cropping the overflow.
	ResizeCover ResizeMethod = "cover"
	// ResizeThumb is cover with content-aware cropping for small previews.
	ResizeThumb ResizeMethod = "thumb"
)

// ResizeOptions describes a resize operation. A zero Width or Height leaves
// that dimension unconstrained; at least one must be set.
type ResizeOptions struct {
	Method ResizeMethod `json:"method"`
	Width  int          `json:"width,omitempty"`
	Height int          `json:"height,omitempty"`
}

// ImageFormat is a target media type for Convert.
type ImageFormat string

const (
	FormatJPEG ImageFormat = "image/jpeg"
	FormatPNG  ImageFormat = "image/png"
	FormatWebP ImageFormat = "image/webp"
	FormatAVIF ImageFormat = "image/avif"
)

// ConvertOptions describes a format conversion. Background fills transparent
// regions when the target format has no alpha channel; it accepts "white",
// "black" or a "#RRGGBB" value.
type ConvertOptions struct {
	Type       ImageFormat `json:"type"`
	Background string      `json:"background,omitempty"`
}

// Preserve names a metadata category to carry through compression.
type Preserve string

const (
	PreserveCopyright Preserve = "copyright"
	PreserveCreation  Preserve = "creation"
	PreserveLocation  Preserve = "location"
)

// StoreOptions configures a provider-side transfer of the processed image
// into a cloud bucket. S3Store and GCSStore are the two implementations; the
// marshalled form carries a "service" discriminator next to the credentials.
type StoreOptions interface {
	json.Marshaler

	service() string
}

// S3Store stores the processed image in an Amazon S3 bucket. Path is
// "bucket/object-key". Headers become headers of the stored object; ACL is
// an S3 canned ACL such as "public-read".
type S3Store struct {
	AccessKeyID     string            `json:"aws_access_key_id"`
	SecretAccessKey string            `json:"aws_secret_access_key"`
	Region          string            `json:"region"`
	Path            string            `json:"path"`
	Headers         map[string]string `json:"headers,omitempty"`
	ACL             string            `json:"acl,omitempty"`
}

func (S3Store) service() string { return "s3" }

func (o S3Store) MarshalJSON() ([]byte, error) {
	type plain S3Store
	return json.Marshal(struct {
		Service string `json:"service"`
		plain
	}{o.service(), plain(o)})
}

// GCSStore stores the processed image in a Google Cloud Storage bucket.
// AccessToken is a short-lived OAuth2 token; Path is "bucket/object-name".
type GCSStore struct {
	AccessToken string            `json:"gcp_access_token"`
	Path        string            `json:"path"`
	Headers     map[string]string `json:"headers,omitempty"`
}

func (GCSStore) service() string { return "gcs" }

func (o GCSStore) MarshalJSON() ([]byte, error) {
	type plain GCSStore
	return json.Marshal(struct {
		Service string `json:"service"`
		plain
	}{o.service(), plain(o)})
}
