package tinify

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Source is a handle to an image uploaded to the API, identified by the
// Location URL the upload returned. Transform operations post against that
// location; a Source can be reused for any number of operations.
type Source struct {
	location string
	client   *Client
}

// Location returns the server-side URL identifying the uploaded image.
func (s *Source) Location() string { return s.location }

// SourceFromFile uploads the image at path. The file must exist, be at most
// MaxUploadSize bytes, and carry a png, jpg, jpeg or webp extension; all
// three checks run before any network traffic.
func (c *Client) SourceFromFile(ctx context.Context, path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newError(KindFileNotFound, "file not found: %s", path)
		}
		return nil, wrapError(KindIO, err, "stat "+path)
	}
	if info.Size() > MaxUploadSize {
		return nil, newError(KindFileTooLarge, "file too large: %d bytes (max: %d bytes)", info.Size(), MaxUploadSize)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		format := strings.TrimPrefix(ext, ".")
		if format == "" {
			format = "unknown"
		}
		return nil, newError(KindUnsupportedFormat, "unsupported file format: %s", format)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapError(KindIO, err, "read "+path)
	}
	return c.SourceFromBuffer(ctx, data)
}

// SourceFromBuffer uploads an in-memory image of at most MaxUploadSize bytes.
func (c *Client) SourceFromBuffer(ctx context.Context, data []byte) (*Source, error) {
	if len(data) > MaxUploadSize {
		return nil, newError(KindFileTooLarge, "buffer too large: %d bytes (max: %d bytes)", len(data), MaxUploadSize)
	}

	c.cfg.logger.WithField("size", len(data)).Info("uploading image")
	resp, err := c.post(ctx, c.cfg.shrink, data)
	if err != nil {
		return nil, err
	}
	return c.sourceFromResponse(resp)
}

// SourceFromURL asks the API to fetch the image from rawURL itself. The URL
// must be absolute, with a scheme and a host.
func (c *Client) SourceFromURL(ctx context.Context, rawURL string) (*Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, newError(KindURLParse, "invalid source url: %s", rawURL)
	}

	body, err := json.Marshal(struct {
		Source struct {
			URL string `json:"url"`
		} `json:"source"`
	}{struct {
		URL string `json:"url"`
	}{rawURL}})
	if err != nil {
		return nil, wrapError(KindJSON, err, "encode source url")
	}

	c.cfg.logger.WithField("source_url", rawURL).Info("uploading image by url")
	resp, err := c.post(ctx, c.cfg.shrink, body)
	if err != nil {
		return nil, err
	}
	return c.sourceFromResponse(resp)
}

// SourceFromStream uploads an image read from r without buffering it in
// memory. contentType must be a valid media type such as "image/png". The
// stream cannot be replayed, so the upload is attempted exactly once.
func (c *Client) SourceFromStream(ctx context.Context, r io.Reader, contentType string) (*Source, error) {
	if _, _, err := mime.ParseMediaType(contentType); err != nil {
		return nil, newError(KindUnsupportedFormat, "unsupported file format: %s", contentType)
	}

	c.cfg.logger.WithField("content_type", contentType).Info("uploading image stream")
	resp, err := c.postStream(ctx, c.cfg.shrink, r, contentType)
	if err != nil {
		return nil, err
	}
	return c.sourceFromResponse(resp)
}

// sourceFromResponse turns an upload response into a Source. The upload
// contract is a Location header; a 2xx without one is malformed.
func (c *Client) sourceFromResponse(resp *http.Response) (*Source, error) {
	defer ensureClosed(resp)

	loc := resp.Header.Get("Location")
	if loc == "" {
		return nil, newError(KindUnknown, "missing Location header in upload response")
	}
	c.cfg.logger.WithField("location", loc).Debug("image uploaded")
	return &Source{location: loc, client: c}, nil
}

// Resize scales or crops the image per opts. At least one dimension must be
// set and neither may exceed MaxDimension; validation runs before any
// network traffic.
func (s *Source) Resize(ctx context.Context, opts ResizeOptions) (*Result, error) {
	if err := validateDimensions(opts.Width, opts.Height); err != nil {
		return nil, err
	}

	body, err := json.Marshal(struct {
		Resize ResizeOptions `json:"resize"`
	}{opts})
	if err != nil {
		return nil, wrapError(KindJSON, err, "encode resize options")
	}

	s.client.cfg.logger.WithFields(logrus.Fields{
		"method":   string(opts.Method),
		"location": s.location,
	}).Info("resizing image")
	return s.request(ctx, body)
}

// Convert transcodes the image to the format in opts.
func (s *Source) Convert(ctx context.Context, opts ConvertOptions) (*Result, error) {
	body, err := json.Marshal(opts)
	if err != nil {
		return nil, wrapError(KindJSON, err, "encode convert options")
	}

	s.client.cfg.logger.WithFields(logrus.Fields{
		"type":     string(opts.Type),
		"location": s.location,
	}).Info("converting image")
	return s.request(ctx, body)
}

// Preserve compresses while keeping the named metadata categories.
func (s *Source) Preserve(ctx context.Context, keys ...Preserve) (*Result, error) {
	if keys == nil {
		keys = []Preserve{}
	}
	body, err := json.Marshal(struct {
		Preserve []Preserve `json:"preserve"`
	}{keys})
	if err != nil {
		return nil, wrapError(KindJSON, err, "encode preserve options")
	}

	s.client.cfg.logger.WithField("location", s.location).Info("compressing with preserved metadata")
	return s.request(ctx, body)
}

// Store asks the API to deliver the processed image into a cloud bucket.
func (s *Source) Store(ctx context.Context, opts StoreOptions) (*Result, error) {
	body, err := json.Marshal(opts)
	if err != nil {
		return nil, wrapError(KindJSON, err, "encode store options")
	}

	s.client.cfg.logger.WithFields(logrus.Fields{
		"service":  opts.service(),
		"location": s.location,
	}).Info("storing image")
	return s.request(ctx, body)
}

// ToBuffer downloads the compressed image into memory.
func (s *Source) ToBuffer(ctx context.Context) ([]byte, error) {
	resp, err := s.client.get(ctx, s.location)
	if err != nil {
		return nil, err
	}
	return newResult(resp).ToBuffer()
}

// ToFile downloads the compressed image and writes it to path.
func (s *Source) ToFile(ctx context.Context, path string) error {
	resp, err := s.client.get(ctx, s.location)
	if err != nil {
		return err
	}
	return newResult(resp).ToFile(path)
}

// request posts a transform body against the source location.
func (s *Source) request(ctx context.Context, body []byte) (*Result, error) {
	resp, err := s.client.post(ctx, s.location, body)
	if err != nil {
		return nil, err
	}
	return newResult(resp), nil
}

// validateDimensions enforces the resize constraints: at least one dimension
// set, none negative, none above MaxDimension.
func validateDimensions(width, height int) error {
	if width == 0 && height == 0 {
		return newError(KindInvalidDimensions, "at least one of width or height must be set")
	}
	if width < 0 || height < 0 {
		return newError(KindInvalidDimensions, "dimensions must be positive: width=%d height=%d", width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return newError(KindInvalidDimensions, "dimensions exceed %d: width=%d height=%d", MaxDimension, width, height)
	}
	return nil
}
