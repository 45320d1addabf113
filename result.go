package tinify

import (
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
)

// Result holds one API response: metadata taken from the headers plus the
// response body. Metadata can be read any number of times; the body can be
// consumed exactly once, by ToBuffer or ToFile. A second consumption fails
// with ErrBodyConsumed.
type Result struct {
	status int
	header http.Header

	mu   sync.Mutex
	body io.ReadCloser // nil once consumed
}

func newResult(resp *http.Response) *Result {
	return &Result{
		status: resp.StatusCode,
		header: resp.Header,
		body:   resp.Body,
	}
}

// ToBuffer reads the image body into memory and marks it consumed.
func (r *Result) ToBuffer() ([]byte, error) {
	r.mu.Lock()
	body := r.body
	r.body = nil
	r.mu.Unlock()

	if body == nil {
		return nil, ErrBodyConsumed
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, wrapError(KindIO, err, "read response body")
	}
	return data, nil
}

// ToFile consumes the image body and writes it to path.
func (r *Result) ToFile(path string) error {
	data, err := r.ToBuffer()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return wrapError(KindIO, err, "write "+path)
	}
	return nil
}

// CompressionCount reports how many compressions the account has used this
// month, when the response carried the header.
func (r *Result) CompressionCount() (int, bool) {
	return r.headerInt("Compression-Count")
}

// ImageWidth reports the width of the processed image, when present.
func (r *Result) ImageWidth() (int, bool) {
	return r.headerInt("Image-Width")
}

// ImageHeight reports the height of the processed image, when present.
func (r *Result) ImageHeight() (int, bool) {
	return r.headerInt("Image-Height")
}

// ContentType returns the media type of the processed image, or "" when the
// response carried none.
func (r *Result) ContentType() string {
	return r.header.Get("Content-Type")
}

// ContentLength reports the size of the processed image in bytes, when the
// response carried the header.
func (r *Result) ContentLength() (int64, bool) {
	v := r.header.Get("Content-Length")
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (r *Result) headerInt(name string) (int, bool) {
	v := r.header.Get(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
