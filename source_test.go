package tinify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceFromFileValidation(t *testing.T) {
	c := newOfflineClient(t)
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := c.SourceFromFile(ctx, filepath.Join(dir, "missing.png"))
		require.Error(t, err)
		assert.Equal(t, KindFileNotFound, KindOf(err))
		assert.Contains(t, err.Error(), "missing.png")
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

		_, err := c.SourceFromFile(ctx, path)
		require.Error(t, err)
		assert.Equal(t, KindUnsupportedFormat, KindOf(err))
		assert.Contains(t, err.Error(), "txt")
	})

	t.Run("no extension", func(t *testing.T) {
		path := filepath.Join(dir, "image")
		require.NoError(t, os.WriteFile(path, []byte("bytes"), 0o644))

		_, err := c.SourceFromFile(ctx, path)
		require.Error(t, err)
		assert.Equal(t, KindUnsupportedFormat, KindOf(err))
	})

	t.Run("too large", func(t *testing.T) {
		path := filepath.Join(dir, "big.png")
		require.NoError(t, os.WriteFile(path, make([]byte, MaxUploadSize+1), 0o644))

		_, err := c.SourceFromFile(ctx, path)
		require.Error(t, err)
		assert.Equal(t, KindFileTooLarge, KindOf(err))
	})
}

func TestSourceFromFileUpload(t *testing.T) {
	bodies := make(chan []byte, 1)
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies <- b
		serveUpload(w, r)
	}))

	path := filepath.Join(t.TempDir(), "cat.png")
	content := []byte("png-bytes")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	src, err := c.SourceFromFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(src.Location(), "/output/abc123"))
	assert.Equal(t, content, <-bodies)
}

func TestSourceFromBufferTooLarge(t *testing.T) {
	c := newOfflineClient(t)

	_, err := c.SourceFromBuffer(context.Background(), make([]byte, MaxUploadSize+1))
	require.Error(t, err)
	assert.Equal(t, KindFileTooLarge, KindOf(err))
}

func TestSourceFromURLValidation(t *testing.T) {
	c := newOfflineClient(t)
	ctx := context.Background()

	for _, raw := range []string{"", "not a url", "example.com/img.png", "http://"} {
		_, err := c.SourceFromURL(ctx, raw)
		require.Errorf(t, err, "url %q", raw)
		assert.Equalf(t, KindURLParse, KindOf(err), "url %q", raw)
	}
}

func TestSourceFromURLEnvelope(t *testing.T) {
	bodies := make(chan []byte, 1)
	types := make(chan string, 1)
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies <- b
		types <- r.Header.Get("Content-Type")
		serveUpload(w, r)
	}))

	_, err := c.SourceFromURL(context.Background(), "https://example.com/cat.png")
	require.NoError(t, err)

	assert.JSONEq(t, `{"source":{"url":"https://example.com/cat.png"}}`, string(<-bodies))
	assert.Equal(t, "application/json", <-types)
}

func TestSourceFromStream(t *testing.T) {
	t.Run("invalid content type", func(t *testing.T) {
		c := newOfflineClient(t)
		for _, ct := range []string{"", "not a mime type"} {
			_, err := c.SourceFromStream(context.Background(), strings.NewReader("img"), ct)
			require.Errorf(t, err, "content type %q", ct)
			assert.Equal(t, KindUnsupportedFormat, KindOf(err))
		}
	})

	t.Run("streams body and content type", func(t *testing.T) {
		bodies := make(chan []byte, 1)
		types := make(chan string, 1)
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			bodies <- b
			types <- r.Header.Get("Content-Type")
			serveUpload(w, r)
		}))

		src, err := c.SourceFromStream(context.Background(), strings.NewReader("streamed-bytes"), "image/png")
		require.NoError(t, err)
		assert.NotEmpty(t, src.Location())
		assert.Equal(t, []byte("streamed-bytes"), <-bodies)
		assert.Equal(t, "image/png", <-types)
	})
}

func TestMissingLocationHeader(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	_, err := c.SourceFromBuffer(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.Contains(t, err.Error(), "Location")
}

func TestResizeDimensionValidation(t *testing.T) {
	c := newOfflineClient(t)
	src := &Source{location: "http://unused", client: c}

	tests := []struct {
		name          string
		width, height int
	}{
		{"both unset", 0, 0},
		{"negative width", -1, 100},
		{"negative height", 100, -5},
		{"width above ceiling", MaxDimension + 1, 100},
		{"height above ceiling", 100, MaxDimension + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := src.Resize(context.Background(), ResizeOptions{
				Method: ResizeFit,
				Width:  tt.width,
				Height: tt.height,
			})
			require.Error(t, err)
			assert.Equal(t, KindInvalidDimensions, KindOf(err))
		})
	}
}

// transformServer wires /shrink and the source location into one server and
// captures the transform request body.
func transformServer(t *testing.T, respond func(w http.ResponseWriter)) (*Client, chan []byte) {
	t.Helper()
	bodies := make(chan []byte, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/shrink", serveUpload)
	mux.HandleFunc("/output/abc123", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies <- b
		respond(w)
	})
	c, _ := newTestClient(t, mux)
	return c, bodies
}

func TestResizeEndToEnd(t *testing.T) {
	c, bodies := transformServer(t, func(w http.ResponseWriter) {
		w.Header().Set("Image-Width", "100")
		w.Header().Set("Image-Height", "75")
		w.Header().Set("Compression-Count", "42")
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("resized-bytes"))
	})
	ctx := context.Background()

	src, err := c.SourceFromBuffer(ctx, []byte("img"))
	require.NoError(t, err)

	res, err := src.Resize(ctx, ResizeOptions{Method: ResizeFit, Width: 100, Height: 100})
	require.NoError(t, err)

	assert.JSONEq(t, `{"resize":{"method":"fit","width":100,"height":100}}`, string(<-bodies))

	buf, err := res.ToBuffer()
	require.NoError(t, err)
	assert.Equal(t, []byte("resized-bytes"), buf)

	width, ok := res.ImageWidth()
	require.True(t, ok)
	assert.Equal(t, 100, width)

	height, ok := res.ImageHeight()
	require.True(t, ok)
	assert.Equal(t, 75, height)

	count, ok := res.CompressionCount()
	require.True(t, ok)
	assert.Equal(t, 42, count)

	assert.Equal(t, "image/png", res.ContentType())

	length, ok := res.ContentLength()
	require.True(t, ok)
	assert.Equal(t, int64(len("resized-bytes")), length)
}

func TestResizeWidthOnly(t *testing.T) {
	c, bodies := transformServer(t, func(w http.ResponseWriter) {
		w.Write([]byte("scaled"))
	})
	ctx := context.Background()

	src, err := c.SourceFromBuffer(ctx, []byte("img"))
	require.NoError(t, err)

	_, err = src.Resize(ctx, ResizeOptions{Method: ResizeScale, Width: 300})
	require.NoError(t, err)

	assert.JSONEq(t, `{"resize":{"method":"scale","width":300}}`, string(<-bodies))
}

func TestConvertBodyIsFlat(t *testing.T) {
	c, bodies := transformServer(t, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "image/webp")
		w.Write([]byte("webp-bytes"))
	})
	ctx := context.Background()

	src, err := c.SourceFromBuffer(ctx, []byte("img"))
	require.NoError(t, err)

	res, err := src.Convert(ctx, ConvertOptions{Type: FormatWebP, Background: "#FFFFFF"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"image/webp","background":"#FFFFFF"}`, string(<-bodies))
	assert.Equal(t, "image/webp", res.ContentType())
}

func TestConvertOmitsEmptyBackground(t *testing.T) {
	c, bodies := transformServer(t, func(w http.ResponseWriter) {
		w.Write([]byte("avif-bytes"))
	})
	ctx := context.Background()

	src, err := c.SourceFromBuffer(ctx, []byte("img"))
	require.NoError(t, err)

	_, err = src.Convert(ctx, ConvertOptions{Type: FormatAVIF})
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"image/avif"}`, string(<-bodies))
}

func TestPreserveBody(t *testing.T) {
	c, bodies := transformServer(t, func(w http.ResponseWriter) {
		w.Write([]byte("kept"))
	})
	ctx := context.Background()

	src, err := c.SourceFromBuffer(ctx, []byte("img"))
	require.NoError(t, err)

	_, err = src.Preserve(ctx, PreserveCopyright, PreserveLocation)
	require.NoError(t, err)
	assert.JSONEq(t, `{"preserve":["copyright","location"]}`, string(<-bodies))

	_, err = src.Preserve(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"preserve":[]}`, string(<-bodies))
}

func TestStoreS3Body(t *testing.T) {
	c, bodies := transformServer(t, func(w http.ResponseWriter) {
		w.Write([]byte("stored"))
	})
	ctx := context.Background()

	src, err := c.SourceFromBuffer(ctx, []byte("img"))
	require.NoError(t, err)

	_, err = src.Store(ctx, S3Store{
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "secret",
		Region:          "us-west-1",
		Path:            "my-bucket/images/cat.png",
		ACL:             "public-read",
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"service": "s3",
		"aws_access_key_id": "AKIAEXAMPLE",
		"aws_secret_access_key": "secret",
		"region": "us-west-1",
		"path": "my-bucket/images/cat.png",
		"acl": "public-read"
	}`, string(<-bodies))
}

func TestStoreGCSBody(t *testing.T) {
	c, bodies := transformServer(t, func(w http.ResponseWriter) {
		w.Write([]byte("stored"))
	})
	ctx := context.Background()

	src, err := c.SourceFromBuffer(ctx, []byte("img"))
	require.NoError(t, err)

	_, err = src.Store(ctx, GCSStore{
		AccessToken: "ya29.token",
		Path:        "my-bucket/images/cat.png",
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(<-bodies, &got))
	assert.Equal(t, "gcs", got["service"])
	assert.Equal(t, "ya29.token", got["gcp_access_token"])
	assert.Equal(t, "my-bucket/images/cat.png", got["path"])
	assert.NotContains(t, got, "headers")
	assert.NotContains(t, got, "acl")
}

func TestSourceDownload(t *testing.T) {
	auths := make(chan string, 2)
	mux := http.NewServeMux()
	mux.HandleFunc("/shrink", serveUpload)
	mux.HandleFunc("/output/abc123", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		auths <- r.Header.Get("Authorization")
		w.Write([]byte("compressed-bytes"))
	})
	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	src, err := c.SourceFromBuffer(ctx, []byte("img"))
	require.NoError(t, err)

	buf, err := src.ToBuffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("compressed-bytes"), buf)
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("api:test-key")), <-auths)

	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, src.ToFile(ctx, path))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("compressed-bytes"), written)
}
