// Package tinify provides a client for the Tinify image compression API
// (the service behind TinyPNG and TinyJPG) with built-in rate limiting,
// retry with exponential backoff, and a typed error taxonomy.
//
// On top of the standard net/http client it adds:
//   - Client-side rate limiting via a token bucket (golang.org/x/time/rate)
//   - Automatic retry with exponential backoff for transient failures
//   - Retry-After parsing in both seconds and HTTP-date forms
//   - Classification of every failure into a closed set of error kinds
//   - Pre-flight validation of files, buffers, URLs, and dimensions
//   - Atomic counters for requests, errors, retries, and limiter waits
//   - Safe concurrent use from multiple goroutines
//
// Configuration uses the functional options pattern:
//
//	client, err := tinify.NewClient(os.Getenv("TINIFY_API_KEY"),
//	    tinify.WithAppIdentifier("MyApp/1.0"),
//	    tinify.WithTimeout(15*time.Second),
//	    tinify.WithRateLimit(tinify.RateLimit{RequestsPerMinute: 300, BurstCapacity: 20}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	src, err := client.SourceFromFile(ctx, "photo.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := src.ToFile(ctx, "photo-small.png"); err != nil {
//	    log.Fatal(err)
//	}
//
// Transform operations (Resize, Convert, Preserve, Store) post against the
// uploaded source and return a Result whose body holds the processed image.
package tinify
