package media

import (
	"context"
	"io"
)

// Uploader turns a local file into a durable URL. A failed upload is
// terminal for the caller; nothing here retries.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, filename string, size int64) (string, error)
}
