package s3stream

import (
	"context"
	"io"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/future"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/multipart"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// Writer streams bytes into one S3 object.
//
// Writes only copy into the part buffer; uploads happen in the background.
// Remote failures are never returned from Write, Flush or Close. They are
// reported once, through Completion.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	coord *multipart.Coordinator
	dest  s3types.Destination
}

var (
	_ io.WriteCloser  = (*Writer)(nil)
	_ io.ByteWriter   = (*Writer)(nil)
	_ io.StringWriter = (*Writer)(nil)
)

// Write appends p to the stream. It returns ErrStreamClosed after Close or
// Cancel.
func (w *Writer) Write(p []byte) (int, error) {
	return w.coord.Write(p)
}

// WriteByte appends a single byte to the stream.
func (w *Writer) WriteByte(b byte) error {
	return w.coord.WriteByte(b)
}

// WriteString appends s to the stream.
func (w *Writer) WriteString(s string) (int, error) {
	return w.coord.Write([]byte(s))
}

// Flush uploads the buffered bytes as a part now, even if there are none.
//
// S3 rejects every part but the last below 5 MiB, so flushing a partly
// filled buffer makes the commit fail on S3 itself.
func (w *Writer) Flush() error {
	return w.coord.Flush()
}

// Close ends the stream and schedules the commit. It returns without waiting
// for any upload. Calling Close again is a no-op.
func (w *Writer) Close() error {
	return w.coord.Close()
}

// Cancel ends the stream without committing. Parts already in flight are
// awaited and the upload is aborted. Cancel after Close is a no-op.
func (w *Writer) Cancel() error {
	return w.coord.Cancel()
}

// Completion returns the future of the committed object.
func (w *Writer) Completion() *future.Future[*s3types.CommittedObject] {
	return w.coord.Completion()
}

// Wait blocks until the upload is committed or has failed, or until ctx is
// done. It does not close the Writer.
func (w *Writer) Wait(ctx context.Context) (*s3types.CommittedObject, error) {
	return w.coord.Completion().Await(ctx)
}

// State returns the lifecycle state of the upload.
func (w *Writer) State() s3types.SessionState {
	return w.coord.State()
}

// Written returns the number of bytes accepted so far.
func (w *Writer) Written() int64 {
	return w.coord.Written()
}

// Destination returns the object the Writer streams into.
func (w *Writer) Destination() s3types.Destination {
	return w.dest
}
