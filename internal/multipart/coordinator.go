package multipart

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/future"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// Coordinator drives one streaming multipart upload.
//
// It owns the chunk buffer, cuts it into parts, and chains every part upload
// on a single begin result. Part numbers are fixed when a part is cut, and
// part results are kept in cut order, so the list handed to the complete
// operation is ordered no matter which uploads finish first.
//
// Write, WriteByte, Flush, Close and Cancel must be called from a single
// goroutine. State and Completion are safe for concurrent use.
type Coordinator struct {
	ctx      context.Context
	uploader s3types.PartUploader
	dest     s3types.Destination
	cfg      s3types.WriterConfig
	logger   *slog.Logger

	buf     *pool.ChunkBuffer
	written int64

	closing atomic.Bool
	state   atomic.Int32

	beginOnce sync.Once
	uploadID  *future.Future[string]
	started   time.Time

	parts    []*future.Future[s3types.PartAcknowledgment]
	uploaded atomic.Int64

	completion *future.Future[*s3types.CommittedObject]
}

// NewCoordinator creates a coordinator for dest. ctx bounds every remote
// call made for this upload. cfg must already be validated.
func NewCoordinator(
	ctx context.Context,
	uploader s3types.PartUploader,
	dest s3types.Destination,
	cfg s3types.WriterConfig,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		ctx:        ctx,
		uploader:   uploader,
		dest:       dest,
		cfg:        cfg,
		logger:     logger.With(slog.String("bucket", dest.Bucket), slog.String("key", dest.Key)),
		buf:        pool.NewChunkBuffer(pool.ForSize(cfg.PartSize)),
		completion: future.New[*s3types.CommittedObject](),
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() s3types.SessionState {
	return s3types.SessionState(c.state.Load())
}

// Completion returns the future resolved with the committed object, or with
// the reason nothing was committed. It resolves only after Close or Cancel.
func (c *Coordinator) Completion() *future.Future[*s3types.CommittedObject] {
	return c.completion
}

// Written returns the number of bytes accepted so far.
func (c *Coordinator) Written() int64 {
	return c.written
}

// PartsCut returns the number of parts cut so far.
func (c *Coordinator) PartsCut() int {
	return len(c.parts)
}

// WriteByte appends one byte, cutting a part when the buffer becomes full.
func (c *Coordinator) WriteByte(b byte) error {
	if err := c.ensureOpen("write"); err != nil {
		return err
	}
	full, err := c.buf.WriteByte(b)
	if err != nil {
		return err
	}
	c.written++
	if full {
		c.cut()
	}
	return nil
}

// Write appends p, cutting a part each time the buffer becomes full.
func (c *Coordinator) Write(p []byte) (int, error) {
	if err := c.ensureOpen("write"); err != nil {
		return 0, err
	}
	total := 0
	for len(p) > 0 {
		n, full, err := c.buf.Write(p)
		total += n
		c.written += int64(n)
		if err != nil {
			return total, err
		}
		if full {
			c.cut()
		}
		p = p[n:]
	}
	return total, nil
}

// Flush cuts whatever is buffered as a part, even when the buffer is empty.
func (c *Coordinator) Flush() error {
	if err := c.ensureOpen("flush"); err != nil {
		return err
	}
	c.cut()
	return nil
}

// Close cuts the final part and schedules the commit. It never blocks on
// the network; the outcome is delivered through Completion. Calls after the
// first are no-ops.
func (c *Coordinator) Close() error {
	if !c.closing.CompareAndSwap(false, true) {
		return nil
	}

	// An empty stream still produces one (empty) part so that every session
	// commits exactly one object.
	if c.buf.Len() > 0 || len(c.parts) == 0 {
		c.cut()
	}
	c.state.Store(int32(s3types.StateFinalizing))
	c.buf.Release()

	c.logger.DebugContext(c.ctx, "stream closed",
		slog.Int("parts", len(c.parts)),
		slog.Int64("bytes", c.written))

	go c.finalize()
	return nil
}

// Cancel stops accepting writes and discards the upload. In-flight part
// uploads are awaited before the upload is aborted; Completion then fails
// with errors.ErrCanceled. Cancel after Close is a no-op.
func (c *Coordinator) Cancel() error {
	if !c.closing.CompareAndSwap(false, true) {
		return nil
	}
	c.state.Store(int32(s3types.StateFinalizing))
	c.buf.Release()

	go c.cancel()
	return nil
}

func (c *Coordinator) ensureOpen(op string) error {
	if c.closing.Load() {
		return errors.NewObjectError(op, c.dest.Bucket, c.dest.Key, errors.ErrStreamClosed)
	}
	return nil
}

// cut hands the buffered bytes to an asynchronous part upload.
func (c *Coordinator) cut() {
	payload := c.buf.Snapshot()
	partNumber := int32(len(c.parts) + 1)

	if partNumber > s3types.MaxParts {
		c.buf.Recycle(payload)
		c.parts = append(c.parts, future.Failed[s3types.PartAcknowledgment](
			errors.NewObjectError("uploadPart", c.dest.Bucket, c.dest.Key, errors.ErrInvalidInput).
				WithPart(partNumber).
				WithMessage(fmt.Sprintf("stream exceeds %d parts", s3types.MaxParts)),
		))
		return
	}

	uploadID := c.begin(payload)
	c.parts = append(c.parts, future.Then(uploadID, func(id string) (s3types.PartAcknowledgment, error) {
		defer c.buf.Recycle(payload)
		return c.uploadPart(id, partNumber, payload)
	}))
	c.state.CompareAndSwap(int32(s3types.StateIdle), int32(s3types.StateActive))
}

// begin issues the begin operation on the first call and returns the shared
// upload id future on every call.
func (c *Coordinator) begin(firstPayload []byte) *future.Future[string] {
	c.beginOnce.Do(func() {
		cfg := c.cfg.UploadConfig
		if cfg.ContentType == "" {
			cfg.ContentType = mimetype.Detect(firstPayload).String()
		}
		c.started = time.Now()

		c.logger.DebugContext(c.ctx, "beginning multipart upload",
			slog.String("content_type", cfg.ContentType))

		c.uploadID = future.Go(func() (string, error) {
			id, err := c.uploader.Begin(c.ctx, c.dest, &cfg)
			if err != nil {
				return "", c.uploadFailed("begin", 0, err)
			}
			return id, nil
		})
	})
	return c.uploadID
}

func (c *Coordinator) uploadPart(uploadID string, partNumber int32, payload []byte) (s3types.PartAcknowledgment, error) {
	ack, err := c.uploader.UploadPart(c.ctx, c.dest, uploadID, partNumber, payload)
	if err != nil {
		c.logger.DebugContext(c.ctx, "part upload failed",
			slog.Int("part", int(partNumber)),
			slog.String("error", err.Error()))
		return s3types.PartAcknowledgment{}, c.uploadFailed("uploadPart", partNumber, err)
	}
	if ack.PartNumber == 0 {
		ack.PartNumber = partNumber
	}
	if ack.Size == 0 {
		ack.Size = int64(len(payload))
	}

	total := c.uploaded.Add(int64(len(payload)))
	if c.cfg.ProgressTracker != nil {
		c.cfg.ProgressTracker.Update(total, -1)
	}
	c.logger.DebugContext(c.ctx, "part uploaded",
		slog.Int("part", int(partNumber)),
		slog.Int("size", len(payload)))
	return ack, nil
}

// finalize waits for begin and every part, then issues the complete operation.
func (c *Coordinator) finalize() {
	uploadID, err := c.awaitUpload()
	if err == nil {
		var obj *s3types.CommittedObject
		obj, err = c.commit(uploadID)
		if err == nil {
			c.succeed(obj)
			return
		}
	}

	if uploadID != "" && c.cfg.AbortOnFailure {
		c.abort(uploadID)
	}
	c.fail(s3types.StateFailed, err)
}

// awaitUpload waits until begin and every part have resolved. It returns the
// upload id whenever begin succeeded, together with the first failure.
func (c *Coordinator) awaitUpload() (string, error) {
	if c.uploadID == nil {
		return "", errors.NewObjectError("complete", c.dest.Bucket, c.dest.Key, errors.ErrProtocolViolation).
			WithMessage("no part was cut before finalizing")
	}

	uploadID, beginErr := c.uploadID.Result()
	_, partsErr := future.All(c.parts).Result()
	if beginErr != nil {
		// Every part chained on begin carries the same error.
		return "", beginErr
	}
	return uploadID, partsErr
}

func (c *Coordinator) commit(uploadID string) (*s3types.CommittedObject, error) {
	acks := make([]s3types.PartAcknowledgment, len(c.parts))
	for i, part := range c.parts {
		if !part.IsDone() {
			return nil, errors.NewObjectError("complete", c.dest.Bucket, c.dest.Key, errors.ErrProtocolViolation).
				WithPart(int32(i + 1)).
				WithMessage("part unresolved at completion")
		}
		ack, _ := part.Result()
		if ack.PartNumber != int32(i+1) {
			return nil, errors.NewObjectError("complete", c.dest.Bucket, c.dest.Key, errors.ErrProtocolViolation).
				WithPart(int32(i + 1)).
				WithMessage(fmt.Sprintf("acknowledgment carries part number %d", ack.PartNumber))
		}
		acks[i] = ack
	}

	obj, err := c.uploader.Complete(c.ctx, c.dest, uploadID, acks)
	if err != nil {
		return nil, c.uploadFailed("complete", 0, err)
	}
	if obj == nil {
		return nil, errors.NewObjectError("complete", c.dest.Bucket, c.dest.Key, errors.ErrProtocolViolation).
			WithMessage("store returned no object")
	}

	if obj.Bucket == "" {
		obj.Bucket, obj.Key = c.dest.Bucket, c.dest.Key
	}
	obj.Size = c.written
	obj.Parts = len(acks)
	obj.Duration = time.Since(c.started)
	return obj, nil
}

// cancel waits for in-flight work, then aborts whatever was started.
func (c *Coordinator) cancel() {
	if c.uploadID != nil {
		uploadID, beginErr := c.uploadID.Result()
		_, _ = future.All(c.parts).Result()
		if beginErr == nil {
			c.abort(uploadID)
		}
	}
	c.fail(s3types.StateCanceled, errors.NewObjectError("cancel", c.dest.Bucket, c.dest.Key, errors.ErrCanceled))
}

// abort releases the parts stored for uploadID, ignoring cancellation of the
// writer's context.
func (c *Coordinator) abort(uploadID string) {
	ctx := context.WithoutCancel(c.ctx)
	if err := c.uploader.Abort(ctx, c.dest, uploadID); err != nil {
		c.logger.WarnContext(ctx, "failed to abort multipart upload",
			slog.String("upload_id", uploadID),
			slog.String("error", err.Error()))
		return
	}
	c.logger.InfoContext(ctx, "multipart upload aborted",
		slog.String("upload_id", uploadID))
}

func (c *Coordinator) succeed(obj *s3types.CommittedObject) {
	c.state.Store(int32(s3types.StateCompleted))
	c.logger.InfoContext(c.ctx, "multipart upload completed",
		slog.Int("parts", obj.Parts),
		slog.Int64("bytes", obj.Size),
		slog.String("etag", obj.ETag),
		slog.Duration("duration", obj.Duration))
	if c.cfg.ProgressTracker != nil {
		c.cfg.ProgressTracker.Complete()
	}
	c.completion.Resolve(obj)
}

func (c *Coordinator) fail(state s3types.SessionState, err error) {
	c.state.Store(int32(state))
	c.logger.ErrorContext(c.ctx, "multipart upload not committed",
		slog.String("state", state.String()),
		slog.String("error", err.Error()))
	if c.cfg.ProgressTracker != nil {
		c.cfg.ProgressTracker.Error(err)
	}
	c.completion.Reject(err)
}

// uploadFailed marks err as a failed remote operation, adding destination
// context when the uploader did not.
func (c *Coordinator) uploadFailed(op string, partNumber int32, err error) error {
	var opErr *errors.Error
	if !stderrors.As(err, &opErr) {
		err = errors.NewObjectError(op, c.dest.Bucket, c.dest.Key, err).WithPart(partNumber)
	}
	return fmt.Errorf("%w: %w", errors.ErrUploadFailed, err)
}
