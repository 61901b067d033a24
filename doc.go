// Package s3stream streams data of unknown length into a single S3 object.
//
// A Writer is an ordinary io.WriteCloser. Bytes written to it are collected
// into fixed-size parts; each full part is uploaded as a numbered part of a
// multipart upload while the caller keeps writing. Closing the Writer cuts
// the final part and schedules the commit without waiting for the network.
// The outcome is delivered through Completion, or Wait for callers that want
// to block.
//
// Key features:
//   - Constant memory: one buffer of the part size plus parts in flight
//   - Parts upload concurrently and may finish in any order
//   - The object is committed at most once, and never after a failed part
//   - Failed or canceled uploads are aborted so no parts are left behind
//   - Pluggable stores through s3types.PartUploader (AWS S3, MinIO)
//
// Example usage:
//
//	client, err := s3stream.New(s3stream.WithRegion("eu-central-1"))
//	if err != nil {
//	    return err
//	}
//
//	w, err := client.NewWriter(ctx, "my-bucket", "logs/app.log")
//	if err != nil {
//	    return err
//	}
//	if _, err := io.Copy(w, src); err != nil {
//	    _ = w.Cancel()
//	    return err
//	}
//	if err := w.Close(); err != nil {
//	    return err
//	}
//	obj, err := w.Wait(ctx)
package s3stream
