package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/s3types"
)

// FakeUploader is an in-memory PartUploader that records every call.
//
// Payloads are copied on receipt, so assertions stay valid after the caller
// recycles its buffers. Set the exported fields before the first write.
type FakeUploader struct {
	// UploadID is returned by Begin; defaults to "fake-upload".
	UploadID string

	// BeginErr, CompleteErr and AbortErr make the matching call fail.
	BeginErr    error
	CompleteErr error
	AbortErr    error

	// PartErrs makes UploadPart fail for the given part numbers.
	PartErrs map[int32]error

	// BeginGate, when set, runs inside Begin after the call is recorded and
	// before the upload id is returned. Blocking in it holds begin unresolved.
	BeginGate func()

	// PartGate, when set, runs inside UploadPart before the part is
	// acknowledged. Blocking in it holds the part unresolved.
	PartGate func(partNumber int32)

	// CompleteResult, when set, replaces the committed object Complete returns.
	CompleteResult *s3types.CommittedObject

	mu         sync.Mutex
	begins     int
	completes  int
	aborts     int
	beginCfg   s3types.UploadConfig
	payloads   map[int32][]byte
	resolved   []int32
	completed  []s3types.PartAcknowledgment
	partIDs    []string
	completeID string
}

var _ s3types.PartUploader = (*FakeUploader)(nil)

// Begin records the call and returns UploadID.
func (f *FakeUploader) Begin(_ context.Context, _ s3types.Destination, cfg *s3types.UploadConfig) (string, error) {
	f.mu.Lock()
	f.begins++
	if cfg != nil {
		f.beginCfg = *cfg
	}
	f.mu.Unlock()

	if f.BeginGate != nil {
		f.BeginGate()
	}

	if f.BeginErr != nil {
		return "", f.BeginErr
	}
	if f.UploadID == "" {
		return "fake-upload", nil
	}
	return f.UploadID, nil
}

// UploadPart copies payload and acknowledges it with the ETag "etag-<n>".
func (f *FakeUploader) UploadPart(
	_ context.Context,
	_ s3types.Destination,
	uploadID string,
	partNumber int32,
	payload []byte,
) (s3types.PartAcknowledgment, error) {
	stored := append([]byte{}, payload...)
	f.mu.Lock()
	f.partIDs = append(f.partIDs, uploadID)
	f.mu.Unlock()

	if f.PartGate != nil {
		f.PartGate(partNumber)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payloads == nil {
		f.payloads = make(map[int32][]byte)
	}
	f.payloads[partNumber] = stored
	f.resolved = append(f.resolved, partNumber)

	if err := f.PartErrs[partNumber]; err != nil {
		return s3types.PartAcknowledgment{}, err
	}
	return s3types.PartAcknowledgment{
		PartNumber: partNumber,
		ETag:       fmt.Sprintf("etag-%d", partNumber),
		Size:       int64(len(stored)),
	}, nil
}

// Complete records the acknowledgment list it was given.
func (f *FakeUploader) Complete(
	_ context.Context,
	dest s3types.Destination,
	uploadID string,
	parts []s3types.PartAcknowledgment,
) (*s3types.CommittedObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes++
	f.completeID = uploadID
	f.completed = append([]s3types.PartAcknowledgment(nil), parts...)
	if f.CompleteErr != nil {
		return nil, f.CompleteErr
	}
	if f.CompleteResult != nil {
		obj := *f.CompleteResult
		return &obj, nil
	}
	return &s3types.CommittedObject{
		Bucket: dest.Bucket,
		Key:    dest.Key,
		ETag:   fmt.Sprintf("etag-final-%d", len(parts)),
	}, nil
}

// Abort records the call.
func (f *FakeUploader) Abort(context.Context, s3types.Destination, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborts++
	return f.AbortErr
}

// BeginCalls returns how many times Begin was called.
func (f *FakeUploader) BeginCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begins
}

// CompleteCalls returns how many times Complete was called.
func (f *FakeUploader) CompleteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completes
}

// AbortCalls returns how many times Abort was called.
func (f *FakeUploader) AbortCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aborts
}

// BeginConfig returns the upload configuration passed to Begin.
func (f *FakeUploader) BeginConfig() s3types.UploadConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.beginCfg
}

// Payloads returns every received payload as a string, ordered by part number.
func (f *FakeUploader) Payloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	numbers := make([]int32, 0, len(f.payloads))
	for n := range f.payloads {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	out := make([]string, len(numbers))
	for i, n := range numbers {
		out[i] = string(f.payloads[n])
	}
	return out
}

// ResolutionOrder returns part numbers in the order their uploads returned.
func (f *FakeUploader) ResolutionOrder() []int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int32(nil), f.resolved...)
}

// CompletedParts returns the acknowledgment list passed to Complete.
func (f *FakeUploader) CompletedParts() []s3types.PartAcknowledgment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]s3types.PartAcknowledgment(nil), f.completed...)
}

// PartUploadIDs returns the upload id of every UploadPart call, in call order.
func (f *FakeUploader) PartUploadIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.partIDs...)
}

// CompleteUploadID returns the upload id passed to Complete.
func (f *FakeUploader) CompleteUploadID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completeID
}

// Gates holds part uploads until each is released. Use Wait as a
// FakeUploader.PartGate.
type Gates struct {
	mu    sync.Mutex
	gates map[int32]chan struct{}
}

// NewGates creates a set of closed-until-released gates.
func NewGates() *Gates {
	return &Gates{gates: make(map[int32]chan struct{})}
}

func (g *Gates) gate(partNumber int32) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[partNumber]
	if !ok {
		ch = make(chan struct{})
		g.gates[partNumber] = ch
	}
	return ch
}

// Wait blocks until partNumber is released.
func (g *Gates) Wait(partNumber int32) {
	<-g.gate(partNumber)
}

// Release lets partNumber proceed. Each part may be released once.
func (g *Gates) Release(partNumber int32) {
	close(g.gate(partNumber))
}
