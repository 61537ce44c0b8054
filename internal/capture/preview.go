package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// Preview keeps the most recent camera frame as JPEG for the MJPEG stream.
// Readers wait on Next for a newer frame than the one they last saw.
type Preview struct {
	mu      sync.Mutex
	jpeg    []byte
	seq     uint64
	updated chan struct{}
}

// NewPreview creates an empty preview buffer.
func NewPreview() *Preview {
	return &Preview{updated: make(chan struct{})}
}

// Store encodes frame and publishes it. Encoding failures leave the
// previous frame in place.
func (p *Preview) Store(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		return ErrEmptyFrame
	}
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return err
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	p.Publish(data)
	return nil
}

// Publish stores already-encoded JPEG bytes.
func (p *Preview) Publish(jpeg []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.jpeg = jpeg
	p.seq++
	close(p.updated)
	p.updated = make(chan struct{})
}

// Latest returns the current JPEG and its sequence number. The sequence is
// zero until the first frame arrives.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jpeg, p.seq
}

// Next returns a channel closed when a frame newer than seq is available.
func (p *Preview) Next(seq uint64) <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.seq > seq {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.updated
}
