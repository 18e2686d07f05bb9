package server

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchvol/internal/hand"
)

// Status is the per-frame state published by the control loop.
type Status struct {
	Seq       uint64          `json:"seq"`
	Timestamp int64           `json:"timestamp"`
	Enabled   bool            `json:"enabled"`
	Hands     int             `json:"hands"`
	Landmarks []hand.Landmark `json:"landmarks,omitempty"`
	Distance  int             `json:"distance"`
	Level     int             `json:"level"`
	FPS       int             `json:"fps"`
}

// Hub hands the latest annotated frame and status from the loop to HTTP
// clients. Subscribers that fall behind only ever see the newest value.
type Hub struct {
	mu       sync.Mutex
	seq      uint64
	status   Status
	jpeg     []byte
	statuses map[chan Status]struct{}
	frames   map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{
		statuses: make(map[chan Status]struct{}),
		frames:   make(map[chan []byte]struct{}),
	}
}

// Publish stores st and, when someone is watching the stream, the JPEG
// encoding of frame. It never blocks on subscribers.
func (h *Hub) Publish(frame *gocv.Mat, st Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	st.Seq = h.seq
	if st.Timestamp == 0 {
		st.Timestamp = time.Now().UnixMilli()
	}
	h.status = st

	for ch := range h.statuses {
		offer(ch, st)
	}

	if len(h.frames) == 0 || frame == nil || frame.Empty() {
		return
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return
	}
	// Subscribers keep the previous slice, so copy into a fresh one.
	h.jpeg = append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	for ch := range h.frames {
		offer(ch, h.jpeg)
	}
}

// Status returns the last published status.
func (h *Hub) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Subscribe returns a channel of statuses and its cancel func.
func (h *Hub) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	h.mu.Lock()
	h.statuses[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.statuses, ch)
		h.mu.Unlock()
	}
}

// SubscribeFrames returns a channel of JPEG frames and its cancel func.
// Frames are only encoded while at least one subscriber exists.
func (h *Hub) SubscribeFrames() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	h.mu.Lock()
	h.frames[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.frames, ch)
		h.mu.Unlock()
	}
}

// Subscribers returns the number of status and frame subscribers.
func (h *Hub) Subscribers() (statuses, frames int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.statuses), len(h.frames)
}

// offer replaces whatever is buffered in ch with v.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
