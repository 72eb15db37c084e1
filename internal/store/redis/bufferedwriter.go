package redis

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"signal-systemv1/internal/model"
)

// BufferedWriter wraps a Redis Writer with a circuit breaker. During
// circuit-open state, analysis results are buffered locally and flushed when
// the circuit closes again, so a Redis outage loses nothing but freshness.
type BufferedWriter struct {
	writer *Writer
	cb     *CircuitBreaker
	ctx    context.Context

	mu     sync.Mutex
	buffer [][]byte // JSON-encoded results
	maxBuf int

	// Callbacks (optional, for metrics)
	OnBuffer func()          // called when a write is buffered
	OnFlush  func(count int) // called after flushing buffered writes
}

// NewBufferedWriter creates a BufferedWriter wrapping the given Writer.
func NewBufferedWriter(ctx context.Context, w *Writer, cb *CircuitBreaker, maxBufferSize int) *BufferedWriter {
	if maxBufferSize <= 0 {
		maxBufferSize = 10000
	}
	bw := &BufferedWriter{
		writer: w,
		cb:     cb,
		ctx:    ctx,
		buffer: make([][]byte, 0, 256),
		maxBuf: maxBufferSize,
	}

	// Register flush on circuit close
	prevCallback := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prevCallback != nil {
			prevCallback(from, to)
		}
		if to == StateClosed {
			go bw.flush()
		}
	}

	return bw
}

// WriteResult publishes a result through the circuit breaker. If the circuit
// is open, the result is buffered locally instead of being lost.
func (bw *BufferedWriter) WriteResult(res *model.AnalysisResult) error {
	err := bw.cb.Execute(func() error {
		return bw.writer.WriteResult(bw.ctx, res)
	})
	if err == ErrCircuitOpen {
		bw.bufferWrite(res)
		return nil // buffered, not lost
	}
	return err
}

func (bw *BufferedWriter) bufferWrite(res *model.AnalysisResult) {
	data := res.JSON()

	bw.mu.Lock()
	defer bw.mu.Unlock()

	if len(bw.buffer) >= bw.maxBuf {
		// Buffer full — drop oldest
		bw.buffer = bw.buffer[1:]
	}
	bw.buffer = append(bw.buffer, data)

	if bw.OnBuffer != nil {
		bw.OnBuffer()
	}
}

// flush replays all buffered writes through the underlying writer.
func (bw *BufferedWriter) flush() {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return
	}
	// Take ownership of the buffer
	toFlush := bw.buffer
	bw.buffer = make([][]byte, 0, 256)
	bw.mu.Unlock()

	flushed := 0
	for _, data := range toFlush {
		var res model.AnalysisResult
		if json.Unmarshal(data, &res) != nil {
			continue
		}
		if err := bw.writer.WriteResult(bw.ctx, &res); err != nil {
			log.Printf("[buffered-writer] replay error for %s: %v", res.Key(), err)
			continue
		}
		flushed++
	}

	log.Printf("[buffered-writer] flushed %d buffered writes", flushed)
	if bw.OnFlush != nil {
		bw.OnFlush(flushed)
	}
}

// PendingCount returns the number of buffered writes waiting to be flushed.
func (bw *BufferedWriter) PendingCount() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

// Underlying returns the wrapped Redis writer for direct access.
func (bw *BufferedWriter) Underlying() *Writer {
	return bw.writer
}
