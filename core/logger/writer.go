package logger

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/cbrbot/core/metrics"
)

var errWriterClosed = errors.New("logger: writer closed")

// asyncWriter fans log lines out to its sinks from a single goroutine.
// Write never blocks: when the queue is full the line is dropped and counted.
type asyncWriter struct {
	sinks []io.Writer
	queue chan []byte
	flush chan chan error
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	dropped atomic.Uint64
	errMu   sync.Mutex
	err     error
}

func newAsyncWriter(writers []io.Writer, queueLen int) *asyncWriter {
	if queueLen <= 0 {
		queueLen = 4096
	}
	sinks := make([]io.Writer, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			sinks = append(sinks, w)
		}
	}
	w := &asyncWriter{
		sinks: sinks,
		queue: make(chan []byte, queueLen),
		flush: make(chan chan error),
		done:  make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				return
			}
			w.writeAll(line)
		case ack := <-w.flush:
			// Lines queued before the flush request are written first.
			for n := len(w.queue); n > 0; n-- {
				w.writeAll(<-w.queue)
			}
			ack <- w.firstErr()
		}
	}
}

// Write queues a copy of p.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	line := append([]byte(nil), p...)

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	select {
	case w.queue <- line:
	default:
		w.dropped.Add(1)
		metrics.LogLinesDropped.Inc()
	}
	return nil
}

// Flush blocks until everything queued so far reached the sinks.
func (w *asyncWriter) Flush() error {
	w.mu.RLock()
	closed := w.closed
	w.mu.RUnlock()
	if closed {
		return w.firstErr()
	}
	ack := make(chan error, 1)
	select {
	case w.flush <- ack:
		return <-ack
	case <-w.done:
		return w.firstErr()
	}
}

// Close drains the queue and reports the first write error.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return w.firstErr()
}

// Dropped reports how many lines were discarded on a full queue.
func (w *asyncWriter) Dropped() uint64 {
	return w.dropped.Load()
}

func (w *asyncWriter) writeAll(line []byte) {
	for _, sink := range w.sinks {
		if _, err := sink.Write(line); err != nil {
			w.errMu.Lock()
			if w.err == nil {
				w.err = err
			}
			w.errMu.Unlock()
		}
	}
}

func (w *asyncWriter) firstErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
