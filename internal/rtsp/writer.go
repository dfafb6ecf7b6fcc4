package rtsp

import (
	"io"
)

// writer serializes every write to a single net.Conn through one goroutine,
// so the control and streaming goroutines never race on the socket (spec
// section 9: "a dedicated writer task with an inbound message queue" as the
// cleaner alternative to a writer mutex).
type writer struct {
	queue chan []byte
	errCh chan error
	done  chan struct{}
}

// newWriter starts the writer goroutine over dst. Close must be called to
// release it.
func newWriter(dst io.Writer) *writer {
	w := &writer{
		queue: make(chan []byte, 16),
		errCh: make(chan error, 1),
		done:  make(chan struct{}),
	}
	go w.run(dst)
	return w
}

func (w *writer) run(dst io.Writer) {
	defer close(w.done)
	for b := range w.queue {
		if _, err := dst.Write(b); err != nil {
			select {
			case w.errCh <- err:
			default:
			}
			// Drain the rest of the queue without writing, so senders
			// blocked on a full channel don't deadlock after the socket
			// has failed.
			for range w.queue {
			}
			return
		}
	}
}

// write enqueues b for writing and reports the first write error observed
// so far, if any. It does not block on the write completing.
func (w *writer) write(b []byte) error {
	select {
	case err := <-w.errCh:
		w.errCh <- err
		return err
	default:
	}
	select {
	case w.queue <- b:
		return nil
	case err := <-w.errCh:
		w.errCh <- err
		return err
	}
}

// close stops accepting writes and waits for the goroutine to drain.
func (w *writer) close() {
	close(w.queue)
	<-w.done
}
