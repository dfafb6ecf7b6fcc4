package rtsp

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func TestWriterSerializesConcurrentWrites(t *testing.T) {
	dst := &syncBuffer{}
	w := newWriter(dst)
	defer w.close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, w.write([]byte("x")))
		}()
	}
	wg.Wait()

	// Give the drain goroutine a moment to catch up with the last sends.
	deadline := time.Now().Add(time.Second)
	for len(dst.Bytes()) != 50 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Len(t, dst.Bytes(), 50)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("boom")
}

func TestWriterReportsErrorAfterFailure(t *testing.T) {
	w := newWriter(failingWriter{})
	defer w.close()

	deadline := time.Now().Add(time.Second)
	var err error
	for time.Now().Before(deadline) {
		if err = w.write([]byte("x")); err != nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.Error(t, err)
}

func TestWriterCloseDrainsWithoutBlocking(t *testing.T) {
	dst := &syncBuffer{}
	w := newWriter(dst)
	assert.NoError(t, w.write([]byte("a")))
	w.close()
}
