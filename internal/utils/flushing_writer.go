package utils

import (
	"io"
	"sync"
)

type flusher interface {
	Flush() error
}

// FlushingWriter carries completed reconciliation logs to the user. Each Write is applied
// whole under a lock, and a buffered destination is flushed after every write so a
// finished repository shows up while its siblings are still running.
type FlushingWriter struct {
	mutex       sync.Mutex
	destination io.Writer
	flusher     flusher
}

// NewFlushingWriter wraps destination. A FlushingWriter is returned unchanged and nil stays nil.
func NewFlushingWriter(destination io.Writer) io.Writer {
	switch typedDestination := destination.(type) {
	case nil:
		return nil
	case *FlushingWriter:
		return typedDestination
	}
	wrapped := &FlushingWriter{destination: destination}
	wrapped.flusher, _ = destination.(flusher)
	return wrapped
}

func (writer *FlushingWriter) Write(data []byte) (int, error) {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()

	written, writeError := writer.destination.Write(data)
	if writeError != nil || writer.flusher == nil {
		return written, writeError
	}
	return written, writer.flusher.Flush()
}
