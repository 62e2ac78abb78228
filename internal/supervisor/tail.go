package supervisor

import (
	"log"
	"strings"
	"sync"
)

// tailBuffer is an io.Writer that keeps only the last max bytes written.
// Used to bound the stderr capture that becomes the failure reason when a
// child crashes. Safe for concurrent use: the child's pipe copier writes
// while the supervisor reads on exit.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	if max <= 0 {
		max = 2048
	}
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.max {
		b.buf = b.buf[len(b.buf)-b.max:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}

// logWriter forwards child output chunks to the process log with a
// component prefix. The external device libraries chatter on stderr
// during normal startup, so this is diagnostics, never a failure signal.
type logWriter struct {
	prefix string
}

func (w logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			log.Printf("%s: %s", w.prefix, line)
		}
	}
	return len(p), nil
}
