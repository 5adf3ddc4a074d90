package progress

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
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

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTickerLogsProgress(t *testing.T) {
	out := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(out, nil))

	ticker := NewTicker(2, 10*time.Millisecond, logger)
	ticker.Start()
	for i := 0; i < 4; i++ {
		ticker.Advance()
	}

	deadline := time.Now().Add(time.Second)
	for !strings.Contains(out.String(), `"percent":"100.00"`) {
		if time.Now().After(deadline) {
			t.Fatalf("expected a completion log line, got %q", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	ticker.Stop()
	ticker.Stop() // safe to call twice

	if ticker.Ticks() != 4 {
		t.Fatalf("expected 4 ticks, got %d", ticker.Ticks())
	}
}

func TestTickerWithNoConfigs(t *testing.T) {
	ticker := NewTicker(0, time.Millisecond, nil)
	ticker.Start()
	ticker.Stop()
}
