package progress

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Ticker counts progress ticks and periodically logs completion.
// Each config contributes two ticks, one on admission and one on completion.
type Ticker struct {
	total    uint64
	ticks    atomic.Uint64
	interval time.Duration
	logger   *slog.Logger

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewTicker(configs int, interval time.Duration, logger *slog.Logger) *Ticker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Ticker{
		total:    uint64(configs) * 2,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

func (t *Ticker) Advance() { t.ticks.Add(1) }

func (t *Ticker) Ticks() uint64 { return t.ticks.Load() }

// Start launches the logging goroutine. Stop must be called to end it.
func (t *Ticker) Start() {
	if t.total == 0 {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		var lastLogged uint64
		for {
			select {
			case <-ticker.C:
				done := t.ticks.Load()
				if done == lastLogged {
					continue
				}
				t.log(done)
				lastLogged = done
				if done >= t.total {
					return
				}
			case <-t.done:
				return
			}
		}
	}()
}

func (t *Ticker) Stop() {
	t.once.Do(func() { close(t.done) })
	t.wg.Wait()
}

func (t *Ticker) log(done uint64) {
	remaining := uint64(0)
	if done < t.total {
		remaining = t.total - done
	}
	percent := float64(done) / float64(t.total) * 100
	t.logger.Info("Progress", "total_ticks", t.total, "completed_ticks", done, "remaining_ticks", remaining, "percent", fmt.Sprintf("%.2f", percent))
}
