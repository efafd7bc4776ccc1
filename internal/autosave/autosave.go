// Package autosave periodically flushes tracker state to storage.
package autosave

import (
	"context"
	"log"
	"sync"
	"time"
)

// Flusher saves pending changes. *api.Service satisfies it.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Saver runs a background loop that flushes on every tick.
type Saver struct {
	flusher  Flusher
	interval time.Duration

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	mu       sync.Mutex
	flushes  int
	failures int
}

// New creates a saver. A non-positive interval falls back to five seconds.
func New(f Flusher, interval time.Duration) *Saver {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Saver{
		flusher:  f,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the flush loop.
func (s *Saver) Start() {
	s.wg.Add(1)
	go s.loop()
	log.Printf("Autosave started (every %s)", s.interval)
}

// Stop halts the loop and performs one last flush. It is safe to call
// more than once.
func (s *Saver) Stop(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
		err = s.flush(ctx)
		log.Println("Autosave stopped")
	})
	return err
}

func (s *Saver) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.flush(s.ctx); err != nil {
				log.Printf("Autosave failed: %v", err)
			}
		}
	}
}

func (s *Saver) flush(ctx context.Context) error {
	err := s.flusher.Flush(ctx)

	s.mu.Lock()
	s.flushes++
	if err != nil {
		s.failures++
	}
	s.mu.Unlock()
	return err
}

// Stats returns how many flushes ran and how many failed.
func (s *Saver) Stats() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]int{
		"flushes":  s.flushes,
		"failures": s.failures,
	}
}
