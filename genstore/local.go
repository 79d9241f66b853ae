package genstore

import (
	"context"
	"sync"
	"time"
)

type localGenEntry struct {
	gen    uint64
	bumped time.Time
}

// LocalGenStore keeps generations in-process. With a positive CleanupInterval
// and Retention it prunes long-idle entries in the background.
type LocalGenStore struct {
	mu   sync.RWMutex
	gens map[string]localGenEntry
	now  func() time.Time

	stop chan struct{}
	done sync.WaitGroup
	once sync.Once
}

var _ GenStore = (*LocalGenStore)(nil)

type LocalOptions struct {
	CleanupInterval time.Duration // 0 => no background cleanup
	Retention       time.Duration
}

func NewLocalGenStore(opts LocalOptions) *LocalGenStore {
	s := &LocalGenStore{gens: make(map[string]localGenEntry), now: time.Now}
	if opts.CleanupInterval > 0 && opts.Retention > 0 {
		s.stop = make(chan struct{})
		s.done.Add(1)
		go s.cleanupLoop(opts.CleanupInterval, opts.Retention)
	}
	return s
}

func (s *LocalGenStore) cleanupLoop(every, retention time.Duration) {
	defer s.done.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.Cleanup(retention)
		case <-s.stop:
			return
		}
	}
}

func (s *LocalGenStore) Snapshot(_ context.Context, k string) (uint64, error) {
	s.mu.RLock()
	e := s.gens[k]
	s.mu.RUnlock()
	return e.gen, nil
}

func (s *LocalGenStore) Bump(_ context.Context, k string) (uint64, error) {
	now := s.now()
	s.mu.Lock()
	e := s.gens[k]
	e.gen++
	e.bumped = now
	s.gens[k] = e
	s.mu.Unlock()
	return e.gen, nil
}

func (s *LocalGenStore) Cleanup(retention time.Duration) int {
	if retention <= 0 {
		return 0
	}
	cutoff := s.now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.gens {
		if e.bumped.Before(cutoff) {
			delete(s.gens, k)
			removed++
		}
	}
	return removed
}

func (s *LocalGenStore) Close(context.Context) error {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
			s.done.Wait()
		}
	})
	return nil
}
