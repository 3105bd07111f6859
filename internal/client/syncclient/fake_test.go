package syncclient

import (
	"context"
	"sync"
	"time"
)

// fakeScheduler is a virtual clock. Advance runs due callbacks in time order
// on the calling goroutine.
type fakeScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*fakeTask
}

type fakeTask struct {
	s       *fakeScheduler
	at      time.Duration
	order   int
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &fakeTask{s: s, at: s.now + d, order: s.seq, f: f}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var next *fakeTask
		for _, t := range s.tasks {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at || (t.at == next.at && t.order < next.order) {
				next = t
			}
		}
		if next == nil {
			if s.now < target {
				s.now = target
			}
			s.mu.Unlock()
			return
		}
		next.fired = true
		if next.at > s.now {
			s.now = next.at
		}
		s.mu.Unlock()
		next.f()
	}
}

func (s *fakeScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

type savedAt struct {
	at      time.Duration
	content string
}

// fakeRemote is an in-memory document store with failure and blocking hooks.
type fakeRemote struct {
	mu      sync.Mutex
	sched   *fakeScheduler
	content string
	reads   int
	saves   []savedAt
	readErr error
	saveErr error

	// readGate, when set, blocks the next Read until closed.
	readGate    chan struct{}
	readStarted chan struct{}
	// onReplace runs inside Replace before the store is updated.
	onReplace func()
}

func (r *fakeRemote) Read(ctx context.Context) (string, error) {
	r.mu.Lock()
	r.reads++
	gate, started := r.readGate, r.readStarted
	r.readGate, r.readStarted = nil, nil
	r.mu.Unlock()

	if gate != nil {
		close(started)
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return "", r.readErr
	}
	return r.content, nil
}

func (r *fakeRemote) Replace(ctx context.Context, content string) error {
	r.mu.Lock()
	hook := r.onReplace
	r.onReplace = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.content = content
	var at time.Duration
	if r.sched != nil {
		at = r.sched.Now()
	}
	r.saves = append(r.saves, savedAt{at: at, content: content})
	return nil
}

func (r *fakeRemote) set(content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content = content
}

func (r *fakeRemote) readCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

func (r *fakeRemote) savedContents() []savedAt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]savedAt(nil), r.saves...)
}
