package engine

import (
	"sort"
	"time"
)

type deferred struct {
	due time.Time
	seq uint64
	run func(now time.Time)
}

// Scheduler holds one-shot actions keyed by due time. It is driven by the
// engine tick and has no goroutines of its own.
type Scheduler struct {
	queue []deferred
	seq   uint64
}

// After queues fn to run on the first RunDue at or after now+delay. Actions
// with the same due time run in the order they were queued.
func (s *Scheduler) After(now time.Time, delay time.Duration, fn func(now time.Time)) {
	s.seq++
	d := deferred{due: now.Add(delay), seq: s.seq, run: fn}
	i := sort.Search(len(s.queue), func(i int) bool {
		return s.queue[i].due.After(d.due)
	})
	s.queue = append(s.queue, deferred{})
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = d
}

// RunDue runs every action due at now and returns how many ran. Actions
// queued while running are picked up if they are already due.
func (s *Scheduler) RunDue(now time.Time) int {
	ran := 0
	for len(s.queue) > 0 && !s.queue[0].due.After(now) {
		d := s.queue[0]
		s.queue = s.queue[1:]
		d.run(now)
		ran++
	}
	return ran
}

func (s *Scheduler) size() int { return len(s.queue) }

func (s *Scheduler) Clear() {
	s.queue = nil
}
