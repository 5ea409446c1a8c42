package attendance

import "sync"

// studentLimiter serializes check-in flows per student inside this process,
// so the validate-then-write sequence cannot interleave with itself. Races
// across processes are still caught by the unique indexes.
type studentLimiter struct {
	mu   sync.Mutex
	byID map[int64]*sync.Mutex
}

func newStudentLimiter() *studentLimiter {
	return &studentLimiter{byID: make(map[int64]*sync.Mutex)}
}

func (l *studentLimiter) lock(studentID int64) func() {
	l.mu.Lock()
	m, ok := l.byID[studentID]
	if !ok {
		m = &sync.Mutex{}
		l.byID[studentID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return func() { m.Unlock() }
}
