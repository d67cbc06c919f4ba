package service

import (
	"sync"

	"github.com/google/uuid"
)

// JobLocks serializes state changes per job. Two concurrent writers on the
// same job would otherwise read the same status and both pass the
// transition check; the loser gets ErrConflict instead of a silent
// overwrite. One instance is shared by every service that mutates jobs.
type JobLocks struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

func NewJobLocks() *JobLocks {
	return &JobLocks{held: make(map[uuid.UUID]struct{})}
}

// acquire returns false if another request holds the job.
func (l *JobLocks) acquire(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[id]; busy {
		return false
	}
	l.held[id] = struct{}{}
	return true
}

func (l *JobLocks) release(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, id)
}
