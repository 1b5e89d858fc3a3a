package studytimer

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrAlreadyActive is returned when a user already has an unfinished timer
// for the lecture.
var ErrAlreadyActive = errors.New("a study timer is already active for this lecture")

type Key struct {
	UserID    string
	LectureID uuid.UUID
}

// Registry holds at most one live timer per (user, lecture).
type Registry struct {
	mu     sync.Mutex
	timers map[Key]*Timer
}

func NewRegistry() *Registry {
	return &Registry{timers: make(map[Key]*Timer)}
}

// Open registers a new timer for key. An existing timer is replaced only when
// its session has already been saved.
func (r *Registry) Open(key Key, opts Options) (*Timer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.timers[key]; ok {
		if existing.Active() {
			return nil, ErrAlreadyActive
		}
		existing.Close()
	}

	t := New(opts)
	r.timers[key] = t
	return t, nil
}

func (r *Registry) Get(key Key) (*Timer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[key]
	return t, ok
}

// Discard closes and forgets the timer for key.
func (r *Registry) Discard(key Key) bool {
	r.mu.Lock()
	t, ok := r.timers[key]
	delete(r.timers, key)
	r.mu.Unlock()

	if ok {
		t.Close()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// CloseAll stops every sampler. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	timers := r.timers
	r.timers = make(map[Key]*Timer)
	r.mu.Unlock()

	for _, t := range timers {
		t.Close()
	}
}
