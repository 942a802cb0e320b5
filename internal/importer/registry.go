package importer

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultRetainedJobs = 32

// Registry tracks jobs by id and allows one running job per store. Finished
// jobs stay visible until they fall out of a small LRU.
type Registry struct {
	mu      sync.Mutex
	running map[Store]*JobHandle
	jobs    *lru.Cache[string, *JobHandle]
}

func NewRegistry(retain int) *Registry {
	if retain <= 0 {
		retain = defaultRetainedJobs
	}
	jobs, err := lru.New[string, *JobHandle](retain)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &Registry{
		running: make(map[Store]*JobHandle),
		jobs:    jobs,
	}
}

func (r *Registry) Get(id string) (*JobHandle, bool) {
	return r.jobs.Get(id)
}

// Running returns the job currently writing to s, if any.
func (r *Registry) Running(s Store) (*JobHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.running[s]
	return h, ok
}

func (r *Registry) acquire(s Store, h *JobHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.running[s]; busy {
		return ErrJobRunning
	}
	r.running[s] = h
	r.jobs.Add(h.ID, h)
	return nil
}

func (r *Registry) release(s Store, h *JobHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[s] == h {
		delete(r.running, s)
	}
}
