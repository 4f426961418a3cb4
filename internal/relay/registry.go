package relay

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/danmuck/fmtrelay/internal/filetree"
	"github.com/danmuck/fmtrelay/internal/supervisor"
)

// submission is one accepted submit request and the root it owns.
type submission struct {
	ID        string
	Root      string
	Tree      filetree.Node
	Arguments json.RawMessage
	Created   time.Time

	process *supervisor.Process
}

// SubmissionInfo is a read-only view of a running submission.
type SubmissionInfo struct {
	ID      string    `json:"id"`
	Session string    `json:"session,omitempty"`
	Root    string    `json:"root"`
	Pid     int       `json:"pid"`
	Created time.Time `json:"created"`
}

// Registry accounts for in-flight submissions keyed by id.
type Registry struct {
	mu    sync.RWMutex
	items map[string]*submission
}

func NewRegistry() *Registry {
	return &Registry{
		items: make(map[string]*submission),
	}
}

// add reports false when id is already tracked.
func (r *Registry) add(sub *submission) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[sub.ID]; exists {
		return false
	}
	r.items[sub.ID] = sub
	return true
}

func (r *Registry) attach(id string, proc *supervisor.Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.items[id]; ok {
		sub.process = proc
	}
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Registry) Get(id string) (SubmissionInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.items[id]
	if !ok {
		return SubmissionInfo{}, false
	}
	return infoFor(sub), true
}

// List returns submissions sorted by creation time.
func (r *Registry) List() []SubmissionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SubmissionInfo, 0, len(r.items))
	for _, sub := range r.items {
		out = append(out, infoFor(sub))
	}
	sortByCreated(out)
	return out
}

func sortByCreated(infos []SubmissionInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Created.Equal(infos[j].Created) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Created.Before(infos[j].Created)
	})
}

func infoFor(sub *submission) SubmissionInfo {
	info := SubmissionInfo{
		ID:      sub.ID,
		Root:    sub.Root,
		Created: sub.Created,
	}
	if sub.process != nil {
		info.Pid = sub.process.Pid()
	}
	return info
}
