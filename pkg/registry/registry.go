// Package registry maps expert ids to their resolution pipelines and routes
// queries through them.
package registry

import (
	"github.com/pario-ai/sage/pkg/models"
	"github.com/pario-ai/sage/pkg/pipeline"
)

// Entry registers a pipeline under an expert id.
type Entry struct {
	ID          models.ExpertID
	Description string
	Pipeline    *pipeline.Pipeline
}

// Info describes a registered expert.
type Info struct {
	ID          models.ExpertID `json:"id"`
	Description string          `json:"description"`
}

// Registry is immutable after New and safe for concurrent use.
type Registry struct {
	entries []Entry
	index   map[models.ExpertID]int
}

// New creates a Registry. A later entry with the same id replaces an earlier one
// but keeps its position.
func New(entries ...Entry) *Registry {
	r := &Registry{index: make(map[models.ExpertID]int, len(entries))}
	for _, e := range entries {
		if e.Pipeline == nil {
			continue
		}
		if i, ok := r.index[e.ID]; ok {
			r.entries[i] = e
			continue
		}
		r.index[e.ID] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	return r
}

// Lookup returns the pipeline registered for id.
func (r *Registry) Lookup(id models.ExpertID) (*pipeline.Pipeline, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.entries[i].Pipeline, true
}

// Experts lists registered experts in registration order.
func (r *Registry) Experts() []Info {
	out := make([]Info, len(r.entries))
	for i, e := range r.entries {
		out[i] = Info{ID: e.ID, Description: e.Description}
	}
	return out
}

// Len returns the number of registered experts.
func (r *Registry) Len() int { return len(r.entries) }
