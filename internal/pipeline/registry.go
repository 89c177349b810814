package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go-pipeline-engine/internal/model"
)

var (
	ErrPipelineNotFound = errors.New("pipeline not found")
	ErrRegistryFrozen   = errors.New("registry is frozen")
	ErrDuplicate        = errors.New("pipeline already registered")
)

// Registry holds the pipelines known to the process. It is populated at
// startup and frozen before any run starts.
type Registry struct {
	mu        sync.RWMutex
	pipelines map[string]*model.Pipeline
	frozen    bool
}

func NewRegistry() *Registry {
	return &Registry{pipelines: make(map[string]*model.Pipeline)}
}

func (r *Registry) Register(p *model.Pipeline) error {
	if p == nil || p.ID == "" {
		return errors.New("pipeline id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	if _, ok := r.pipelines[p.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, p.ID)
	}
	r.pipelines[p.ID] = p
	return nil
}

func (r *Registry) Get(id string) (*model.Pipeline, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pipelines[id]
	return p, ok
}

// List returns the pipelines ordered by id.
func (r *Registry) List() []*model.Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Pipeline, 0, len(r.pipelines))
	for _, p := range r.pipelines {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Freeze rejects any further Register call.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

var (
	catalog     *Registry
	catalogErr  error
	catalogOnce sync.Once
)

// InitCatalog populates the process-wide catalogue exactly once and
// freezes it. Later calls return the first result.
func InitCatalog(populate func(*Registry) error) (*Registry, error) {
	catalogOnce.Do(func() {
		reg := NewRegistry()
		if err := populate(reg); err != nil {
			catalogErr = err
			return
		}
		reg.Freeze()
		catalog = reg
	})
	return catalog, catalogErr
}

// Catalog returns the process-wide catalogue, or nil before InitCatalog.
func Catalog() *Registry {
	return catalog
}
