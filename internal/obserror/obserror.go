// Package obserror defines the observation-error-model collaborator: an
// object constructed by name that maintains observation-error statistics for
// an obs space. The QC core neither calls nor depends on it; it shares the
// repository because the two ride the same assimilation lifecycle.
package obserror

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/couchcryptid/obs-qc-service/internal/obsspace"
)

// Model is the lifecycle contract for an observation-error model. A model is
// constructed via New, Prior is invoked before the error statistics are used,
// Post after the forward-model evaluation, and Close releases the model.
type Model interface {
	// Prior computes or updates the error statistics before use.
	Prior(ctx context.Context) error

	// Post runs after evaluation. Current models treat it as a no-op hook
	// reserved for future use.
	Post(ctx context.Context) error

	Close() error
}

// Config carries the model-selection settings. Fields beyond the model name
// identify the model instance; models interpret Parameters as they see fit.
type Config struct {
	Name       string             `json:"name"`
	Parameters map[string]float64 `json:"parameters,omitempty"`
}

// Factory builds a named model for an obs space and its (read-only)
// observation errors.
type Factory func(cfg Config, space *obsspace.ObsSpace, errs *obsspace.FloatMatrix) (Model, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a model constructible by name. Registering the same name
// twice panics; it indicates two models fighting over an identity.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("obserror: model %q registered twice", name))
	}
	factories[name] = f
}

// New constructs the model named in cfg.
func New(cfg Config, space *obsspace.ObsSpace, errs *obsspace.FloatMatrix) (Model, error) {
	mu.RLock()
	f, ok := factories[cfg.Name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("obserror: unknown model %q (registered: %v)", cfg.Name, names())
	}
	return f(cfg, space, errs)
}

func names() []string {
	mu.RLock()
	defer mu.RUnlock()
	ns := make([]string, 0, len(factories))
	for n := range factories {
		ns = append(ns, n)
	}
	sort.Strings(ns)
	return ns
}
