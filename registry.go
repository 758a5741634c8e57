package quill

import (
	"reflect"
	"sync"
)

var (
	plans   = make(map[reflect.Type]*structPlan)
	plansMu sync.RWMutex

	registry   = make(map[reflect.Type]any)
	registryMu sync.RWMutex
)

// planFor returns the cached plan for struct type rt, building it once.
func planFor(rt reflect.Type) (*structPlan, error) {
	plansMu.RLock()
	if cached, ok := plans[rt]; ok {
		plansMu.RUnlock()
		return cached, nil
	}
	plansMu.RUnlock()

	plansMu.Lock()
	defer plansMu.Unlock()

	if cached, ok := plans[rt]; ok {
		return cached, nil
	}

	plan, err := buildStructPlan(rt)
	if err != nil {
		return nil, err
	}
	plans[rt] = plan
	return plan, nil
}

// Use returns a cached processor for T or builds a new one.
// Options apply only when the processor is first built.
func Use[T any](opts ...Option) (*Processor[T], error) {
	typ := reflect.TypeFor[T]()

	// Fast path: read-lock cache check
	registryMu.RLock()
	if cached, ok := registry[typ]; ok {
		registryMu.RUnlock()
		return cached.(*Processor[T]), nil
	}
	registryMu.RUnlock()

	// Slow path: build and cache with write-lock
	registryMu.Lock()
	defer registryMu.Unlock()

	// Double-check pattern
	if cached, ok := registry[typ]; ok {
		return cached.(*Processor[T]), nil
	}

	processor, err := NewProcessor[T](opts...)
	if err != nil {
		return nil, err
	}

	registry[typ] = processor
	return processor, nil
}

// Reset clears the processor registry.
// This is primarily useful for test isolation.
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[reflect.Type]any)
}
