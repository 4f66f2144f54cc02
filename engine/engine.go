package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
)

// Engine holds compilation configuration shared across stores. Engines
// are cheap to keep around for the process lifetime; every store built
// on the same engine shares its compilation cache.
type Engine struct {
	cfg   Config
	cache wazero.CompilationCache
}

// New creates an engine with the default configuration.
func New() *Engine {
	e, err := NewWithConfig(NewConfig())
	if err != nil {
		// Only cache setup can fail, and the default config has no cache.
		panic(err)
	}
	return e
}

// NewWithConfig creates an engine from cfg. cfg is copied; later
// mutations do not affect the engine.
func NewWithConfig(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if cfg.Profiling != ProfileNone {
		return nil, fmt.Errorf("engine: profiling strategy %d is not supported", cfg.Profiling)
	}
	e := &Engine{cfg: *cfg}
	switch {
	case cfg.CacheDir != "":
		cache, err := wazero.NewCompilationCacheWithDir(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("engine: open compilation cache at %s: %w", cfg.CacheDir, err)
		}
		e.cache = cache
	case cfg.Cache:
		e.cache = wazero.NewCompilationCache()
	}
	return e, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// RuntimeConfig builds the wazero configuration for one store's
// runtime.
func (e *Engine) RuntimeConfig() wazero.RuntimeConfig {
	var rc wazero.RuntimeConfig
	if e.cfg.Strategy == StrategyInterpreter {
		rc = wazero.NewRuntimeConfigInterpreter()
	} else {
		rc = wazero.NewRuntimeConfigCompiler()
	}

	rc = rc.WithCoreFeatures(e.features())
	rc = rc.WithDebugInfoEnabled(e.cfg.DebugInfo)
	if e.cfg.Interruptable {
		rc = rc.WithCloseOnContextDone(true)
	}
	if e.cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(e.cfg.MemoryLimitPages)
	}
	if e.cache != nil {
		rc = rc.WithCompilationCache(e.cache)
	}
	return rc
}

// features maps the config toggles onto wazero's core feature flags.
// Mutable global import/export stays on unconditionally: fuel metering
// relies on it.
func (e *Engine) features() api.CoreFeatures {
	f := api.CoreFeatureMutableGlobal
	if e.cfg.ReferenceTypes {
		f |= api.CoreFeatureReferenceTypes
	}
	if e.cfg.SIMD {
		f |= api.CoreFeatureSIMD
	}
	if e.cfg.BulkMemory {
		f |= api.CoreFeatureBulkMemoryOperations
	}
	if e.cfg.MultiValue {
		f |= api.CoreFeatureMultiValue
	}
	if e.cfg.SignExtension {
		f |= api.CoreFeatureSignExtensionOps
	}
	if e.cfg.SaturatingTruncation {
		f |= api.CoreFeatureNonTrappingFloatToIntConversion
	}
	if e.cfg.Threads {
		f |= experimental.CoreFeaturesThreads
	}
	return f
}

// Close releases the engine's compilation cache, if any. Stores remain
// usable; only newly compiled modules lose cache sharing.
func (e *Engine) Close(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	if err := e.cache.Close(ctx); err != nil {
		return fmt.Errorf("engine: close compilation cache: %w", err)
	}
	return nil
}
