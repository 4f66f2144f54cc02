package engine

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if !cfg.ReferenceTypes || !cfg.SIMD || !cfg.BulkMemory || !cfg.MultiValue {
		t.Errorf("spec-level features should default on: %+v", cfg)
	}
	if cfg.ConsumeFuel || cfg.DebugInfo || cfg.Threads {
		t.Errorf("opt-in features should default off: %+v", cfg)
	}
	if cfg.Strategy != StrategyAuto {
		t.Errorf("strategy = %v, want auto", cfg.Strategy)
	}
}

func TestEngineConfigIsCopied(t *testing.T) {
	cfg := NewConfig()
	cfg.ConsumeFuel = true
	e, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg.ConsumeFuel = false
	if !e.Config().ConsumeFuel {
		t.Error("engine must copy the config at construction")
	}
}

func TestEngineCache(t *testing.T) {
	e, err := NewWithConfig(&Config{Cache: true})
	if err != nil {
		t.Fatal(err)
	}
	if e.cache == nil {
		t.Error("in-memory cache not created")
	}
	if err := e.Close(context.Background()); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestEngineCacheDir(t *testing.T) {
	e, err := NewWithConfig(&Config{CacheDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close(context.Background())
	if e.cache == nil {
		t.Error("directory cache not created")
	}
}

func TestRuntimeConfigInterpreter(t *testing.T) {
	e, err := NewWithConfig(&Config{Strategy: StrategyInterpreter})
	if err != nil {
		t.Fatal(err)
	}
	if rc := e.RuntimeConfig(); rc == nil {
		t.Fatal("nil runtime config")
	}
}

func TestLoggerDefaultsToNop(t *testing.T) {
	if Logger() == nil {
		t.Fatal("Logger returned nil")
	}
	l := zap.NewNop()
	SetLogger(l)
	defer SetLogger(nil)
	if Logger() != l {
		t.Error("SetLogger not honored")
	}
}
