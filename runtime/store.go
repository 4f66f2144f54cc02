package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	wasip1 "github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wasmlite/wasmlite/engine"
	errs "github.com/wasmlite/wasmlite/errors"
	"github.com/wasmlite/wasmlite/wasi"
)

// Store owns all runtime state: instantiated modules, host functions,
// host-created globals and memories, extern references and fuel.
// Objects created in one store cannot be used in another. A Store is
// not safe for concurrent use.
type Store struct {
	eng *engine.Engine
	rt  wazero.Runtime
	log *zap.Logger

	mu       sync.Mutex
	closed   bool
	nameSeq  map[string]int
	wasiCfg  *wasi.Config
	wasiInit bool

	fuelEnabled  bool
	fuelAdded    uint64
	fuelConsumed uint64
	fuelGlobals  []fuelCounter

	refs          map[uint64]any
	nextRef       uint64
	cancelSeq     uint64
	activeCancels map[uint64]context.CancelFunc
}

// fuelCounter pairs an instance's fuel global with the module that
// owns it, so counters of closed instances can be dropped.
type fuelCounter struct {
	mod api.Module
	g   api.MutableGlobal
}

// NewStore creates a store backed by its own runtime, configured by
// the engine.
func NewStore(ctx context.Context, eng *engine.Engine) *Store {
	return &Store{
		eng:           eng,
		rt:            wazero.NewRuntimeWithConfig(ctx, eng.RuntimeConfig()),
		log:           engine.Logger(),
		nameSeq:       map[string]int{},
		fuelEnabled:   eng.Config().ConsumeFuel,
		refs:          map[uint64]any{},
		nextRef:       1,
		activeCancels: map[uint64]context.CancelFunc{},
	}
}

// Engine returns the engine this store was created from.
func (s *Store) Engine() *engine.Engine { return s.eng }

// Context returns the store's state view. Store state is not split
// from the store itself in this API, so the view is the store.
func (s *Store) Context() *Store { return s }

// Close releases every instance, host module and open WASI file owned
// by the store.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.wasiCfg != nil {
		if err := s.wasiCfg.Close(); err != nil {
			s.log.Warn("closing wasi files", zap.Error(err))
		}
	}
	return s.rt.Close(ctx)
}

func (s *Store) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errs.Closed(errs.PhaseStore, "store")
	}
	return nil
}

// uniqueName reserves a registration name for a wazero module. Import
// rewiring resolves by module name, so every host function, synthetic
// entity and instance gets its own.
func (s *Store) uniqueName(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nameSeq[prefix]++
	return fmt.Sprintf("%s.%d", prefix, s.nameSeq[prefix])
}

// SetWasi installs the WASI configuration used by instances of this
// store. It must be set before the first instantiation that imports
// WASI.
func (s *Store) SetWasi(cfg *wasi.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wasiCfg = cfg
}

// initWasi instantiates the wasi_snapshot_preview1 host module once.
func (s *Store) initWasi(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wasiInit {
		return nil
	}
	if _, err := wasip1.Instantiate(ctx, s.rt); err != nil {
		return errs.New(errs.PhaseWasi, errs.KindInternal).
			Detail("instantiate wasi_snapshot_preview1").Cause(err).Build()
	}
	s.wasiInit = true
	return nil
}

// baseModuleConfig is the starting instantiation config: the store's
// WASI settings when present, with automatic start functions disabled
// so instantiation never runs guest code beyond the start section.
func (s *Store) baseModuleConfig() wazero.ModuleConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := wazero.NewModuleConfig()
	if s.wasiCfg != nil {
		cfg = s.wasiCfg.ModuleConfig()
	}
	return cfg.WithStartFunctions()
}

// instantiateSynthetic registers a one-entity module carrying a
// host-created global, memory or table, so imports can be rewired to
// it by name.
func (s *Store) instantiateSynthetic(ctx context.Context, bin []byte, name string) (api.Module, error) {
	mod, err := s.rt.InstantiateWithConfig(ctx, bin,
		wazero.NewModuleConfig().WithName(name).WithStartFunctions())
	if err != nil {
		return nil, errs.New(errs.PhaseInstantiate, errs.KindInternal).
			Subject(name).Cause(err).Build()
	}
	return mod, nil
}

// AddFuel adds fuel for instrumented modules to consume. It fails
// unless the engine was configured with ConsumeFuel.
func (s *Store) AddFuel(fuel uint64) error {
	if !s.fuelEnabled {
		return errs.FuelDisabled()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fuelAdded += fuel
	remaining := s.fuelAdded - s.fuelConsumed
	for _, c := range s.fuelGlobals {
		if c.mod.IsClosed() {
			continue
		}
		c.g.Set(remaining)
	}
	return nil
}

// FuelConsumed reports how much fuel the store's instances have burned
// since creation. The second result is false when fuel metering is
// disabled.
func (s *Store) FuelConsumed() (uint64, bool) {
	if !s.fuelEnabled {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fuelConsumed, true
}

// FuelRemaining reports the fuel left in the store. The second result
// is false when fuel metering is disabled.
func (s *Store) FuelRemaining() (uint64, bool) {
	if !s.fuelEnabled {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fuelAdded - s.fuelConsumed, true
}

// registerFuelGlobal adopts an instance's fuel counter and seeds it
// with the store's current balance.
func (s *Store) registerFuelGlobal(mod api.Module, g api.MutableGlobal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.Set(s.fuelAdded - s.fuelConsumed)
	s.fuelGlobals = append(s.fuelGlobals, fuelCounter{mod: mod, g: g})
}

// fuelBefore snapshots the balance before a call.
func (s *Store) fuelBefore() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(s.fuelAdded - s.fuelConsumed)
}

// fuelAfter reconciles the balance after a call. Counters are
// per-instance copies of the shared balance, so the lowest one is the
// new truth. Counters whose instance has been closed are dropped.
// It reports whether fuel ran out during the call.
func (s *Store) fuelAfter(before int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.fuelGlobals[:0]
	after := before
	for _, c := range s.fuelGlobals {
		if c.mod.IsClosed() {
			continue
		}
		live = append(live, c)
		if v := int64(c.g.Get()); v < after {
			after = v
		}
	}
	s.fuelGlobals = live
	if after == before {
		return false
	}
	s.fuelConsumed += uint64(before - max64(after, 0))
	remaining := uint64(max64(after, 0))
	for _, c := range s.fuelGlobals {
		c.g.Set(remaining)
	}
	return after < 0
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// GC is a no-op: externref lifetimes are managed explicitly via
// ExternRef.Unwrap and store shutdown.
func (s *Store) GC() {}

func (s *Store) registerExternRef(data any) *ExternRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.nextRef
	s.nextRef++
	s.refs[h] = data
	return &ExternRef{store: s, handle: h}
}

func (s *Store) externRefData(handle uint64) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs[handle]
}

func (s *Store) dropExternRef(handle uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refs, handle)
}

// externRefFromHandle rebuilds the reference for a handle that came
// back out of guest code. 0 is the null reference.
func (s *Store) externRefFromHandle(handle uint64) *ExternRef {
	if handle == 0 {
		return nil
	}
	return &ExternRef{store: s, handle: handle}
}

// InterruptHandle returns a handle that stops running guest code in
// this store from another goroutine. The engine must be configured
// with Interruptable.
func (s *Store) InterruptHandle() (*InterruptHandle, error) {
	if !s.eng.Config().Interruptable {
		return nil, errs.Unsupported(errs.PhaseStore, "engine not configured as interruptable")
	}
	return &InterruptHandle{store: s}, nil
}

// InterruptHandle interrupts a running call; interrupted guests
// observe a trap with message "interrupt".
type InterruptHandle struct {
	store *Store
}

// Interrupt stops the calls currently executing in the store, if any.
// Host functions that have called back into the guest hold several
// active calls at once; all of them are stopped. Safe to call from any
// goroutine, any number of times.
func (h *InterruptHandle) Interrupt() {
	h.store.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(h.store.activeCancels))
	for _, cancel := range h.store.activeCancels {
		cancels = append(cancels, cancel)
	}
	h.store.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// callContext wraps ctx so InterruptHandle can cancel it for the
// duration of a call. Each call registers its own cancel so reentrant
// calls do not mask the outer one.
func (s *Store) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelSeq++
	id := s.cancelSeq
	s.activeCancels[id] = cancel
	s.mu.Unlock()
	return ctx, func() {
		s.mu.Lock()
		delete(s.activeCancels, id)
		s.mu.Unlock()
		cancel()
	}
}
