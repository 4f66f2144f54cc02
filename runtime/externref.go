package runtime

// ExternRef is an opaque host value that can flow through WebAssembly
// as an externref. The guest cannot inspect it; it can only pass it
// around and hand it back. Refs are registered in their store and
// released when the store closes.
type ExternRef struct {
	store  *Store
	handle uint64
}

// NewExternRef wraps data in a reference usable as an externref value
// in s.
func NewExternRef(s *Store, data any) *ExternRef {
	return s.registerExternRef(data)
}

// Data returns the wrapped host value.
func (r *ExternRef) Data() any {
	if r == nil {
		return nil
	}
	return r.store.externRefData(r.handle)
}

// Unwrap releases the reference, allowing the wrapped value to be
// collected once the guest no longer holds it.
func (r *ExternRef) Unwrap() {
	if r != nil {
		r.store.dropExternRef(r.handle)
	}
}
