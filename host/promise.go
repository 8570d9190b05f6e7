package host

import (
	"sync"

	"github.com/google/uuid"
)

// PromiseID correlates a scheduled cross-contract action with the
// callback that eventually resolves it.
type PromiseID string

// Action describes a single cross-contract invocation an engine asks the
// host runtime to perform on its behalf — a native-token transfer, a
// FunctionCall action, or a set_gov_ban identity-registry call.
type Action struct {
	Method   string
	Target   string
	Args     []byte
	Deposit  string
	Gas      uint64
}

// Promises schedules Actions and delivers their eventual resolution.
// Engines never block on a promise: Schedule returns immediately and the
// engine records "execution in flight" on the proposal per spec §5 rule
// 1, clearing it only when Callback fires.
type Promises interface {
	Schedule(actions ...Action) PromiseID
}

// Callback is the signature an engine registers to learn the outcome of
// a previously scheduled PromiseID.
type Callback func(id PromiseID, ok bool, callErr error)

// MemPromises is an in-process Promises implementation: Schedule
// allocates an ID; the test or simulator harness later calls Resolve to
// invoke whichever callback was registered for that ID, standing in for
// the host runtime's asynchronous resolution.
type MemPromises struct {
	mu        sync.Mutex
	callbacks map[PromiseID]Callback
}

// NewMemPromises constructs an empty scheduler.
func NewMemPromises() *MemPromises {
	return &MemPromises{callbacks: make(map[PromiseID]Callback)}
}

// Schedule implements Promises. The actions are not dispatched anywhere;
// MemPromises only tracks the correlation id, leaving dispatch to the
// caller driving Resolve (tests, or a future real host adapter).
func (m *MemPromises) Schedule(actions ...Action) PromiseID {
	id := PromiseID(uuid.NewString())
	return id
}

// Register associates a callback with a previously scheduled PromiseID so
// Resolve can find it.
func (m *MemPromises) Register(id PromiseID, cb Callback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks[id] = cb
}

// Resolve invokes and forgets the callback registered for id.
func (m *MemPromises) Resolve(id PromiseID, ok bool, callErr error) {
	m.mu.Lock()
	cb, found := m.callbacks[id]
	delete(m.callbacks, id)
	m.mu.Unlock()
	if found {
		cb(id, ok, callErr)
	}
}
