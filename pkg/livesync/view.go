package livesync

import (
	"sort"
	"sync"

	"kaiwa/models"
)

// State is the rendered-view lifecycle.
type State string

const (
	StateLoading State = "loading"
	StateError   State = "error"
	StateReady   State = "ready"
)

// View is the client-held ordered message sequence: one seed read merged with
// live insert events. It never holds two entries with the same id and always
// stays sorted by (created_at, id). Safe for concurrent use.
type View struct {
	mu     sync.Mutex
	msgs   []models.Message
	seen   map[uint]struct{}
	state  State
	err    error
	closed bool
}

func NewView() *View {
	return &View{seen: map[uint]struct{}{}, state: StateLoading}
}

// Seed installs the initial bulk read. Feed events applied before or during
// seeding are kept: seeding merges rather than replaces.
func (v *View) Seed(msgs []models.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	for _, m := range msgs {
		v.insertLocked(m)
	}
	v.state = StateReady
	v.err = nil
}

// Apply merges one feed event into the sequence at its ordered position.
// Duplicates (already-seen ids) are discarded.
func (v *View) Apply(m models.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.insertLocked(m)
}

func (v *View) insertLocked(m models.Message) {
	if _, dup := v.seen[m.ID]; dup {
		return
	}
	v.seen[m.ID] = struct{}{}
	i := sort.Search(len(v.msgs), func(i int) bool { return m.Before(v.msgs[i]) })
	v.msgs = append(v.msgs, models.Message{})
	copy(v.msgs[i+1:], v.msgs[i:])
	v.msgs[i] = m
}

// Fail moves the view to the error state.
func (v *View) Fail(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.state = StateError
	v.err = err
}

// Messages returns a copy of the current ordered sequence.
func (v *View) Messages() []models.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.Message, len(v.msgs))
	copy(out, v.msgs)
	return out
}

// State returns the view state and, in StateError, the cause.
func (v *View) State() (State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state, v.err
}

// Close freezes the view; no mutation lands after teardown.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}
