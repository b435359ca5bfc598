package resource

import (
	"sync"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/types"
)

type entry struct {
	resource *types.TypeDef
	rep      uint32
	lends    uint32
	lender   Handle
	own      bool
	valid    bool
}

// Table maps handle indices to resource representations. Owned handles
// move out of the table when lifted; borrowed handles stay until the call
// that created them ends.
type Table struct {
	entries   []entry
	freeList  []Handle
	observers []Observer
	mu        sync.Mutex
	closed    bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries:  make([]entry, 0, 16),
		freeList: make([]Handle, 0, 4),
	}
}

// NewOwn stores an owned handle to rep.
func (t *Table) NewOwn(res *types.TypeDef, rep uint32) (Handle, error) {
	return t.insert(entry{resource: res, rep: rep, own: true, valid: true}, EventCreated)
}

// NewBorrow stores a borrowed handle to rep that stays valid until
// ReleaseBorrows.
func (t *Table) NewBorrow(res *types.TypeDef, rep uint32) (Handle, error) {
	return t.insert(entry{resource: res, rep: rep, valid: true}, EventBorrowed)
}

// Lend creates a borrowed handle to an owned one. The owner cannot be
// taken or dropped until the borrow is released. A non-nil res must match
// the owner's resource type.
func (t *Table) Lend(owner Handle, res *types.TypeDef) (Handle, error) {
	t.mu.Lock()
	e, err := t.lookup(owner, res)
	if err != nil {
		t.mu.Unlock()
		return 0, err
	}
	if !e.own {
		t.mu.Unlock()
		return 0, errors.InvalidInput(errors.PhaseEval, "cannot lend a borrowed handle")
	}
	e.lends++
	borrow := entry{resource: e.resource, rep: e.rep, lender: owner, valid: true}
	t.mu.Unlock()
	return t.insert(borrow, EventBorrowed)
}

func (t *Table) insert(e entry, ev EventType) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, errors.InvalidInput(errors.PhaseEval, "handle table closed")
	}

	var h Handle
	if n := len(t.freeList); n > 0 {
		h = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[h-1] = e
	} else {
		t.entries = append(t.entries, e)
		h = Handle(len(t.entries))
	}
	t.mu.Unlock()

	t.notify(Event{Type: ev, Handle: h, Resource: e.resource, Rep: e.rep})
	return h, nil
}

// lookup returns the live entry for h. A non-nil res must match the
// handle's resource type. Callers hold t.mu.
func (t *Table) lookup(h Handle, res *types.TypeDef) (*entry, error) {
	if h == 0 || int(h) > len(t.entries) || !t.entries[h-1].valid {
		return nil, errors.New(errors.PhaseEval, errors.KindNotFound).
			Value(uint32(h)).
			Detail("invalid handle %d", h).
			Build()
	}
	e := &t.entries[h-1]
	if res != nil && e.resource != nil && e.resource != res {
		return nil, errors.TypeMismatch(errors.PhaseEval, nil, res.String(), e.resource)
	}
	return e, nil
}

// Rep returns the representation behind a handle without consuming it.
func (t *Table) Rep(h Handle, res *types.TypeDef) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, err := t.lookup(h, res)
	if err != nil {
		return 0, err
	}
	return e.rep, nil
}

// Take removes an owned handle and returns its representation, moving
// ownership to the caller.
func (t *Table) Take(h Handle, res *types.TypeDef) (uint32, error) {
	t.mu.Lock()
	e, err := t.lookup(h, res)
	if err != nil {
		t.mu.Unlock()
		return 0, err
	}
	if !e.own {
		t.mu.Unlock()
		return 0, errors.InvalidInput(errors.PhaseEval, "borrowed handle passed as owned")
	}
	if e.lends > 0 {
		t.mu.Unlock()
		return 0, errors.New(errors.PhaseEval, errors.KindInvalidInput).
			Value(uint32(h)).
			Detail("handle %d has %d outstanding borrows", h, e.lends).
			Build()
	}
	ev := t.release(h)
	t.mu.Unlock()

	t.notify(ev)
	return ev.Rep, nil
}

// Drop removes a handle of either kind.
func (t *Table) Drop(h Handle) error {
	t.mu.Lock()
	e, err := t.lookup(h, nil)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if e.lends > 0 {
		t.mu.Unlock()
		return errors.New(errors.PhaseEval, errors.KindInvalidInput).
			Value(uint32(h)).
			Detail("handle %d has %d outstanding borrows", h, e.lends).
			Build()
	}
	ev := t.release(h)
	t.mu.Unlock()

	t.notify(ev)
	return nil
}

// ReleaseBorrow ends one borrow, returning its lender's borrow count.
func (t *Table) ReleaseBorrow(h Handle) error {
	t.mu.Lock()
	e, err := t.lookup(h, nil)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if e.own {
		t.mu.Unlock()
		return errors.InvalidInput(errors.PhaseEval, "owned handle released as a borrow")
	}
	ev := t.release(h)
	ev.Type = EventBorrowReturned
	t.mu.Unlock()

	t.notify(ev)
	return nil
}

// ReleaseBorrows drops every borrowed handle, returning their lenders'
// borrow counts, and reports how many were released.
func (t *Table) ReleaseBorrows() int {
	t.mu.Lock()
	var events []Event
	for i := range t.entries {
		e := &t.entries[i]
		if !e.valid || e.own {
			continue
		}
		ev := t.release(Handle(i + 1))
		ev.Type = EventBorrowReturned
		events = append(events, ev)
	}
	t.mu.Unlock()

	for _, ev := range events {
		t.notify(ev)
	}
	return len(events)
}

// release invalidates h. Callers hold t.mu.
func (t *Table) release(h Handle) Event {
	e := &t.entries[h-1]
	if e.lender != 0 {
		if l := &t.entries[e.lender-1]; l.valid && l.lends > 0 {
			l.lends--
		}
	}
	ev := Event{Type: EventDropped, Handle: h, Resource: e.resource, Rep: e.rep}
	*e = entry{}
	t.freeList = append(t.freeList, h)
	return ev
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.entries {
		if e.valid {
			n++
		}
	}
	return n
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Close invalidates every handle and rejects further inserts.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.entries = nil
	t.freeList = nil
	return nil
}

func (t *Table) notify(e Event) {
	t.mu.Lock()
	observers := append([]Observer(nil), t.observers...)
	t.mu.Unlock()
	for _, o := range observers {
		o.OnResourceEvent(e)
	}
}
