package resource

import "github.com/wippyai/bindgen/types"

// Handle is an index into a Table. Handle 0 is reserved and always invalid.
type Handle uint32

// EventType identifies a handle lifecycle transition.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventBorrowed
	EventBorrowReturned
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventBorrowed:
		return "borrowed"
	case EventBorrowReturned:
		return "borrow-returned"
	default:
		return "unknown"
	}
}

// Event represents a handle lifecycle event.
type Event struct {
	Resource *types.TypeDef
	Handle   Handle
	Rep      uint32
	Type     EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}
