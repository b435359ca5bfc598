// Package resource provides the handle table used when own and borrow
// handles cross a component boundary.
//
// Lowering an own<T> value stores its representation and passes the handle
// index; lifting it takes the entry back out, so ownership moves exactly
// once:
//
//	table := resource.NewTable()
//	h, _ := table.NewOwn(file, rep)
//	rep, err := table.Take(h, file) // h is no longer valid
//
// Borrowed handles stay valid for the duration of a call. ReleaseBorrows
// ends them all and returns lent owners to their unborrowed state.
//
// Observers receive an Event for every transition.
package resource
