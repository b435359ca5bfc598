// Package sigparse reads function signatures written in a WIT-like
// notation into the types graph. It backs the abidump command and tests
// that would otherwise build type graphs by hand.
//
// Only the subset needed to describe single functions is supported: no
// packages, interfaces, worlds or use statements.
package sigparse
