// Package text renders abi instruction streams as indented pseudo-assembly.
//
// Every operand is a numbered value ("v3"). Each instruction prints on its
// own line with the values it defines on the left:
//
//	v0 = get_arg nth=0
//	v1, v2 = string_lower realloc=cabi_realloc (v0)
//
// Nested blocks print between braces and end with the values they yield.
// The output is meant for humans and golden tests; nothing parses it back.
package text
