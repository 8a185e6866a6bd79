// Package tiles turns blocks of probe classifications into tile ids.
//
// A block of k x k probes is read as a ring walk (see Traversal) into a
// Code, one symbol per probe. Codes are matched against a Dictionary up to
// cyclic rotation, because a physical tile can sit on the table in any
// orientation.
package tiles

import (
	"strings"
)

// Unknown is the id of a block that matched no dictionary entry.
const Unknown = -1

// MaxClasses is the number of colour classes a Code can represent.
const MaxClasses = 36

// OutOfBoundsSymbol stands for any probe without a valid class.
const OutOfBoundsSymbol = '?'

const symbols = "0123456789abcdefghijklmnopqrstuvwxyz"

// Code is a block reading, one symbol per probe.
type Code string

// Symbol returns the code symbol for a colour class.
func Symbol(class int) byte {
	if class < 0 || class >= MaxClasses {
		return OutOfBoundsSymbol
	}
	return symbols[class]
}

// CodeOf builds a code from colour classes.
func CodeOf(classes ...int) Code {
	var b strings.Builder
	b.Grow(len(classes))
	for _, c := range classes {
		b.WriteByte(Symbol(c))
	}
	return Code(b.String())
}

// Valid reports whether every symbol in c is a colour class.
func (c Code) Valid() bool {
	for i := 0; i < len(c); i++ {
		if strings.IndexByte(symbols, c[i]) < 0 {
			return false
		}
	}
	return true
}

// Rotations returns every cyclic rotation of c, starting with c itself.
func (c Code) Rotations() []Code {
	n := len(c)
	if n == 0 {
		return []Code{c}
	}
	out := make([]Code, n)
	doubled := string(c) + string(c)
	for i := 0; i < n; i++ {
		out[i] = Code(doubled[i : i+n])
	}
	return out
}

// IsRotationOf reports whether c equals other under some cyclic rotation.
func (c Code) IsRotationOf(other Code) bool {
	return len(c) == len(other) && strings.Contains(string(c)+string(c), string(other))
}

// Canonical returns the lexicographically smallest rotation of c.
func (c Code) Canonical() Code {
	best := c
	for _, r := range c.Rotations()[1:] {
		if r < best {
			best = r
		}
	}
	return best
}

// Traversal returns the probe offsets of a k x k block in reading order:
// concentric rings from the outside in, each walked counterclockwise from
// its bottom-left probe with x to the right and y up.
func Traversal(k int) [][2]int {
	out := make([][2]int, 0, k*k)
	for lo, hi := 0, k-1; lo <= hi; lo, hi = lo+1, hi-1 {
		if lo == hi {
			out = append(out, [2]int{lo, lo})
			break
		}
		for x := lo; x < hi; x++ {
			out = append(out, [2]int{x, lo})
		}
		for y := lo; y < hi; y++ {
			out = append(out, [2]int{hi, y})
		}
		for x := hi; x > lo; x-- {
			out = append(out, [2]int{x, hi})
		}
		for y := hi; y > lo; y-- {
			out = append(out, [2]int{lo, y})
		}
	}
	return out
}
