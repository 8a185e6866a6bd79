package tiles

import (
	"errors"
	"fmt"
)

// ErrInvalidCode is wrapped when a dictionary key has the wrong length or
// a symbol outside the colour classes.
var ErrInvalidCode = errors.New("tiles: invalid code")

// indexThreshold is the dictionary size above which matching uses the
// canonical rotation index instead of scanning every key.
const indexThreshold = 64

// DuplicateRotationClassError reports two dictionary keys that are cyclic
// rotations of each other, which would make decoding ambiguous.
type DuplicateRotationClassError struct {
	Code      Code
	Name      string
	Other     Code
	OtherName string
}

func (e *DuplicateRotationClassError) Error() string {
	return fmt.Sprintf("tiles: code %q (%s) is a rotation of %q (%s)", e.Code, e.Name, e.Other, e.OtherName)
}

// Entry binds a code to a tile name.
type Entry struct {
	Name string `json:"name"`
	Code Code   `json:"code"`
}

// DefaultEntries is the standard 2x2 tile set over the default palette
// (0 white, 1 black, 2 red).
func DefaultEntries() []Entry {
	return []Entry{
		{Name: "RL", Code: "2000"},
		{Name: "RM", Code: "2010"},
		{Name: "RS", Code: "2001"},
		{Name: "OL", Code: "2100"},
		{Name: "OM", Code: "2011"},
		{Name: "OS", Code: "2110"},
		{Name: "ROAD", Code: "2101"},
	}
}

// Dictionary maps block codes to tile ids. Tile ids number the distinct
// names in order of first appearance; several codes may share a name.
type Dictionary struct {
	k     int
	names []string
	keys  []Code
	ids   []int
	exact map[Code]int

	// canonical maps each key's smallest rotation to its id, built only
	// for dictionaries above indexThreshold.
	canonical map[Code]int
}

// NewDictionary validates entries for blocks of k x k probes.
func NewDictionary(k int, entries []Entry) (*Dictionary, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: block size %d", ErrInvalidCode, k)
	}
	d := &Dictionary{k: k, exact: make(map[Code]int, len(entries))}
	byName := make(map[string]int)
	canon := make(map[Code]int, len(entries))

	for _, e := range entries {
		if len(e.Code) != k*k {
			return nil, fmt.Errorf("%w: %q for %s has %d symbols, want %d", ErrInvalidCode, e.Code, e.Name, len(e.Code), k*k)
		}
		if !e.Code.Valid() {
			return nil, fmt.Errorf("%w: %q for %s", ErrInvalidCode, e.Code, e.Name)
		}
		c := e.Code.Canonical()
		if j, dup := canon[c]; dup {
			return nil, &DuplicateRotationClassError{
				Code: e.Code, Name: e.Name,
				Other: d.keys[j], OtherName: d.names[d.ids[j]],
			}
		}

		id, ok := byName[e.Name]
		if !ok {
			id = len(d.names)
			byName[e.Name] = id
			d.names = append(d.names, e.Name)
		}
		canon[c] = len(d.keys)
		d.keys = append(d.keys, e.Code)
		d.ids = append(d.ids, id)
		d.exact[e.Code] = id
	}

	if len(d.keys) > indexThreshold {
		d.canonical = make(map[Code]int, len(canon))
		for c, j := range canon {
			d.canonical[c] = d.ids[j]
		}
	}
	return d, nil
}

// BlockSize returns k.
func (d *Dictionary) BlockSize() int {
	return d.k
}

// Len returns the number of keys.
func (d *Dictionary) Len() int {
	return len(d.keys)
}

// Names returns the tile names indexed by id.
func (d *Dictionary) Names() []string {
	return append([]string(nil), d.names...)
}

// Name returns the name of a tile id, or "" for Unknown.
func (d *Dictionary) Name(id int) string {
	if id < 0 || id >= len(d.names) {
		return ""
	}
	return d.names[id]
}

// Match returns the tile id for code, trying an exact match first and
// then every cyclic rotation. It returns Unknown when nothing matches.
func (d *Dictionary) Match(code Code) int {
	if id, ok := d.exact[code]; ok {
		return id
	}
	if len(code) != d.k*d.k || !code.Valid() {
		return Unknown
	}
	if d.canonical != nil {
		return d.matchIndexed(code)
	}
	return d.matchRotations(code)
}

func (d *Dictionary) matchRotations(code Code) int {
	for i, key := range d.keys {
		if code.IsRotationOf(key) {
			return d.ids[i]
		}
	}
	return Unknown
}

func (d *Dictionary) matchIndexed(code Code) int {
	if id, ok := d.canonical[code.Canonical()]; ok {
		return id
	}
	return Unknown
}
