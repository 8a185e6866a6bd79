package tiles

import (
	"fmt"
	"strings"
	"time"
)

// Matrix is one decoded frame of tile ids, Cols x Rows blocks with block
// (0, 0) at the bottom left. A published Matrix is never modified.
type Matrix struct {
	Cols      int       `json:"cols"`
	Rows      int       `json:"rows"`
	IDs       []int     `json:"ids"`
	DecodedAt time.Time `json:"decoded_at"`
}

// NewMatrix returns a matrix with every block Unknown.
func NewMatrix(cols, rows int) *Matrix {
	ids := make([]int, cols*rows)
	for i := range ids {
		ids[i] = Unknown
	}
	return &Matrix{Cols: cols, Rows: rows, IDs: ids}
}

// At returns the id of block (bx, by).
func (m *Matrix) At(bx, by int) int {
	return m.IDs[by*m.Cols+bx]
}

func (m *Matrix) set(bx, by, id int) {
	m.IDs[by*m.Cols+bx] = id
}

// Grid returns the ids as rows, indexed [by][bx].
func (m *Matrix) Grid() [][]int {
	out := make([][]int, m.Rows)
	for by := range out {
		out[by] = append([]int(nil), m.IDs[by*m.Cols:(by+1)*m.Cols]...)
	}
	return out
}

// Known counts the blocks that decoded to a tile.
func (m *Matrix) Known() int {
	n := 0
	for _, id := range m.IDs {
		if id != Unknown {
			n++
		}
	}
	return n
}

// String prints the matrix top row first, Unknown as ".".
func (m *Matrix) String() string {
	var b strings.Builder
	for by := m.Rows - 1; by >= 0; by-- {
		for bx := 0; bx < m.Cols; bx++ {
			if bx > 0 {
				b.WriteByte(' ')
			}
			if id := m.At(bx, by); id == Unknown {
				b.WriteString(" .")
			} else {
				fmt.Fprintf(&b, "%2d", id)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
