package tiles

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Grid is a table of colour classes, such as a probe grid reading.
type Grid interface {
	Size() (int, int)
	At(ix, iy int) int
}

// Decoder groups a class grid into blocks and publishes the decoded ids.
// It is the only writer of its matrix; readers get the latest published
// value from Matrix.
type Decoder struct {
	dict       *Dictionary
	numX, numY int
	order      [][2]int
	current    atomic.Pointer[Matrix]
}

// NewDecoder returns a decoder for a numX x numY grid. The initial matrix
// is all Unknown.
func NewDecoder(dict *Dictionary, numX, numY int) (*Decoder, error) {
	k := dict.BlockSize()
	if numX <= 0 || numY <= 0 || numX%k != 0 || numY%k != 0 {
		return nil, fmt.Errorf("tiles: block size %d does not divide %dx%d grid", k, numX, numY)
	}
	d := &Decoder{dict: dict, numX: numX, numY: numY, order: Traversal(k)}
	d.current.Store(NewMatrix(numX/k, numY/k))
	return d, nil
}

// Dictionary returns the dictionary codes are matched against.
func (d *Decoder) Dictionary() *Dictionary {
	return d.dict
}

// Matrix returns the most recently published matrix.
func (d *Decoder) Matrix() *Matrix {
	return d.current.Load()
}

// Code reads block (bx, by) of g.
func (d *Decoder) Code(g Grid, bx, by int) Code {
	k := d.dict.BlockSize()
	classes := make([]int, len(d.order))
	for i, off := range d.order {
		classes[i] = g.At(bx*k+off[0], by*k+off[1])
	}
	return CodeOf(classes...)
}

// Decode builds a new matrix from g and publishes it. Nothing is
// published when g has the wrong size.
func (d *Decoder) Decode(g Grid) (*Matrix, error) {
	nx, ny := g.Size()
	if nx != d.numX || ny != d.numY {
		return nil, fmt.Errorf("tiles: grid is %dx%d, decoder expects %dx%d", nx, ny, d.numX, d.numY)
	}
	k := d.dict.BlockSize()
	m := NewMatrix(nx/k, ny/k)
	for by := 0; by < m.Rows; by++ {
		for bx := 0; bx < m.Cols; bx++ {
			m.set(bx, by, d.dict.Match(d.Code(g, bx, by)))
		}
	}
	m.DecodedAt = time.Now()
	d.current.Store(m)
	return m, nil
}
