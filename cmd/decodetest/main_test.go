package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grid-decoder/internal/keystone"
	"grid-decoder/pkg/geometry"
)

func TestParseQuad(t *testing.T) {
	q, err := parseQuad("0,0, 0,2, 2,2, 4,0")
	require.NoError(t, err)
	assert.Equal(t, geometry.NewQuad(
		geometry.NewPoint2D(0, 0),
		geometry.NewPoint2D(0, 2),
		geometry.NewPoint2D(2, 2),
		geometry.NewPoint2D(4, 0),
	), q)

	_, err = parseQuad("0,0,1")
	assert.Error(t, err)
	_, err = parseQuad("0,0,0,2,2,2,4,x")
	assert.Error(t, err)
}

func TestFormatMapping(t *testing.T) {
	m, err := keystone.ComputeMapping(geometry.NewQuad(
		geometry.NewPoint2D(0, 0),
		geometry.NewPoint2D(0, 2),
		geometry.NewPoint2D(2, 2),
		geometry.NewPoint2D(4, 0),
	))
	require.NoError(t, err)

	out := formatMapping(m)
	assert.Contains(t, out, "q0=3.0000 q1=1.5000 q2=1.5000 q3=3.0000")
	assert.Contains(t, out, "c2=(3.0000, 3.0000, 1.5000)")
	assert.Contains(t, out, "c3=(12.0000, 0.0000, 3.0000)")
}
