package obsspace_test

import (
	"testing"

	"github.com/couchcryptid/obs-qc-service/internal/comm"
	"github.com/couchcryptid/obs-qc-service/internal/obsspace"
	"github.com/stretchr/testify/assert"
)

func TestFlagMatrix(t *testing.T) {
	m := obsspace.NewFlagMatrix(2, 3)
	assert.Equal(t, 2, m.Nvars())
	assert.Equal(t, 3, m.Nlocs())
	assert.Equal(t, 0, m.At(1, 2), "cells start at pass")

	m.Set(1, 2, 15)
	assert.Equal(t, 15, m.At(1, 2))
	assert.Equal(t, 0, m.At(0, 2), "other cells untouched")

	// Row aliases the matrix storage; writes through it are visible.
	row := m.Row(0)
	assert.Equal(t, []int{0, 0, 0}, row)
	row[1] = 10
	assert.Equal(t, 10, m.At(0, 1))
}

func TestFloatMatrix(t *testing.T) {
	m := obsspace.NewFloatMatrix(2, 2)
	m.Set(0, 1, 271.5)
	m.Set(1, 0, obsspace.MissingFloat)

	assert.Equal(t, 271.5, m.At(0, 1))
	assert.Equal(t, obsspace.MissingFloat, m.At(1, 0))
	assert.Equal(t, []float64{obsspace.MissingFloat, 0}, m.Row(1))
}

func TestHofxIndex(t *testing.T) {
	// Location is the slow index, variable the fast one.
	nvars := 3
	assert.Equal(t, 0, obsspace.HofxIndex(nvars, 0, 0))
	assert.Equal(t, 1, obsspace.HofxIndex(nvars, 1, 0))
	assert.Equal(t, 3, obsspace.HofxIndex(nvars, 0, 1))
	assert.Equal(t, 7, obsspace.HofxIndex(nvars, 1, 2))
}

func TestObsSpace(t *testing.T) {
	c := comm.NewSelf()
	vars := []string{"airTemperature", "windEastward"}
	s := obsspace.New("Radiosonde", vars, 10, c)

	assert.Equal(t, "Radiosonde", s.Obstype())
	assert.Equal(t, vars, s.Variables())
	assert.Equal(t, 2, s.Nvars())
	assert.Equal(t, 10, s.Nlocs())
	assert.Equal(t, c, s.Comm())

	// The variable list is copied; mutating the input must not leak in.
	vars[0] = "mangled"
	assert.Equal(t, "airTemperature", s.Variables()[0])
}
