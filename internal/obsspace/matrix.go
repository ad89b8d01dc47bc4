package obsspace

// FlagMatrix is an nvars x nlocs matrix of integer QC flag codes. It is
// created and owned by whoever owns the observation space; the QC manager
// holds a borrowed reference and mutates cells in place.
type FlagMatrix struct {
	nvars int
	nlocs int
	data  []int
}

// NewFlagMatrix allocates an nvars x nlocs flag matrix with all cells zero
// (the "pass" code).
func NewFlagMatrix(nvars, nlocs int) *FlagMatrix {
	return &FlagMatrix{nvars: nvars, nlocs: nlocs, data: make([]int, nvars*nlocs)}
}

// Nvars returns the variable dimension.
func (m *FlagMatrix) Nvars() int { return m.nvars }

// Nlocs returns the location dimension.
func (m *FlagMatrix) Nlocs() int { return m.nlocs }

// At returns the flag code at (variable, location).
func (m *FlagMatrix) At(v, l int) int { return m.data[v*m.nlocs+l] }

// Set stores a flag code at (variable, location).
func (m *FlagMatrix) Set(v, l, code int) { m.data[v*m.nlocs+l] = code }

// Row returns the flag codes for one variable across all local locations.
// The returned slice aliases the matrix storage.
func (m *FlagMatrix) Row(v int) []int { return m.data[v*m.nlocs : (v+1)*m.nlocs] }

// FloatMatrix is an nvars x nlocs matrix of float64 data, used for
// observation values and observation errors.
type FloatMatrix struct {
	nvars int
	nlocs int
	data  []float64
}

// NewFloatMatrix allocates an nvars x nlocs float matrix with all cells zero.
func NewFloatMatrix(nvars, nlocs int) *FloatMatrix {
	return &FloatMatrix{nvars: nvars, nlocs: nlocs, data: make([]float64, nvars*nlocs)}
}

// Nvars returns the variable dimension.
func (m *FloatMatrix) Nvars() int { return m.nvars }

// Nlocs returns the location dimension.
func (m *FloatMatrix) Nlocs() int { return m.nlocs }

// At returns the value at (variable, location).
func (m *FloatMatrix) At(v, l int) float64 { return m.data[v*m.nlocs+l] }

// Set stores a value at (variable, location).
func (m *FloatMatrix) Set(v, l int, x float64) { m.data[v*m.nlocs+l] = x }

// Row returns one variable's values across all local locations.
// The returned slice aliases the matrix storage.
func (m *FloatMatrix) Row(v int) []float64 { return m.data[v*m.nlocs : (v+1)*m.nlocs] }

// HofxIndex flattens (variable, location) into the forward-model output
// ordering: location is the slow-varying index, variable the fast-varying one.
func HofxIndex(nvars, variable, location int) int {
	return nvars*location + variable
}
