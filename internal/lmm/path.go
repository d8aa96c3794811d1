package lmm

// Path stores the forward rates of one simulated scenario, indexed
// [simulationTimeIndex][component]. A component's value is frozen once its
// fixing time has passed.
type Path struct {
	values [][]float64
}

// NewPath allocates a zeroed path.
func NewPath(numberOfTimes, numberOfComponents int) *Path {
	backing := make([]float64, numberOfTimes*numberOfComponents)
	values := make([][]float64, numberOfTimes)
	for j := range values {
		values[j] = backing[j*numberOfComponents : (j+1)*numberOfComponents : (j+1)*numberOfComponents]
	}
	return &Path{values: values}
}

// Reset sets the first row to initial and leaves the rest to be overwritten.
func (p *Path) Reset(initial []float64) {
	copy(p.values[0], initial)
}

// At returns the rates at a simulation time index. The slice aliases the path.
func (p *Path) At(timeIndex int) []float64 { return p.values[timeIndex] }

// Rate returns L_i(t_timeIndex).
func (p *Path) Rate(timeIndex, component int) float64 { return p.values[timeIndex][component] }

// NumberOfTimes returns the number of rows.
func (p *Path) NumberOfTimes() int { return len(p.values) }

// NumberOfComponents returns the number of LIBOR columns.
func (p *Path) NumberOfComponents() int {
	if len(p.values) == 0 {
		return 0
	}
	return len(p.values[0])
}
