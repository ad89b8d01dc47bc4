package obserror

import (
	"context"
	"fmt"

	"github.com/couchcryptid/obs-qc-service/internal/obsspace"
)

func init() {
	Register("diagonal", newDiagonal)
}

// diagonal is the simplest error model: per-observation standard deviations
// taken straight from the obs space, optionally inflated by a constant
// factor. It exists mostly so the registry has a resident.
type diagonal struct {
	space     *obsspace.ObsSpace
	errs      *obsspace.FloatMatrix
	inflation float64
	stddev    *obsspace.FloatMatrix
}

func newDiagonal(cfg Config, space *obsspace.ObsSpace, errs *obsspace.FloatMatrix) (Model, error) {
	if space == nil || errs == nil {
		return nil, fmt.Errorf("diagonal model requires an obs space and observation errors")
	}
	inflation := 1.0
	if v, ok := cfg.Parameters["inflation"]; ok {
		if v <= 0 {
			return nil, fmt.Errorf("diagonal model: inflation %g must be positive", v)
		}
		inflation = v
	}
	return &diagonal{space: space, errs: errs, inflation: inflation}, nil
}

// Prior snapshots the inflated standard deviations. Missing entries stay
// missing; a sentinel times anything is still "no data".
func (d *diagonal) Prior(_ context.Context) error {
	d.stddev = obsspace.NewFloatMatrix(d.space.Nvars(), d.space.Nlocs())
	for v := 0; v < d.space.Nvars(); v++ {
		for l := 0; l < d.space.Nlocs(); l++ {
			x := d.errs.At(v, l)
			if x != obsspace.MissingFloat {
				x *= d.inflation
			}
			d.stddev.Set(v, l, x)
		}
	}
	return nil
}

// Post is a no-op hook reserved for future use.
func (d *diagonal) Post(_ context.Context) error { return nil }

func (d *diagonal) Close() error {
	d.stddev = nil
	return nil
}
