package qc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/obs-qc-service/internal/obsspace"
)

// Manager aggregates QC flags for one partition of an observation dataset.
//
// The flag matrix is borrowed from the caller and mutated in place; the
// manager never copies, allocates, or frees it, and the caller must keep it
// alive for the manager's lifetime. Observation errors are read-only.
//
// Lifecycle: construction runs the missing-data detection pass exactly once;
// FinalizeAfterEvaluation (optional) marks forward-model failures exactly
// once; Report may then be called any number of times — each call performs a
// fresh collective reduction but reproduces the same counts as long as the
// flags are not mutated in between.
type Manager struct {
	space  *obsspace.ObsSpace
	flags  *obsspace.FlagMatrix
	logger *slog.Logger
}

// NewManager validates the dimensional contract between the flag store, the
// observation arrays, and the partition, then runs the missing-data detection
// pass: every cell whose flag, observed value, or observation error is the
// missing sentinel is flagged FlagMissing. Cells already carrying another
// non-pass code are left untouched.
//
// Dimension mismatches and nil handles are programmer or upstream-pipeline
// errors, not data conditions; they panic.
func NewManager(space *obsspace.ObsSpace, flags *obsspace.FlagMatrix, values, errs *obsspace.FloatMatrix, logger *slog.Logger) *Manager {
	if space == nil || flags == nil || values == nil || errs == nil {
		panic("qc: NewManager requires non-nil obs space, flags, values, and errors")
	}
	checkDims("flag matrix", flags.Nvars(), flags.Nlocs(), space)
	checkDims("observation values", values.Nvars(), values.Nlocs(), space)
	checkDims("observation errors", errs.Nvars(), errs.Nlocs(), space)

	m := &Manager{space: space, flags: flags, logger: logger}

	for v := 0; v < space.Nvars(); v++ {
		for l := 0; l < space.Nlocs(); l++ {
			if flags.At(v, l) == obsspace.MissingInt ||
				values.At(v, l) == obsspace.MissingFloat ||
				errs.At(v, l) == obsspace.MissingFloat {
				flags.Set(v, l, FlagMissing)
			}
		}
	}

	logger.Debug("qc manager constructed",
		"obstype", space.Obstype(), "nvars", space.Nvars(), "nlocs", space.Nlocs())
	return m
}

// checkDims panics unless an nvars x nlocs pair matches the partition.
func checkDims(what string, nvars, nlocs int, space *obsspace.ObsSpace) {
	if nvars != space.Nvars() || nlocs != space.Nlocs() {
		panic(fmt.Sprintf("qc: %s is %dx%d, partition is %dx%d",
			what, nvars, nlocs, space.Nvars(), space.Nlocs()))
	}
}

// FinalizeAfterEvaluation marks forward-model failures. For every cell still
// flagged pass whose model output is the missing sentinel, the flag becomes
// FlagHfailed. Cells with any other flag are never modified, so
// already-rejected observations are not double-marked.
//
// hofx is the flattened forward-model output for this partition, ordered with
// location slow and variable fast (see obsspace.HofxIndex). A length other
// than nvars*nlocs is a contract violation and panics.
func (m *Manager) FinalizeAfterEvaluation(hofx []float64) {
	nvars, nlocs := m.space.Nvars(), m.space.Nlocs()
	if len(hofx) != nvars*nlocs {
		panic(fmt.Sprintf("qc: forward-model output has %d entries, partition needs %d",
			len(hofx), nvars*nlocs))
	}

	marked := 0
	for v := 0; v < nvars; v++ {
		for l := 0; l < nlocs; l++ {
			if m.flags.At(v, l) == FlagPass && hofx[obsspace.HofxIndex(nvars, v, l)] == obsspace.MissingFloat {
				m.flags.Set(v, l, FlagHfailed)
				marked++
			}
		}
	}
	m.logger.Debug("forward-model failures marked", "obstype", m.space.Obstype(), "marked", marked)
}

// Report tallies the partition's flags per category, sums the tallies across
// all partitions of the dataset, and returns the global summary.
//
// The reduction is a synchronization barrier: every rank of the communicator
// must call Report the same number of times, for the same variable set, in
// the same order. The returned Summary is identical on every rank; callers
// that print it should do so on rank 0 only.
//
// A conservation violation — the category counts not summing to the global
// observation total — means a flag code escaped bucketing and is a fatal
// contract failure: Report panics rather than returning an inconsistent
// summary. With the catch-all "other" bucket in place this can only happen
// if the reduction itself misbehaves.
func (m *Manager) Report(ctx context.Context) (Summary, error) {
	summary := Summary{
		Obstype:     m.space.Obstype(),
		GeneratedAt: clock.Now().UTC(),
	}

	for v, name := range m.space.Variables() {
		// tallies[0] is the local location count; the rest are per-category
		// counts in report order. Reduced in a single collective call so each
		// variable costs one barrier on every rank.
		tallies := make([]int64, 1+int(numCategories))
		tallies[0] = int64(m.space.Nlocs())
		for _, code := range m.flags.Row(v) {
			tallies[1+int(Categorize(code))]++
		}

		if err := m.space.Comm().AllSumInt64(ctx, tallies); err != nil {
			return Summary{}, fmt.Errorf("reduce qc tallies for %s: %w", name, err)
		}

		vs := VariableSummary{
			Name:   name,
			Total:  tallies[0],
			Counts: make(map[string]int64, numCategories),
		}
		var sum int64
		for _, c := range Categories() {
			n := tallies[1+int(c)]
			vs.Counts[c.String()] = n
			sum += n
		}
		if sum != vs.Total {
			panic(fmt.Sprintf("qc: conservation violated for %s %s: categories sum to %d, total is %d",
				summary.Obstype, name, sum, vs.Total))
		}
		summary.Variables = append(summary.Variables, vs)
	}

	return summary, nil
}
