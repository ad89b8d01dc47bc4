package obsspace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// RawBatch is the wire form of one partition's observation batch as published
// by the upstream assimilation pipeline. Flags, Values, and Errors carry one
// row per variable, each of length Nlocs. Hofx, when present, is the
// flattened forward-model output (location slow, variable fast; see
// HofxIndex) and has length len(Variables)*Nlocs.
type RawBatch struct {
	Obstype   string      `json:"obstype"`
	Variables []string    `json:"variables"`
	Nlocs     int         `json:"nlocs"`
	Flags     [][]int     `json:"flags"`
	Values    [][]float64 `json:"values"`
	Errors    [][]float64 `json:"errors"`
	Hofx      []float64   `json:"hofx,omitempty"`
}

// ParseRawBatch deserializes and validates a RawEvent's value. Malformed
// batches are recoverable data errors (the message is skipped downstream),
// unlike the dimensional contract inside the QC core, which is enforced
// fatally once a batch has been admitted.
func ParseRawBatch(raw RawEvent) (RawBatch, error) {
	var b RawBatch
	if err := json.Unmarshal(raw.Value, &b); err != nil {
		return RawBatch{}, fmt.Errorf("parse raw batch: %w", err)
	}
	if err := b.Validate(); err != nil {
		return RawBatch{}, fmt.Errorf("parse raw batch: %w", err)
	}
	return b, nil
}

// Validate checks the batch's internal dimensional consistency.
func (b RawBatch) Validate() error {
	if b.Obstype == "" {
		return fmt.Errorf("batch has no obstype")
	}
	nvars := len(b.Variables)
	if nvars == 0 {
		return fmt.Errorf("batch %q has no variables", b.Obstype)
	}
	if b.Nlocs < 0 {
		return fmt.Errorf("batch %q has negative nlocs %d", b.Obstype, b.Nlocs)
	}
	for name, rows := range map[string][][]float64{"values": b.Values, "errors": b.Errors} {
		if len(rows) != nvars {
			return fmt.Errorf("batch %q: %s has %d rows, want %d", b.Obstype, name, len(rows), nvars)
		}
		for i, row := range rows {
			if len(row) != b.Nlocs {
				return fmt.Errorf("batch %q: %s row %d has %d entries, want %d", b.Obstype, name, i, len(row), b.Nlocs)
			}
		}
	}
	if len(b.Flags) != nvars {
		return fmt.Errorf("batch %q: flags has %d rows, want %d", b.Obstype, len(b.Flags), nvars)
	}
	for i, row := range b.Flags {
		if len(row) != b.Nlocs {
			return fmt.Errorf("batch %q: flags row %d has %d entries, want %d", b.Obstype, i, len(row), b.Nlocs)
		}
	}
	if len(b.Hofx) != 0 && len(b.Hofx) != nvars*b.Nlocs {
		return fmt.Errorf("batch %q: hofx has %d entries, want %d", b.Obstype, len(b.Hofx), nvars*b.Nlocs)
	}
	return nil
}

// Split divides the batch into nparts partitions over contiguous location
// ranges, the way a distributed run would shard one dataset across processes.
// Locations divide as evenly as possible, leading partitions taking the
// remainder; a partition may end up with zero locations. Because hofx is
// location-major, each partition's hofx is a contiguous sub-slice.
func (b RawBatch) Split(nparts int) []RawBatch {
	if nparts < 1 {
		panic(fmt.Sprintf("obsspace: cannot split batch into %d partitions", nparts))
	}
	nvars := len(b.Variables)
	parts := make([]RawBatch, nparts)
	lo := 0
	for p := range parts {
		n := b.Nlocs / nparts
		if p < b.Nlocs%nparts {
			n++
		}
		hi := lo + n

		part := RawBatch{
			Obstype:   b.Obstype,
			Variables: b.Variables,
			Nlocs:     n,
			Flags:     make([][]int, nvars),
			Values:    make([][]float64, nvars),
			Errors:    make([][]float64, nvars),
		}
		for v := 0; v < nvars; v++ {
			part.Flags[v] = b.Flags[v][lo:hi]
			part.Values[v] = b.Values[v][lo:hi]
			part.Errors[v] = b.Errors[v][lo:hi]
		}
		if len(b.Hofx) > 0 {
			part.Hofx = b.Hofx[nvars*lo : nvars*hi]
		}
		parts[p] = part
		lo = hi
	}
	return parts
}

// Materialize builds the in-memory matrices from the wire rows. The flag
// matrix is freshly allocated and becomes the caller-owned store the QC
// manager borrows.
func (b RawBatch) Materialize() (flags *FlagMatrix, values, errs *FloatMatrix) {
	nvars := len(b.Variables)
	flags = NewFlagMatrix(nvars, b.Nlocs)
	values = NewFloatMatrix(nvars, b.Nlocs)
	errs = NewFloatMatrix(nvars, b.Nlocs)
	for v := 0; v < nvars; v++ {
		for l := 0; l < b.Nlocs; l++ {
			flags.Set(v, l, b.Flags[v][l])
			values.Set(v, l, b.Values[v][l])
			errs.Set(v, l, b.Errors[v][l])
		}
	}
	return flags, values, errs
}
