// Command qcreport runs the QC aggregation lifecycle over an observation
// batch fixture and prints the summary report, optionally simulating a
// distributed run by splitting the batch across in-process partitions. It
// uses the actual qc package so the output matches real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/qcreport -batch data/mock/radiosonde_batch.json -partitions 4
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/obs-qc-service/internal/comm"
	"github.com/couchcryptid/obs-qc-service/internal/obsspace"
	"github.com/couchcryptid/obs-qc-service/internal/qc"
)

func main() {
	batchPath := flag.String("batch", "", "path to a RawBatch JSON fixture")
	partitions := flag.Int("partitions", 1, "number of simulated partitions")
	asJSON := flag.Bool("json", false, "emit the structured summary as JSON instead of text")
	flag.Parse()

	if *batchPath == "" || *partitions < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*batchPath, *partitions, *asJSON, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "qcreport: %v\n", err)
		os.Exit(1)
	}
}

func run(batchPath string, partitions int, asJSON bool, out io.Writer) error {
	data, err := os.ReadFile(batchPath)
	if err != nil {
		return err
	}

	var batch obsspace.RawBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("parse batch fixture: %w", err)
	}
	if err := batch.Validate(); err != nil {
		return err
	}

	summary, err := report(context.Background(), batch, partitions)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	_, err = io.WriteString(out, summary.Render())
	return err
}

// report shards the batch across partitions on a shared communicator group,
// runs the full manager lifecycle on each rank, and returns rank 0's summary.
// With one partition this degenerates to a plain single-process run.
func report(ctx context.Context, batch obsspace.RawBatch, partitions int) (qc.Summary, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	group := comm.NewGroup(partitions)
	parts := batch.Split(partitions)

	type result struct {
		summary qc.Summary
		err     error
	}
	results := make([]result, partitions)

	done := make(chan int, partitions)
	for rank := 0; rank < partitions; rank++ {
		go func(rank int) {
			defer func() { done <- rank }()
			part := parts[rank]
			space := obsspace.New(part.Obstype, part.Variables, part.Nlocs, group.Rank(rank))
			flags, values, errs := part.Materialize()
			manager := qc.NewManager(space, flags, values, errs, logger)
			if len(part.Hofx) > 0 {
				manager.FinalizeAfterEvaluation(part.Hofx)
			}
			results[rank].summary, results[rank].err = manager.Report(ctx)
		}(rank)
	}
	for i := 0; i < partitions; i++ {
		<-done
	}

	for rank := range results {
		if results[rank].err != nil {
			return qc.Summary{}, fmt.Errorf("partition %d: %w", rank, results[rank].err)
		}
	}
	return results[0].summary, nil
}
