// Command genbatch generates synthetic observation batch fixtures for the QC
// test suites and the qcreport tool. It writes a RawBatch JSON document with
// configurable rates of missing values, missing errors, pre-set QC flags, and
// missing forward-model output.
//
// Usage:
//
//	go run ./cmd/genbatch -obstype Radiosonde -vars airTemperature,windEastward \
//	  -nlocs 200 -missing-rate 0.05 -hfailed-rate 0.02 -out data/mock/radiosonde_batch.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"

	"github.com/couchcryptid/obs-qc-service/internal/obsspace"
	"github.com/couchcryptid/obs-qc-service/internal/qc"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	obstype := flag.String("obstype", "Radiosonde", "observation type name")
	vars := flag.String("vars", "airTemperature", "comma-separated variable names")
	nlocs := flag.Int("nlocs", 100, "number of locations")
	missingRate := flag.Float64("missing-rate", 0.05, "fraction of cells with a missing value or error")
	preqcRate := flag.Float64("preqc-rate", 0.02, "fraction of cells pre-flagged by upstream QC")
	hfailedRate := flag.Float64("hfailed-rate", 0.02, "fraction of cells with missing forward-model output")
	seed := flag.Int64("seed", 1, "random seed (fixed by default for reproducible fixtures)")
	out := flag.String("out", "", "output path for the RawBatch JSON fixture")
	flag.Parse()

	if *out == "" || *nlocs < 1 {
		flag.Usage()
		os.Exit(1)
	}

	variables := splitVars(*vars)
	if len(variables) == 0 {
		return fmt.Errorf("need at least one variable name")
	}

	batch := generate(*obstype, variables, *nlocs, *missingRate, *preqcRate, *hfailedRate, rand.New(rand.NewSource(*seed)))

	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
		return err
	}

	fmt.Printf("wrote %s: %s, %d variables, %d locations\n", *out, batch.Obstype, len(batch.Variables), batch.Nlocs)
	return nil
}

func splitVars(s string) []string {
	parts := strings.Split(s, ",")
	vars := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			vars = append(vars, p)
		}
	}
	return vars
}

// generate builds a batch of plausible-looking observations. Values sit in a
// nominal 250-300 range (tropospheric temperatures in kelvin), errors around
// 1, with the requested fractions of missing data, pre-set flags, and failed
// model output sprinkled in.
func generate(obstype string, variables []string, nlocs int, missingRate, preqcRate, hfailedRate float64, rng *rand.Rand) obsspace.RawBatch {
	nvars := len(variables)
	batch := obsspace.RawBatch{
		Obstype:   obstype,
		Variables: variables,
		Nlocs:     nlocs,
		Flags:     make([][]int, nvars),
		Values:    make([][]float64, nvars),
		Errors:    make([][]float64, nvars),
		Hofx:      make([]float64, nvars*nlocs),
	}

	for v := 0; v < nvars; v++ {
		batch.Flags[v] = make([]int, nlocs)
		batch.Values[v] = make([]float64, nlocs)
		batch.Errors[v] = make([]float64, nlocs)

		for l := 0; l < nlocs; l++ {
			batch.Values[v][l] = 250 + 50*rng.Float64()
			batch.Errors[v][l] = 0.5 + rng.Float64()
			batch.Hofx[obsspace.HofxIndex(nvars, v, l)] = 250 + 50*rng.Float64()

			switch {
			case rng.Float64() < missingRate:
				// Split missing data between value and error columns.
				if rng.Float64() < 0.5 {
					batch.Values[v][l] = obsspace.MissingFloat
				} else {
					batch.Errors[v][l] = obsspace.MissingFloat
				}
			case rng.Float64() < preqcRate:
				batch.Flags[v][l] = qc.FlagPreQC
			case rng.Float64() < hfailedRate:
				batch.Hofx[obsspace.HofxIndex(nvars, v, l)] = obsspace.MissingFloat
			}
		}
	}
	return batch
}
