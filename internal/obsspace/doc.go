// Package obsspace models a process-local partition of a distributed
// observation dataset.
//
// # Partitioning
//
// A logical dataset (one observation type, e.g. "Radiosonde") is split across
// cooperating processes. Each process owns a disjoint slice of locations; no
// location is duplicated. An ObsSpace describes the local partition: the
// observed variable list, the local location count, and the communicator that
// links the partition to its peers.
//
// # Matrix layout
//
// Per-observation data is held in nvars x nlocs matrices indexed
// (variable, location). The QC flag store is an integer matrix owned by the
// caller; the QC manager mutates it through a borrowed reference and never
// copies or frees it. Observation values and errors are float matrices the
// manager only reads.
//
// # Missing-value sentinels
//
// "No data" is encoded in-band with reserved sentinel values, one per numeric
// type (MissingInt, MissingFloat). Sentinels are expected data states, not
// errors: detection turns them into QC flags, never into aborts.
//
// # Model-output ordering
//
// Forward-model output arrives as a flat vector of length nvars*nlocs with
// location as the slow index and variable as the fast index:
//
//	index = nvars*location + variable
//
// This ordering is a binding contract with the model-evaluation step. See
// [HofxIndex].
package obsspace
