package obsspace

import (
	"github.com/couchcryptid/obs-qc-service/internal/comm"
)

// ObsSpace holds the metadata of one process's partition of a distributed
// observation dataset: what is observed, how many locations are local, and
// the communicator linking the partition to its peers.
type ObsSpace struct {
	obstype   string
	variables []string
	nlocs     int
	comm      comm.Communicator
}

// New creates an ObsSpace for a local partition. The communicator must be
// shared by every process holding a partition of the same dataset.
func New(obstype string, variables []string, nlocs int, c comm.Communicator) *ObsSpace {
	vars := make([]string, len(variables))
	copy(vars, variables)
	return &ObsSpace{obstype: obstype, variables: vars, nlocs: nlocs, comm: c}
}

// Obstype returns the observation type name, e.g. "Radiosonde".
func (s *ObsSpace) Obstype() string { return s.obstype }

// Variables returns the ordered observed variable names.
func (s *ObsSpace) Variables() []string { return s.variables }

// Nvars returns the number of observed variables.
func (s *ObsSpace) Nvars() int { return len(s.variables) }

// Nlocs returns the number of locations resident on this partition.
func (s *ObsSpace) Nlocs() int { return s.nlocs }

// Comm returns the partition's communicator.
func (s *ObsSpace) Comm() comm.Communicator { return s.comm }
