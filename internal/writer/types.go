// internal/writer/types.go
package writer

import "github.com/tamzrod/sps30-replicator/internal/poller"

// TargetEndpoint is one target endpoint (TCP) receiving the measurement block.
type TargetEndpoint struct {
	TargetID uint32
	Endpoint string
	UnitID   uint8
	Address  uint16 // first holding register of the measurement block
}

// StatusPlan places one device status block in status memory.
// The same block is mirrored to every status unit id.
type StatusPlan struct {
	Endpoint   string
	UnitIDs    []uint8
	BaseSlot   uint16
	DeviceName string
}

// Plan is the fully-built write plan for one unit.
type Plan struct {
	UnitID  string
	Targets []TargetEndpoint
	Status  *StatusPlan // nil => status disabled
}

// Writer writes poll snapshots into targets.
type Writer interface {
	Write(res poller.PollResult) error
}
