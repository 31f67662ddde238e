package state

import (
	"errors"

	"ResearchBriefing/internal/domain"
)

// ErrSnapshotFinished is returned when a snapshot is committed or discarded twice.
var ErrSnapshotFinished = errors.New("state: snapshot already finished")

// Snapshot is a pending consumption of the buffer returned by Peek.
// Commit acknowledges a successful hand-off and clears the buffer; Discard leaves it intact.
type Snapshot struct {
	state     *State
	digest    domain.Digest
	dates     []string
	finished  bool
	committed bool
}

// Peek aggregates every retained bucket without touching the buffer.
func (s *State) Peek() *Snapshot {
	return &Snapshot{
		state:  s,
		digest: s.buffer.aggregate(),
		dates:  s.buffer.Dates(),
	}
}

// Digest returns the aggregated items captured at peek time.
func (p *Snapshot) Digest() domain.Digest {
	return p.digest
}

// Dates lists the bucket keys the snapshot covers.
func (p *Snapshot) Dates() []string {
	return append([]string(nil), p.dates...)
}

// Commit clears the buffer. Call it only after the digest was delivered.
func (p *Snapshot) Commit() error {
	if p.finished {
		return ErrSnapshotFinished
	}
	p.finished = true
	p.committed = true
	p.state.buffer.clear()
	return nil
}

// Discard releases the snapshot and keeps the buffer for the next run.
func (p *Snapshot) Discard() error {
	if p.finished {
		return ErrSnapshotFinished
	}
	p.finished = true
	return nil
}

// Committed reports whether Commit succeeded.
func (p *Snapshot) Committed() bool {
	return p.committed
}
