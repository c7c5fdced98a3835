package snapshot

import (
	"errors"
	"io"
	"reflect"

	"github.com/tembolo1284/cross-margin-engine/pkg/engine"
	"github.com/tembolo1284/cross-margin-engine/pkg/eventlog"
	"github.com/tembolo1284/cross-margin-engine/pkg/state"
)

// Replay implements replay(log) -> (final_state, [snapshot_i]): it
// starts from empty state, feeds every event in r through
// engine.ApplyEvent in order (no liquidation scanning — replay trusts
// that every LiquidationFill the live run emitted is already present in
// the log as data), and captures a Snapshot after each event.
func Replay(r *eventlog.Reader) (finalState *state.State, snapshots []*Snapshot, err error) {
	s := state.New()
	for {
		ev, nextErr := r.Next()
		if errors.Is(nextErr, io.EOF) {
			return s, snapshots, nil
		}
		if nextErr != nil {
			return nil, nil, nextErr
		}
		next, applyErr := engine.ApplyEvent(s, ev)
		if applyErr != nil {
			return nil, nil, applyErr
		}
		s = next
		snapshots = append(snapshots, FromState(s))
	}
}

// Equal reports whether two snapshots describe the same state. Because
// Snapshot is built entirely from canonical decimal strings and
// already-sorted slices, plain deep equality is iteration-order safe —
// this is the comparison the determinism check runs between live and
// replayed snapshots.
func Equal(a, b *Snapshot) bool {
	return reflect.DeepEqual(a, b)
}
