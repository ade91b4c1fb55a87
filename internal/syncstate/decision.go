package syncstate

import "fmt"

// Decision is the outcome of the skip-or-upload protocol.
type Decision struct {
	Skip   bool
	Reason string
}

// Decide determines whether the upload can be skipped. It is a pure function
// of its inputs: no I/O, no hidden state. Digest equality is the only test
// that produces a skip; book count and timestamp are informational only.
func Decide(currentHash string, state *SyncState, force bool) Decision {
	if force {
		return Decision{Skip: false, Reason: "force sync enabled"}
	}
	if state == nil {
		return Decision{Skip: false, Reason: "no previous state found"}
	}
	if state.LastHash == currentHash {
		return Decision{Skip: true, Reason: fmt.Sprintf("library unchanged since %s", state.LastSyncTimestamp)}
	}
	return Decision{Skip: false, Reason: "library content changed"}
}
