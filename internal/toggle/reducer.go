// Package toggle implements optimistic add/remove of watchlist rows: a pure
// reducer over row state plus a Controller that runs the store writes and
// reconciles the result.
package toggle

import "encoding/json"

// State is whether a symbol is on the user's watchlist.
type State int

const (
	Absent State = iota
	Present
)

func (s State) String() string {
	if s == Present {
		return "present"
	}
	return "absent"
}

func (s State) flip() State {
	if s == Present {
		return Absent
	}
	return Present
}

// Row is the client-visible state of one watchlist row. Pending is the state
// the most recent toggle is trying to reach and is only meaningful while
// Processing is true.
type Row struct {
	Symbol     string `json:"symbol"`
	Company    string `json:"company"`
	State      State  `json:"-"`
	Processing bool   `json:"processing"`
	Pending    State  `json:"-"`
	// Seq counts toggles on the row; a completion for an older Seq is stale.
	Seq uint64 `json:"-"`
}

// InWatchlist reports whether the row currently shows as present.
func (r Row) InWatchlist() bool {
	return r.State == Present
}

// MarshalJSON renders the row as clients see it.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Symbol      string `json:"symbol"`
		Company     string `json:"company"`
		InWatchlist bool   `json:"inWatchlist"`
		Processing  bool   `json:"processing"`
	}{r.Symbol, r.Company, r.InWatchlist(), r.Processing})
}

// EventKind enumerates reducer inputs.
type EventKind int

const (
	// Toggled is the user action; it flips the row optimistically.
	Toggled EventKind = iota
	// Confirmed settles a successful write.
	Confirmed
	// Failed reverts a write the store rejected.
	Failed
	// Rejected reverts a toggle that never reached the store.
	Rejected
)

// Event is a reducer input.
type Event struct {
	Kind EventKind
}

// Reduce applies ev to r and returns the new row.
func Reduce(r Row, ev Event) Row {
	switch ev.Kind {
	case Toggled:
		r.State = r.State.flip()
		r.Pending = r.State
		r.Processing = true
		r.Seq++
	case Confirmed:
		r.Processing = false
	case Failed, Rejected:
		r.State = r.Pending.flip()
		r.Processing = false
	}
	return r
}
