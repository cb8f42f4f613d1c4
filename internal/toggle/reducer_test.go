package toggle

import (
	"encoding/json"
	"testing"
)

func TestReduce(t *testing.T) {
	tests := []struct {
		name   string
		start  Row
		events []EventKind
		want   State
		busy   bool
		seq    uint64
	}{
		{"toggle absent", Row{State: Absent}, []EventKind{Toggled}, Present, true, 1},
		{"toggle present", Row{State: Present}, []EventKind{Toggled}, Absent, true, 1},
		{"add confirmed", Row{State: Absent}, []EventKind{Toggled, Confirmed}, Present, false, 1},
		{"add failed", Row{State: Absent}, []EventKind{Toggled, Failed}, Absent, false, 1},
		{"remove failed", Row{State: Present}, []EventKind{Toggled, Failed}, Present, false, 1},
		{"add rejected", Row{State: Absent}, []EventKind{Toggled, Rejected}, Absent, false, 1},
		{"double toggle", Row{State: Absent}, []EventKind{Toggled, Toggled}, Absent, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := tt.start
			for _, kind := range tt.events {
				row = Reduce(row, Event{Kind: kind})
			}
			if row.State != tt.want {
				t.Errorf("State = %v, want %v", row.State, tt.want)
			}
			if row.Processing != tt.busy {
				t.Errorf("Processing = %v, want %v", row.Processing, tt.busy)
			}
			if row.Seq != tt.seq {
				t.Errorf("Seq = %d, want %d", row.Seq, tt.seq)
			}
		})
	}
}

func TestRowJSON(t *testing.T) {
	b, err := json.Marshal(Row{Symbol: "AAPL", Company: "Apple", State: Present, Processing: true, Pending: Present})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"symbol":"AAPL","company":"Apple","inWatchlist":true,"processing":true}`
	if string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
}
