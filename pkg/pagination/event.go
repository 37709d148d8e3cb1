package pagination

import (
	"fmt"

	"github.com/Sternrassler/movie-catalog/pkg/catalog"
	"github.com/Sternrassler/movie-catalog/pkg/connectivity"
)

// ErrOffline is carried by EventOffline.
var ErrOffline = connectivity.ErrOffline

// EventKind identifies an Engine event.
type EventKind int

const (
	// EventLoadingChanged reports the start (Loading=true, only on refresh)
	// or the end (Loading=false) of a load cycle.
	EventLoadingChanged EventKind = iota

	// EventBatchAppended reports the index range appended by a batch.
	// It is never emitted with an empty range.
	EventBatchAppended

	// EventError reports that every page of a batch failed.
	EventError

	// EventOffline reports that a load was skipped because the network is
	// unreachable.
	EventOffline

	// EventGenericError reports a failed batch whose cause is not fit for
	// display, such as a recovered panic in a page fetch.
	EventGenericError
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventLoadingChanged:
		return "loading_changed"
	case EventBatchAppended:
		return "batch_appended"
	case EventError:
		return "error"
	case EventOffline:
		return "offline"
	case EventGenericError:
		return "generic_error"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a state transition published by the Engine.
type Event struct {
	Kind       EventKind
	Loading    bool
	Range      Range
	Err        error
	Message    string
	Generation uint64
}

// Range is the half-open index range [Lower, Upper).
type Range struct {
	Lower int
	Upper int
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	if r.Upper <= r.Lower {
		return 0
	}
	return r.Upper - r.Lower
}

// Empty reports whether the range holds no indices.
func (r Range) Empty() bool {
	return r.Len() == 0
}

// String implements fmt.Stringer.
func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Lower, r.Upper)
}

// Snapshot is a read-only copy of the Engine state.
type Snapshot struct {
	Items       []catalog.Movie
	CurrentPage int
	// TotalPages is -1 while the total is unknown.
	TotalPages int
	Loading    bool
	HasMore    bool
	Generation uint64
}
