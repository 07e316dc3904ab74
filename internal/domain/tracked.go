package domain

// TrackStatus is the operator's disposition for a token.
type TrackStatus string

const (
	StatusTracked   TrackStatus = "tracked"
	StatusDismissed TrackStatus = "dismissed"
)

// TrackedToken records an operator track/dismiss action on a notified token.
// Dismissed tokens are excluded from future notifications until re-tracked.
type TrackedToken struct {
	Chain        string
	TokenAddress string
	Status       TrackStatus
	UpdatedAt    int64 // Unix ms
}

// Key returns the chain:address composite key.
func (t *TrackedToken) Key() string {
	return t.Chain + ":" + t.TokenAddress
}
