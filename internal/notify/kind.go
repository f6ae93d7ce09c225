package notify

import "strconv"

// Kind identifies a notification signal.
type Kind int

// Signal numbers follow the Linux real-time range.
const (
	SIGRTMIN Kind = 34
	SIGRTMAX Kind = 64

	// KindCollected reports a value drained from the collection queue.
	KindCollected = SIGRTMIN + 1
)

// String returns the signal name, e.g. "SIGRTMIN+1".
func (k Kind) String() string {
	switch {
	case k == SIGRTMIN:
		return "SIGRTMIN"
	case k > SIGRTMIN && k <= SIGRTMAX:
		return "SIGRTMIN+" + strconv.Itoa(int(k-SIGRTMIN))
	default:
		return "SIG" + strconv.Itoa(int(k))
	}
}

// Valid reports whether k lies in the real-time range.
func (k Kind) Valid() bool {
	return k >= SIGRTMIN && k <= SIGRTMAX
}
