package value

// ShirtAttributes are free-form; the known keys are lifted into fields so the
// admin UI can filter on them.
type ShirtAttributes struct {
	Size    string            `json:"size,omitempty"`
	Color   string            `json:"color,omitempty"`
	Edition string            `json:"edition,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

type BidStatus string

const (
	BidStatusPending BidStatus = "pending"
	BidStatusWon     BidStatus = "won"
	BidStatusLost    BidStatus = "lost"
)

func (s BidStatus) Valid() bool {
	switch s {
	case BidStatusPending, BidStatusWon, BidStatusLost:
		return true
	default:
		return false
	}
}
