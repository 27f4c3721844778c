package models

import "time"

// Poll status enum. A poll transitions active -> closed exactly once,
// at settlement; ResultOptionID is set iff the poll is closed.
const (
	PollStatusActive = "active"
	PollStatusClosed = "closed"
)

type PollOption struct {
	OptionID    string  `json:"option_id"`
	Text        string  `json:"text"`
	ImageBase64 *string `json:"image_base64,omitempty"`
}

// Poll prices are integer paise per vote-unit. All money in this codebase
// is integer minor units; decimals appear only at the payment-gateway
// boundary.
type Poll struct {
	PollID         string       `json:"poll_id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Options        []PollOption `json:"options"`
	PricePerVote   int64        `json:"price_per_vote"`
	Status         string       `json:"status"`
	ResultOptionID *string      `json:"result_option_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	ClosedAt       *time.Time   `json:"closed_at,omitempty"`
}

// Option reports whether id is one of the poll's declared options.
func (p *Poll) Option(id string) (PollOption, bool) {
	for _, opt := range p.Options {
		if opt.OptionID == id {
			return opt, true
		}
	}
	return PollOption{}, false
}
