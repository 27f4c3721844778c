package models

import "time"

// Vote is an immutable ledger record of cast vote-units. AmountPaid is
// VoteCount times the poll's price per vote, in paise, and is the stake
// pooled at settlement if the option loses.
type Vote struct {
	VoteID     string    `json:"vote_id"`
	PollID     string    `json:"poll_id"`
	UserID     string    `json:"user_id"`
	OptionID   string    `json:"option_id"`
	VoteCount  int64     `json:"vote_count"`
	AmountPaid int64     `json:"amount_paid"`
	CreatedAt  time.Time `json:"created_at"`
}
