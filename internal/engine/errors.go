package engine

import "fmt"

// InvalidTransitionError indicates an action not valid from the record's
// current status, including re-invoking an action on a terminal record.
type InvalidTransitionError struct {
	Kind   string
	ID     string
	From   string
	Action string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s from status %s", e.Kind, e.Action, e.From)
}

// InvalidAmountError indicates invoice issuance with a non-positive amount.
type InvalidAmountError struct {
	Amount int64
}

func (e InvalidAmountError) Error() string {
	return fmt.Sprintf("invoice amount must be positive, got %d", e.Amount)
}

// MessageRejectedError indicates moderation refused an outbound message,
// either for a banned word or for exceeding the actor's message rate.
type MessageRejectedError struct {
	Reason string // "banned_word" or "rate_limit"
	Word   string
}

func (e MessageRejectedError) Error() string {
	if e.Reason == "banned_word" {
		return fmt.Sprintf("message rejected: contains banned word %q", e.Word)
	}
	return "message rejected: too many messages, slow down"
}

// NotPayerError indicates an actor other than the billed client attempting
// to resolve an invoice. Pay and dispute are reserved for the payer.
type NotPayerError struct {
	InvoiceID string
}

func (e NotPayerError) Error() string {
	return fmt.Sprintf("invoice %s can only be resolved by the billed client", e.InvoiceID)
}
