// Package payloads holds the versioned event bodies stored inside outbox
// envelopes. Consumers (the notify worker) decode Data into these types.
package payloads

import "github.com/payboard/payboard-backend/pkg/types"

// PaymentEventV1 describes a payment lifecycle event. Amounts are the
// display-formatted strings the document holds, not raw numerics.
type PaymentEventV1 struct {
	UniqueID  string          `json:"uniqueId"`
	OwnerID   string          `json:"ownerId"`
	Source    string          `json:"source,omitempty"`
	Method    string          `json:"method,omitempty"`
	Total     string          `json:"total,omitempty"`
	Currency  string          `json:"currency,omitempty"`
	PayeeName string          `json:"payeeName,omitempty"`
	Note      string          `json:"note,omitempty"`
	Changes   types.ChangeSet `json:"changes,omitempty"`
}
