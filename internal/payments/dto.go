package payments

import (
	"strings"
	"time"

	"github.com/payboard/payboard-backend/pkg/money"
	"github.com/payboard/payboard-backend/pkg/sheets"
)

// Timestamps in the document are wall-clock strings in a fixed UTC+3:30
// offset; no daylight-saving rules apply.
const displayTimeFormat = "2006-01-02 15:04:05"

var displayZone = time.FixedZone("UTC+3:30", 12600)

// Payment is the wire form of one ledger record. Amounts carry the display
// convention: comma thousands separators on reads.
type Payment struct {
	UniqueID              string `json:"uniqueId"`
	CreatedAt             string `json:"createdAt"`
	OwnerID               string `json:"ownerId"`
	Source                string `json:"source"`
	Method                string `json:"method"`
	Quantity              string `json:"quantity"`
	UnitPrice             string `json:"unitPrice"`
	Total                 string `json:"total"`
	Currency              string `json:"currency"`
	CardNumber            string `json:"cardNumber"`
	IbanOrSheba           string `json:"ibanOrSheba"`
	PayeeName             string `json:"payeeName"`
	WalletAddress         string `json:"walletAddress"`
	ExternalWalletAddress string `json:"externalWalletAddress"`
	Note                  string `json:"note"`
	AdminNote             string `json:"adminNote"`
	// Status mirrors the reserved column verbatim; the backend never writes it.
	Status   string `json:"status"`
	PaidFlag bool   `json:"paidFlag"`
	DueAt    string `json:"dueAt"`
}

// CreateInput carries the fields a caller may set at creation. Amounts are
// bare numeric strings on mutation payloads; any client total is ignored.
type CreateInput struct {
	OwnerID               string `json:"ownerId"`
	Source                string `json:"source"`
	Method                string `json:"method"`
	Quantity              string `json:"quantity"`
	UnitPrice             string `json:"unitPrice"`
	Currency              string `json:"currency"`
	CardNumber            string `json:"cardNumber"`
	IbanOrSheba           string `json:"ibanOrSheba"`
	PayeeName             string `json:"payeeName"`
	WalletAddress         string `json:"walletAddress"`
	ExternalWalletAddress string `json:"externalWalletAddress"`
	Note                  string `json:"note"`
	AdminNote             string `json:"adminNote"`
	DueAt                 string `json:"dueAt"`
}

// CreateResult returns the generated identifier and the server-computed total.
type CreateResult struct {
	UniqueID string `json:"uniqueId"`
	Total    string `json:"total"`
}

// UpdateInput is a sparse patch; nil means "leave alone". A present Total is
// an explicit manual override and suppresses recomputation for this call.
type UpdateInput struct {
	OwnerID               *string `json:"ownerId"`
	Source                *string `json:"source"`
	Method                *string `json:"method"`
	Quantity              *string `json:"quantity"`
	UnitPrice             *string `json:"unitPrice"`
	Total                 *string `json:"total"`
	Currency              *string `json:"currency"`
	CardNumber            *string `json:"cardNumber"`
	IbanOrSheba           *string `json:"ibanOrSheba"`
	PayeeName             *string `json:"payeeName"`
	WalletAddress         *string `json:"walletAddress"`
	ExternalWalletAddress *string `json:"externalWalletAddress"`
	Note                  *string `json:"note"`
	AdminNote             *string `json:"adminNote"`
	DueAt                 *string `json:"dueAt"`
}

// Actor identifies who performs a mutation, for audit and notification
// display.
type Actor struct {
	DiscordID string
	Nickname  string
	Role      string
}

// DisplayName prefers the nickname and falls back to the raw id.
func (a Actor) DisplayName() string {
	if strings.TrimSpace(a.Nickname) != "" {
		return a.Nickname
	}
	return a.DiscordID
}

// displayAmount renders a stored cell in the display convention; values that
// do not parse pass through untouched so old junk stays visible.
func displayAmount(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	d, err := money.Parse(raw)
	if err != nil {
		return raw
	}
	return money.Format(d)
}

// paymentFromRow maps a fixed-width row buffer into the wire form.
func paymentFromRow(layout *sheets.Layout, row sheets.Row) Payment {
	cell := func(field string) string {
		return row.Cell(layout.MustOffset(field))
	}
	return Payment{
		UniqueID:              strings.TrimSpace(cell(sheets.FieldID)),
		CreatedAt:             cell(sheets.FieldCreatedAt),
		OwnerID:               cell(sheets.FieldOwnerID),
		Source:                cell(sheets.FieldSource),
		Method:                cell(sheets.FieldMethod),
		Quantity:              displayAmount(cell(sheets.FieldQuantity)),
		UnitPrice:             displayAmount(cell(sheets.FieldUnitPrice)),
		Total:                 displayAmount(cell(sheets.FieldTotal)),
		Currency:              cell(sheets.FieldCurrency),
		CardNumber:            cell(sheets.FieldCardNumber),
		IbanOrSheba:           cell(sheets.FieldIbanOrSheba),
		PayeeName:             cell(sheets.FieldPayeeName),
		WalletAddress:         cell(sheets.FieldWalletAddress),
		ExternalWalletAddress: cell(sheets.FieldExternalWalletAddress),
		Note:                  cell(sheets.FieldNote),
		AdminNote:             cell(sheets.FieldAdminNote),
		Status:                cell(sheets.FieldStatus),
		PaidFlag:              IsPaid(cell(sheets.FieldPaid)),
		DueAt:                 cell(sheets.FieldDueAt),
	}
}
