// Package sheets treats one spreadsheet document as a positional row store.
// The column layout of every tab is fixed here and never inferred from the
// data at runtime; changing a layout requires migrating the document first.
package sheets

import "fmt"

// Table names one logical tab of the backing document.
type Table string

const (
	TablePayments   Table = "Payments"
	TableUsers      Table = "Users"
	TableSellerInfo Table = "SellerInfo"
	TableSettings   Table = "Settings"
)

// Payments field names. These are the canonical identifiers used in audit
// diffs, so renames here rewrite history semantics; don't.
const (
	FieldCreatedAt             = "createdAt"
	FieldOwnerID               = "ownerId"
	FieldSource                = "source"
	FieldMethod                = "method"
	FieldQuantity              = "quantity"
	FieldUnitPrice             = "unitPrice"
	FieldTotal                 = "total"
	FieldCurrency              = "currency"
	FieldCardNumber            = "cardNumber"
	FieldIbanOrSheba           = "ibanOrSheba"
	FieldPayeeName             = "payeeName"
	FieldWalletAddress         = "walletAddress"
	FieldExternalWalletAddress = "externalWalletAddress"
	FieldNote                  = "note"
	FieldAdminNote             = "adminNote"
	FieldStatus                = "status"
	// FieldPaid keeps the legacy name of the physical column (Q) so old and
	// new audit entries read the same.
	FieldPaid  = "columnQ"
	FieldDueAt = "dueAt"
	FieldID    = "uniqueId"
)

// Users field names.
const (
	UserFieldDiscordID    = "discordId"
	UserFieldRole         = "role"
	UserFieldUsername     = "username"
	UserFieldPasswordHash = "passwordHash"
	UserFieldNickname     = "nickname"
	UserFieldCreatedAt    = "createdAt"
	UserFieldUpdatedAt    = "updatedAt"
)

// SellerInfo field names.
const (
	SellerFieldOwnerID       = "ownerId"
	SellerFieldPayeeName     = "payeeName"
	SellerFieldCardNumber    = "cardNumber"
	SellerFieldIbanOrSheba   = "ibanOrSheba"
	SellerFieldWalletAddress = "walletAddress"
	SellerFieldUpdatedAt     = "updatedAt"
)

// Settings field names.
const (
	SettingFieldKey   = "key"
	SettingFieldValue = "value"
)

// FieldDef binds a logical field name to its zero-based column offset.
type FieldDef struct {
	Name     string
	Offset   int
	Reserved bool
}

// Layout is the fixed shape of one table.
type Layout struct {
	Table      Table
	HeaderRows int
	fields     []FieldDef
	byName     map[string]FieldDef
	width      int
}

var layouts = map[Table]*Layout{
	TablePayments: newLayout(TablePayments, 3, []FieldDef{
		{Name: FieldCreatedAt, Offset: 0},
		{Name: FieldOwnerID, Offset: 1},
		{Name: FieldSource, Offset: 2},
		{Name: FieldMethod, Offset: 3},
		{Name: FieldQuantity, Offset: 4},
		{Name: FieldUnitPrice, Offset: 5},
		{Name: FieldTotal, Offset: 6},
		{Name: FieldCurrency, Offset: 7},
		{Name: FieldCardNumber, Offset: 8},
		{Name: FieldIbanOrSheba, Offset: 9},
		{Name: FieldPayeeName, Offset: 10},
		{Name: FieldWalletAddress, Offset: 11},
		{Name: FieldExternalWalletAddress, Offset: 12},
		{Name: FieldNote, Offset: 13},
		{Name: FieldAdminNote, Offset: 14},
		// Column P is a leftover workflow column. Nothing may write it.
		{Name: FieldStatus, Offset: 15, Reserved: true},
		{Name: FieldPaid, Offset: 16},
		{Name: FieldDueAt, Offset: 17},
		{Name: FieldID, Offset: 18},
	}),
	TableUsers: newLayout(TableUsers, 1, []FieldDef{
		{Name: UserFieldDiscordID, Offset: 0},
		{Name: UserFieldRole, Offset: 1},
		{Name: UserFieldUsername, Offset: 2},
		{Name: UserFieldPasswordHash, Offset: 3},
		{Name: UserFieldNickname, Offset: 4},
		{Name: UserFieldCreatedAt, Offset: 5},
		{Name: UserFieldUpdatedAt, Offset: 6},
	}),
	TableSellerInfo: newLayout(TableSellerInfo, 1, []FieldDef{
		{Name: SellerFieldOwnerID, Offset: 0},
		{Name: SellerFieldPayeeName, Offset: 1},
		{Name: SellerFieldCardNumber, Offset: 2},
		{Name: SellerFieldIbanOrSheba, Offset: 3},
		{Name: SellerFieldWalletAddress, Offset: 4},
		{Name: SellerFieldUpdatedAt, Offset: 5},
	}),
	TableSettings: newLayout(TableSettings, 1, []FieldDef{
		{Name: SettingFieldKey, Offset: 0},
		{Name: SettingFieldValue, Offset: 1},
	}),
}

func newLayout(table Table, headerRows int, fields []FieldDef) *Layout {
	byName := make(map[string]FieldDef, len(fields))
	width := 0
	for _, f := range fields {
		byName[f.Name] = f
		if f.Offset+1 > width {
			width = f.Offset + 1
		}
	}
	return &Layout{
		Table:      table,
		HeaderRows: headerRows,
		fields:     fields,
		byName:     byName,
		width:      width,
	}
}

// LayoutFor returns the fixed layout for the table.
func LayoutFor(table Table) (*Layout, error) {
	l, ok := layouts[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return l, nil
}

// Width is the fixed number of cells in a row buffer.
func (l *Layout) Width() int { return l.width }

// Fields returns the ordered field definitions.
func (l *Layout) Fields() []FieldDef { return l.fields }

// Offset resolves a logical field name to its column offset.
func (l *Layout) Offset(field string) (int, bool) {
	f, ok := l.byName[field]
	if !ok {
		return 0, false
	}
	return f.Offset, true
}

// MustOffset resolves a field that is statically known to exist.
func (l *Layout) MustOffset(field string) int {
	off, ok := l.Offset(field)
	if !ok {
		panic(fmt.Sprintf("sheets: field %q not in %s layout", field, l.Table))
	}
	return off
}

// IsReserved reports whether the offset must never be written.
func (l *Layout) IsReserved(offset int) bool {
	for _, f := range l.fields {
		if f.Offset == offset {
			return f.Reserved
		}
	}
	return false
}

// ReservedOffsets enumerates every offset writers must skip.
func (l *Layout) ReservedOffsets() []int {
	var out []int
	for _, f := range l.fields {
		if f.Reserved {
			out = append(out, f.Offset)
		}
	}
	return out
}

// columnLetter converts a zero-based offset into the A1 column reference.
func columnLetter(offset int) string {
	letters := ""
	n := offset
	for {
		letters = string(rune('A'+n%26)) + letters
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return letters
}
