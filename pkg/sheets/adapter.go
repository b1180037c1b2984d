package sheets

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	sheetsv4 "google.golang.org/api/sheets/v4"

	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/metrics"
)

// Row is one fixed-width row buffer plus its current physical position.
// The index is only meaningful until the next deletion on the same table;
// it must never be stored or handed to a client.
type Row struct {
	Index int
	Cells []string
}

// Cell returns the value at offset; out-of-range reads are empty, not panics.
func (r Row) Cell(offset int) string {
	if offset < 0 || offset >= len(r.Cells) {
		return ""
	}
	return r.Cells[offset]
}

// RowStore is the positional CRUD surface over the backing document.
type RowStore interface {
	// ListRows returns every data row of the table, header rows skipped,
	// each buffer padded to the table's fixed width. An empty tab is an
	// empty slice, not an error.
	ListRows(ctx context.Context, table Table) ([]Row, error)
	// AppendRow inserts past the last data row. The caller must have
	// embedded any identifier inside the buffer already; no id is returned.
	AppendRow(ctx context.Context, table Table, cells []string) error
	// UpdateCells writes only the given offsets. Reserved offsets are
	// silently skipped; offsets outside the layout are rejected.
	UpdateCells(ctx context.Context, table Table, rowIndex int, cells map[int]string) error
	// DeleteRow physically removes the row; every row below shifts up by
	// one, so all previously observed indexes for this table are invalid
	// after this call.
	DeleteRow(ctx context.Context, table Table, rowIndex int) error
}

// Adapter implements RowStore against the Sheets values API, converting the
// 0-indexed logical addressing used everywhere else into the API's 1-indexed
// A1 ranges.
type Adapter struct {
	client  *Client
	metrics *metrics.StoreMetrics
}

// NewAdapter binds the adapter to a client. Metrics may be nil.
func NewAdapter(client *Client, m *metrics.StoreMetrics) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("sheets client required")
	}
	return &Adapter{client: client, metrics: m}, nil
}

func (a *Adapter) ListRows(ctx context.Context, table Table) ([]Row, error) {
	layout, err := LayoutFor(table)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve layout")
	}

	rng := fmt.Sprintf("%s!A%d:%s", table, layout.HeaderRows+1, columnLetter(layout.Width()-1))

	start := time.Now()
	resp, err := a.client.svc.Spreadsheets.Values.Get(a.client.spreadsheetID, rng).
		Context(ctx).
		Do()
	a.metrics.ObserveCall(string(table), "list", time.Since(start), err)
	if err != nil {
		return nil, asStoreError(err, fmt.Sprintf("list %s rows", table))
	}

	rows := make([]Row, 0, len(resp.Values))
	for i, raw := range resp.Values {
		cells := make([]string, layout.Width())
		for j := 0; j < layout.Width() && j < len(raw); j++ {
			cells[j] = cellString(raw[j])
		}
		rows = append(rows, Row{Index: i, Cells: cells})
	}
	return rows, nil
}

func (a *Adapter) AppendRow(ctx context.Context, table Table, cells []string) error {
	layout, err := LayoutFor(table)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve layout")
	}
	if len(cells) > layout.Width() {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("row buffer has %d cells, %s holds %d", len(cells), table, layout.Width()))
	}

	values := make([]interface{}, layout.Width())
	for i := range values {
		values[i] = ""
	}
	for i, v := range cells {
		if layout.IsReserved(i) {
			continue
		}
		values[i] = v
	}

	rng := fmt.Sprintf("%s!A%d", table, layout.HeaderRows+1)
	body := &sheetsv4.ValueRange{Values: [][]interface{}{values}}

	start := time.Now()
	_, err = a.client.svc.Spreadsheets.Values.Append(a.client.spreadsheetID, rng, body).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	a.metrics.ObserveCall(string(table), "append", time.Since(start), err)
	if err != nil {
		return asStoreError(err, fmt.Sprintf("append %s row", table))
	}
	return nil
}

func (a *Adapter) UpdateCells(ctx context.Context, table Table, rowIndex int, cells map[int]string) error {
	layout, err := LayoutFor(table)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve layout")
	}
	if rowIndex < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("row index %d out of range", rowIndex))
	}

	offsets := make([]int, 0, len(cells))
	for off := range cells {
		if off < 0 || off >= layout.Width() {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("offset %d outside %s layout [0,%d]", off, table, layout.Width()-1))
		}
		if layout.IsReserved(off) {
			continue
		}
		offsets = append(offsets, off)
	}
	if len(offsets) == 0 {
		return nil
	}
	sort.Ints(offsets)

	displayRow := layout.HeaderRows + rowIndex + 1
	data := make([]*sheetsv4.ValueRange, 0, len(offsets))
	for _, off := range offsets {
		data = append(data, &sheetsv4.ValueRange{
			Range:  fmt.Sprintf("%s!%s%d", table, columnLetter(off), displayRow),
			Values: [][]interface{}{{cells[off]}},
		})
	}

	req := &sheetsv4.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}

	start := time.Now()
	_, err = a.client.svc.Spreadsheets.Values.BatchUpdate(a.client.spreadsheetID, req).
		Context(ctx).
		Do()
	a.metrics.ObserveCall(string(table), "update", time.Since(start), err)
	if err != nil {
		return asStoreError(err, fmt.Sprintf("update %s row %d", table, rowIndex))
	}
	return nil
}

func (a *Adapter) DeleteRow(ctx context.Context, table Table, rowIndex int) error {
	layout, err := LayoutFor(table)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve layout")
	}
	if rowIndex < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("row index %d out of range", rowIndex))
	}

	sheetID, err := a.client.sheetID(table)
	if err != nil {
		return err
	}

	physical := int64(layout.HeaderRows + rowIndex)
	req := &sheetsv4.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsv4.Request{{
			DeleteDimension: &sheetsv4.DeleteDimensionRequest{
				Range: &sheetsv4.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: physical,
					EndIndex:   physical + 1,
				},
			},
		}},
	}

	start := time.Now()
	_, err = a.client.svc.Spreadsheets.BatchUpdate(a.client.spreadsheetID, req).
		Context(ctx).
		Do()
	a.metrics.ObserveCall(string(table), "delete", time.Since(start), err)
	if err != nil {
		return asStoreError(err, fmt.Sprintf("delete %s row %d", table, rowIndex))
	}
	return nil
}

// cellString normalizes the API's loosely typed cell values into the string
// form the schema layer works with.
func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
