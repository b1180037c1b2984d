// Package sheetstest provides an in-memory RowStore with the same positional
// semantics as the real adapter: fixed-width buffers, reserved offsets
// skipped on write, physical deletes that shift every following row.
package sheetstest

import (
	"context"
	"fmt"
	"sync"

	pkgerrors "github.com/payboard/payboard-backend/pkg/errors"
	"github.com/payboard/payboard-backend/pkg/sheets"
)

type FakeStore struct {
	mu   sync.Mutex
	rows map[sheets.Table][][]string

	// FailNext makes the next call return a dependency error, for testing
	// store-unavailable paths.
	FailNext bool

	Appends int
	Updates int
	Deletes int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{rows: make(map[sheets.Table][][]string)}
}

func (f *FakeStore) failIfRequested(op string) error {
	if f.FailNext {
		f.FailNext = false
		return pkgerrors.New(pkgerrors.CodeDependency, op+" unavailable")
	}
	return nil
}

func (f *FakeStore) ListRows(_ context.Context, table sheets.Table) ([]sheets.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failIfRequested("list"); err != nil {
		return nil, err
	}
	layout, err := sheets.LayoutFor(table)
	if err != nil {
		return nil, err
	}
	out := make([]sheets.Row, 0, len(f.rows[table]))
	for i, cells := range f.rows[table] {
		buf := make([]string, layout.Width())
		copy(buf, cells)
		out = append(out, sheets.Row{Index: i, Cells: buf})
	}
	return out, nil
}

func (f *FakeStore) AppendRow(_ context.Context, table sheets.Table, cells []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failIfRequested("append"); err != nil {
		return err
	}
	layout, err := sheets.LayoutFor(table)
	if err != nil {
		return err
	}
	if len(cells) > layout.Width() {
		return pkgerrors.New(pkgerrors.CodeValidation, "row buffer too wide")
	}
	buf := make([]string, layout.Width())
	for i, v := range cells {
		if layout.IsReserved(i) {
			continue
		}
		buf[i] = v
	}
	f.rows[table] = append(f.rows[table], buf)
	f.Appends++
	return nil
}

func (f *FakeStore) UpdateCells(_ context.Context, table sheets.Table, rowIndex int, cells map[int]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failIfRequested("update"); err != nil {
		return err
	}
	layout, err := sheets.LayoutFor(table)
	if err != nil {
		return err
	}
	if rowIndex < 0 || rowIndex >= len(f.rows[table]) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("row index %d out of range", rowIndex))
	}
	for off := range cells {
		if off < 0 || off >= layout.Width() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("offset %d outside layout", off))
		}
	}
	for off, v := range cells {
		if layout.IsReserved(off) {
			continue
		}
		f.rows[table][rowIndex][off] = v
	}
	f.Updates++
	return nil
}

func (f *FakeStore) DeleteRow(_ context.Context, table sheets.Table, rowIndex int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failIfRequested("delete"); err != nil {
		return err
	}
	if rowIndex < 0 || rowIndex >= len(f.rows[table]) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("row index %d out of range", rowIndex))
	}
	f.rows[table] = append(f.rows[table][:rowIndex], f.rows[table][rowIndex+1:]...)
	f.Deletes++
	return nil
}

// Raw returns a copy of the table's current buffers for assertions.
func (f *FakeStore) Raw(table sheets.Table) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.rows[table]))
	for i, r := range f.rows[table] {
		buf := make([]string, len(r))
		copy(buf, r)
		out[i] = buf
	}
	return out
}
