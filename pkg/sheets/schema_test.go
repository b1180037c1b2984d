package sheets

import "testing"

func TestPaymentsLayoutShape(t *testing.T) {
	layout, err := LayoutFor(TablePayments)
	if err != nil {
		t.Fatalf("LayoutFor: %v", err)
	}
	if layout.Width() != 19 {
		t.Fatalf("expected width 19 got %d", layout.Width())
	}
	if layout.HeaderRows != 3 {
		t.Fatalf("expected 3 header rows got %d", layout.HeaderRows)
	}

	// The paid flag lives in physical column Q.
	off := layout.MustOffset(FieldPaid)
	if off != 16 {
		t.Fatalf("expected paid flag at offset 16 got %d", off)
	}
	if columnLetter(off) != "Q" {
		t.Fatalf("expected column Q got %s", columnLetter(off))
	}
}

func TestReservedOffsetsEnumerable(t *testing.T) {
	layout, _ := LayoutFor(TablePayments)
	reserved := layout.ReservedOffsets()
	if len(reserved) != 1 {
		t.Fatalf("expected one reserved offset got %v", reserved)
	}
	statusOff := layout.MustOffset(FieldStatus)
	if reserved[0] != statusOff {
		t.Fatalf("expected reserved offset %d got %d", statusOff, reserved[0])
	}
	if !layout.IsReserved(statusOff) {
		t.Fatal("status offset should be reserved")
	}
	if layout.IsReserved(layout.MustOffset(FieldPaid)) {
		t.Fatal("paid offset should be writable")
	}
}

func TestOffsetsAreDense(t *testing.T) {
	for _, table := range []Table{TablePayments, TableUsers, TableSellerInfo, TableSettings} {
		layout, err := LayoutFor(table)
		if err != nil {
			t.Fatalf("LayoutFor(%s): %v", table, err)
		}
		seen := make(map[int]string)
		for _, f := range layout.Fields() {
			if prev, dup := seen[f.Offset]; dup {
				t.Fatalf("%s: offset %d claimed by %s and %s", table, f.Offset, prev, f.Name)
			}
			seen[f.Offset] = f.Name
		}
		for off := 0; off < layout.Width(); off++ {
			if _, ok := seen[off]; !ok {
				t.Fatalf("%s: offset %d has no field", table, off)
			}
		}
	}
}

func TestUnknownTable(t *testing.T) {
	if _, err := LayoutFor(Table("Nope")); err == nil {
		t.Fatal("expected error for unknown table")
	}
}

func TestColumnLetter(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 16: "Q", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA"}
	for off, want := range cases {
		if got := columnLetter(off); got != want {
			t.Fatalf("columnLetter(%d) = %q, want %q", off, got, want)
		}
	}
}

func TestCellString(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{true, "TRUE"},
		{false, "FALSE"},
		{float64(12), "12"},
		{float64(12.5), "12.5"},
	}
	for _, tc := range cases {
		if got := cellString(tc.in); got != tc.want {
			t.Fatalf("cellString(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
