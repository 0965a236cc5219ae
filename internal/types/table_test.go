package types

import (
	"testing"
	"time"
)

func TestSemanticOf(t *testing.T) {
	tests := []struct {
		value any
		want  SemanticType
	}{
		{int64(4), TypeNumber},
		{3.5, TypeNumber},
		{true, TypeBoolean},
		{time.Now(), TypeDate},
		{"hello", TypeString},
		{nil, TypeString},
	}

	for _, tt := range tests {
		if got := SemanticOf(tt.value); got != tt.want {
			t.Errorf("SemanticOf(%#v) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestCoerce(t *testing.T) {
	date := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		typ  SemanticType
		raw  any
		want any
	}{
		{"bytes to string", TypeString, []byte("abc"), "abc"},
		{"int to number", TypeNumber, 7, int64(7)},
		{"numeric string", TypeNumber, "12.5", 12.5},
		{"integer string", TypeNumber, "12", int64(12)},
		{"sqlite bool", TypeBoolean, int64(1), true},
		{"string bool", TypeBoolean, "false", false},
		{"rfc3339 date", TypeDate, "2024-03-01T10:30:00Z", date},
		{"sqlite date", TypeDate, "2024-03-01 10:30:00", date},
		{"time date", TypeDate, date.In(time.FixedZone("x", 3600)), date},
		{"nil stays nil", TypeNumber, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.typ, tt.raw)
			if err != nil {
				t.Fatalf("Coerce returned error: %v", err)
			}
			if !EqualValues(got, tt.want) {
				t.Errorf("Coerce(%s, %#v) = %#v, want %#v", tt.typ, tt.raw, got, tt.want)
			}
		})
	}
}

func TestCoerceRejectsGarbage(t *testing.T) {
	if _, err := Coerce(TypeNumber, "twelve"); err == nil {
		t.Error("expected error for non-numeric string")
	}
	if _, err := Coerce(TypeDate, "yesterday"); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestEqualValues(t *testing.T) {
	if !EqualValues(int64(3), 3.0) {
		t.Error("int64(3) should equal 3.0")
	}
	if EqualValues("3", int64(3)) {
		t.Error("string should not equal number")
	}
	if !EqualValues(nil, nil) {
		t.Error("nil should equal nil")
	}
	if EqualValues(nil, "") {
		t.Error("nil should not equal empty string")
	}
}

func TestTableHelpers(t *testing.T) {
	table := &Table{
		Name:    "customers",
		Columns: []Column{{Name: "id", Type: TypeString}, {Name: "points", Type: TypeNumber}},
		Rows: []Row{
			{"id": "C1", "points": int64(10)},
			{"id": "C2", "points": int64(20)},
		},
	}

	if names := table.ColumnNames(); len(names) != 2 || names[0] != "id" || names[1] != "points" {
		t.Errorf("unexpected column names: %v", names)
	}
	if values := table.Values("id"); values[0] != "C1" || values[1] != "C2" {
		t.Errorf("unexpected values: %v", values)
	}
	if _, ok := table.Column("missing"); ok {
		t.Error("expected missing column lookup to fail")
	}
	if len(table.Head(1)) != 1 || len(table.Head(10)) != 2 {
		t.Error("Head returned wrong number of rows")
	}
	if renamed := table.Renamed("other"); renamed.Name != "other" || len(renamed.Rows) != 2 {
		t.Error("Renamed did not keep rows")
	}
}
