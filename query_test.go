package sheetrows_test

import (
	"testing"

	sheetrows "github.com/ideamans/go-sheetrows"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name      string
		filter    string
		orderBy   string
		direction sheetrows.SortDirection
		want      *sheetrows.QuerySpec
	}{
		{
			name: "no constraints",
			want: nil,
		},
		{
			name:   "filter only",
			filter: "name = Alice",
			want:   &sheetrows.QuerySpec{Filter: "name = Alice"},
		},
		{
			name:    "order only",
			orderBy: "column:name",
			want:    &sheetrows.QuerySpec{OrderBy: "column:name"},
		},
		{
			name:      "explicit ascending counts as a constraint",
			direction: sheetrows.SortAscending,
			want:      &sheetrows.QuerySpec{Direction: sheetrows.SortAscending},
		},
		{
			name:      "all fields",
			filter:    "age > 3",
			orderBy:   "position",
			direction: sheetrows.SortDescending,
			want:      &sheetrows.QuerySpec{Filter: "age > 3", OrderBy: "position", Direction: sheetrows.SortDescending},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sheetrows.BuildQuery(tt.filter, tt.orderBy, tt.direction)
			if !got.Equal(tt.want) {
				t.Errorf("BuildQuery() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuerySpec_Equal(t *testing.T) {
	a := sheetrows.BuildQuery("x = 1", "column:x", sheetrows.SortDescending)
	b := sheetrows.BuildQuery("x = 1", "column:x", sheetrows.SortDescending)

	tests := []struct {
		name string
		a, b *sheetrows.QuerySpec
		want bool
	}{
		{"both nil", nil, nil, true},
		{"identical builds", a, b, true},
		{"nil and empty-ish", nil, sheetrows.BuildQuery("", "position", sheetrows.SortDefault), false},
		{"different filter", a, sheetrows.BuildQuery("x = 2", "column:x", sheetrows.SortDescending), false},
		{"different order", a, sheetrows.BuildQuery("x = 1", "column:y", sheetrows.SortDescending), false},
		{"different direction", a, sheetrows.BuildQuery("x = 1", "column:x", sheetrows.SortAscending), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Equal(tt.a); got != tt.want {
				t.Errorf("Equal() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    sheetrows.SortDirection
		wantErr bool
	}{
		{"", sheetrows.SortDefault, false},
		{"true", sheetrows.SortDescending, false},
		{"TRUE", sheetrows.SortDescending, false},
		{"false", sheetrows.SortAscending, false},
		{"desc", sheetrows.SortDescending, false},
		{"asc", sheetrows.SortAscending, false},
		{"sideways", sheetrows.SortDefault, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := sheetrows.ParseDirection(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDirection() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDirection() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortDirection_String(t *testing.T) {
	if got := sheetrows.SortDescending.String(); got != "true" {
		t.Errorf("SortDescending.String() = %q, want true", got)
	}
	if got := sheetrows.SortAscending.String(); got != "false" {
		t.Errorf("SortAscending.String() = %q, want false", got)
	}
	if got := sheetrows.SortDefault.String(); got != "" {
		t.Errorf("SortDefault.String() = %q, want empty", got)
	}
}
