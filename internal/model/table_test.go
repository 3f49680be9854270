package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawTableValue(t *testing.T) {
	t.Parallel()

	table := &RawTable{
		Headers: []string{"Name", "Zip", "Score", "Note"},
		Rows: []Row{
			{"Name": "Ann", "Zip": float64(2134), "Score": 4.5},
			{"Name": "Bob"},
		},
	}

	tests := []struct {
		name   string
		row    int
		header string
		want   string
	}{
		{"string value", 0, "Name", "Ann"},
		{"whole number", 0, "Zip", "2134"},
		{"fractional number", 0, "Score", "4.5"},
		{"absent cell", 1, "Zip", ""},
		{"unknown header", 0, "Email", ""},
		{"negative row", -1, "Name", ""},
		{"row out of range", 2, "Name", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, table.Value(tt.row, tt.header))
		})
	}
}

func TestRawTableHasHeader(t *testing.T) {
	t.Parallel()

	table := &RawTable{Headers: []string{"First", "__EMPTY"}}
	assert.True(t, table.HasHeader("First"))
	assert.True(t, table.HasHeader("__EMPTY"))
	assert.False(t, table.HasHeader("first"))
	assert.False(t, (&RawTable{}).HasHeader(""))
}
