package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullName(t *testing.T) {
	tests := []struct {
		first, last string
		expected    string
	}{
		{"Ann", "Lee", "Ann Lee"},
		{"Ann", "", "Ann "},
		{"", "Lee", " Lee"},
		{"", "", " "},
	}

	for _, tt := range tests {
		u := User{FirstName: tt.first, LastName: tt.last}
		assert.Equal(t, tt.expected, u.FullName(), "FullName(%q, %q)", tt.first, tt.last)
	}
}

func TestNormalizeSet(t *testing.T) {
	tests := []struct {
		name     string
		in       []string
		expected []string
	}{
		{"nil", nil, []string{}},
		{"empty", []string{}, []string{}},
		{"sorted", []string{"b", "a"}, []string{"a", "b"}},
		{"duplicates", []string{"a", "b", "a", "a"}, []string{"a", "b"}},
		// Blank ids are never stored.
		{"blank", []string{"", "a", ""}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSet(tt.in))
		})
	}
}

func TestSortItems(t *testing.T) {
	items := []Item{{ItemID: "c"}, {ItemID: "a"}, {ItemID: "b"}}
	SortItems(items)
	assert.Equal(t, []Item{{ItemID: "a"}, {ItemID: "b"}, {ItemID: "c"}}, items)
}
