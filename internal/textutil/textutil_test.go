// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"David Bowie", "david bowie"},
		{"  DAVID   bowie ", "david bowie"},
		{"Björk", "bjork"},
		{"Beyoncé", "beyonce"},
		{"Simon & Garfunkel", "simon and garfunkel"},
		{"Guns N' Roses", "guns n roses"},
		{"R.E.M.", "rem"},
		{"AC/DC", "ac dc"},
		{"Sigur Rós", "sigur ros"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"devid bowee", "david bowie", 2},
		{"björk", "bjork", 1},
	}
	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSkeleton(t *testing.T) {
	assert.Equal(t, Skeleton("mikhail"), Skeleton("michail"))
	assert.Equal(t, Skeleton("philip glass"), Skeleton("filip glas"))
	assert.NotEqual(t, Skeleton("david bowie"), Skeleton("david byrne"))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "David Bowie", TitleCase("dAVID   bowie"))
}

func TestContainsWord(t *testing.T) {
	assert.True(t, ContainsWord("English singer-songwriter", "singer"))
	assert.True(t, ContainsWord("Rock BAND from Leeds", "band"))
	assert.False(t, ContainsWord("Bandcamp profile", "band"))
}
