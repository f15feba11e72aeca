package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"empty", "", ""},
		{"plain", "Red Lion", "RED LION"},
		{"ampersand expanded", "The Crown & Anchor", "THE CROWN AND ANCHOR"},
		{"ltd suffix stripped", "The Crown & Anchor LTD", "THE CROWN AND ANCHOR"},
		{"limited suffix stripped", "Brick Lane Bagels Limited", "BRICK LANE BAGELS"},
		{"suffix with punctuation", "Pret a Manger Ltd.", "PRET A MANGER"},
		{"suffix only at end", "Limited Edition Cafe", "LIMITED EDITION CAFE"},
		{"punctuation removed", "Nando's (Soho)", "NANDOS SOHO"},
		{"whitespace collapsed", "  Pizza   Express  ", "PIZZA EXPRESS"},
		{"diacritics folded", "Café Rouge", "CAFE ROUGE"},
		{"stacked suffixes", "The Ivy Ltd Limited", "THE IVY"},
		{"digits kept", "5 Guys", "5 GUYS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Name(tt.in))
		})
	}
}

func TestNameIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"The Crown & Anchor LTD",
		"Café Rouge Ltd.",
		"  Dishoom   Covent  Garden ",
		"Honest Burgers Limited Limited",
		"L'Escargot",
	}
	for _, in := range inputs {
		once := Name(in)
		assert.Equal(t, once, Name(once), "Name not idempotent for %q", in)
	}
}

func TestPostcode(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"empty", "", ""},
		{"already canonical", "SW1A1AA", "SW1A1AA"},
		{"inner space removed", "SW1A 1AA", "SW1A1AA"},
		{"lowercase folded", "ec2a 3lt", "EC2A3LT"},
		{"padded", "  n1  9gu  ", "N19GU"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Postcode(tt.in))
		})
	}
}

func TestPostcodeIdempotent(t *testing.T) {
	for _, in := range []string{"", "SW1A 1AA", "ec2a 3lt"} {
		once := Postcode(in)
		assert.Equal(t, once, Postcode(once))
	}
}

func TestAddress(t *testing.T) {
	assert.Equal(t, "1REGENTST,LONDONSW1A1AA", Address("1 Regent St, London SW1A 1AA"))
	assert.Contains(t, Address("1 Regent St, London SW1A 1AA"), Postcode("SW1A 1AA"))
}
