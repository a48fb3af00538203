package service

import "testing"

func TestNormalizeGenotype(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", "0/0"},
		{"missing genotype", "./.", "0/0"},
		{"hom ref", "0/0", "0/0"},
		{"het", "0/1", "0/1"},
		{"hom alt", "1/1", "1/1"},
		{"het reversed order", "1/0", "0/1"},
		{"phased het", "0|1", "0/1"},
		{"phased hom", "1|1", "1/1"},
		{"multiallelic index collapses", "0/2", "0/1"},
		{"negative index treated as ref", "-1/1", "0/1"},
		{"partial missing allele", "./1", "0/1"},
		{"whitespace", "  0/1  ", "0/1"},
		{"inner whitespace", "0 / 1", "0/1"},
		{"garbage allele", "x/1", "0/1"},
		{"no separator", "01", "0/0"},
		{"triploid rejected", "0/1/1", "0/0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeGenotype(tt.input); got != tt.want {
				t.Errorf("NormalizeGenotype(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
