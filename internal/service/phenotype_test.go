package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgx-risk-server/internal/domain"
)

func TestClassifyCYP2C19DirectTable(t *testing.T) {
	c := NewPhenotypeClassifier(nil)

	tests := []struct {
		diplotype string
		want      domain.Phenotype
	}{
		{"*1/*1", domain.NormalMetabolizer},
		{"*1/*2", domain.IntermediateMetabolizer},
		{"*2/*1", domain.IntermediateMetabolizer},
		{"*1/*3", domain.IntermediateMetabolizer},
		{"*2/*2", domain.PoorMetabolizer},
		{"*2/*3", domain.PoorMetabolizer},
		{"*1/*17", domain.RapidMetabolizer},
		{"*17/*17", domain.UltrarapidMetabolizer},
		{"*2/*17", domain.IntermediateMetabolizer},
		{"*3/*17", domain.IntermediateMetabolizer},
		{"*1/*99", domain.UnknownPhenotype},
	}

	for _, tt := range tests {
		t.Run(tt.diplotype, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify("CYP2C19", tt.diplotype))
		})
	}
}

func TestClassifyActivityScoreGenes(t *testing.T) {
	c := NewPhenotypeClassifier(nil)

	tests := []struct {
		name      string
		gene      string
		diplotype string
		want      domain.Phenotype
	}{
		{"cyp2c9 normal", "CYP2C9", "*1/*1", domain.NormalMetabolizer},
		{"cyp2c9 one decreased", "CYP2C9", "*1/*2", domain.IntermediateMetabolizer},
		{"cyp2c9 double decreased is IM", "CYP2C9", "*2/*2", domain.IntermediateMetabolizer},
		{"cyp2c9 one null", "CYP2C9", "*1/*3", domain.IntermediateMetabolizer},
		{"cyp2c9 decreased plus null", "CYP2C9", "*2/*3", domain.PoorMetabolizer},
		{"cyp2c9 double null", "CYP2C9", "*3/*3", domain.PoorMetabolizer},
		{"cyp2c9 unknown allele", "CYP2C9", "*1/*99", domain.UnknownPhenotype},

		{"tpmt normal", "TPMT", "*1/*1", domain.NormalMetabolizer},
		{"tpmt het null", "TPMT", "*1/*3C", domain.IntermediateMetabolizer},
		{"tpmt 3B het", "TPMT", "*1/*3B", domain.IntermediateMetabolizer},
		{"tpmt double null", "TPMT", "*2/*3C", domain.PoorMetabolizer},
		{"tpmt 3B hom scores half", "TPMT", "*3B/*3B", domain.IntermediateMetabolizer},
		{"tpmt unknown allele", "TPMT", "*1/*77", domain.UnknownPhenotype},

		{"dpyd normal", "DPYD", "*1/*1", domain.NormalMetabolizer},
		{"dpyd hapb3 het is NM at 1.5", "DPYD", "*1/*HapB3", domain.NormalMetabolizer},
		{"dpyd 2A het is IM", "DPYD", "*1/*2A", domain.IntermediateMetabolizer},
		{"dpyd hapb3 hom is IM", "DPYD", "*HapB3/*HapB3", domain.IntermediateMetabolizer},
		{"dpyd 2A plus hapb3 is PM", "DPYD", "*2A/*HapB3", domain.PoorMetabolizer},
		{"dpyd double null is PM", "DPYD", "*2A/*13", domain.PoorMetabolizer},
		{"dpyd unknown allele defaults to normal", "DPYD", "*1/*88", domain.NormalMetabolizer},

		{"cyp2d6 normal", "CYP2D6", "*1/*1", domain.NormalMetabolizer},
		{"cyp2d6 star2 normal", "CYP2D6", "*1/*2", domain.NormalMetabolizer},
		{"cyp2d6 null het is IM", "CYP2D6", "*1/*4", domain.IntermediateMetabolizer},
		{"cyp2d6 star10 het is NM", "CYP2D6", "*1/*10", domain.NormalMetabolizer},
		{"cyp2d6 star10 hom is IM", "CYP2D6", "*10/*10", domain.IntermediateMetabolizer},
		{"cyp2d6 double null is PM", "CYP2D6", "*4/*4", domain.PoorMetabolizer},
		{"cyp2d6 unknown allele", "CYP2D6", "*1/*99", domain.UnknownPhenotype},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.gene, tt.diplotype))
		})
	}
}

func TestClassifySLCO1B1AlleleCount(t *testing.T) {
	c := NewPhenotypeClassifier(nil)

	tests := []struct {
		diplotype string
		want      domain.Phenotype
	}{
		{"*1/*1", domain.NormalMetabolizer},
		{"*1/*1B", domain.NormalMetabolizer},
		{"*1/*5", domain.IntermediateMetabolizer},
		{"*1/*15", domain.IntermediateMetabolizer},
		{"*5/*5", domain.PoorMetabolizer},
		{"*5/*15", domain.PoorMetabolizer},
		{"*5/*41", domain.PoorMetabolizer},
		{"*41/*45", domain.IntermediateMetabolizer},
		{"*1/*41", domain.IntermediateMetabolizer},
	}

	for _, tt := range tests {
		t.Run(tt.diplotype, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify("SLCO1B1", tt.diplotype))
		})
	}
}

func TestClassifyMalformedInputs(t *testing.T) {
	c := NewPhenotypeClassifier(nil)

	assert.Equal(t, domain.UnknownPhenotype, c.Classify("CYP2C19", ""))
	assert.Equal(t, domain.UnknownPhenotype, c.Classify("CYP2C19", "*1"))
	assert.Equal(t, domain.UnknownPhenotype, c.Classify("CYP2C19", "/*2"))
	assert.Equal(t, domain.UnknownPhenotype, c.Classify("BRCA1", "*1/*1"))
}

func TestActivityScore(t *testing.T) {
	c := NewPhenotypeClassifier(nil)

	tests := []struct {
		name      string
		gene      string
		diplotype string
		want      *float64
	}{
		{"cyp2d6 normal", "CYP2D6", "*1/*1", f64(2.0)},
		{"cyp2d6 reduced", "CYP2D6", "*1/*10", f64(1.25)},
		{"cyp2d6 null hom", "CYP2D6", "*4/*4", f64(0.0)},
		{"cyp2d6 unknown allele yields nil", "CYP2D6", "*1/*99", nil},
		{"dpyd normal", "DPYD", "*1/*1", f64(2.0)},
		{"dpyd hapb3", "DPYD", "*1/*HapB3", f64(1.5)},
		{"dpyd unknown allele defaults to 1.0", "DPYD", "*1/*99", f64(2.0)},
		{"cyp2c19 has no score model", "CYP2C19", "*1/*1", nil},
		{"slco1b1 has no score model", "SLCO1B1", "*5/*5", nil},
		{"malformed diplotype", "CYP2D6", "*1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.ActivityScore(tt.gene, tt.diplotype)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func f64(v float64) *float64 {
	return &v
}
