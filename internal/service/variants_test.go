package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgx-risk-server/internal/domain"
)

func TestExtractDetectedVariants(t *testing.T) {
	table := domain.NewVariantTable()
	table.Add(domain.VariantRecord{Gene: "CYP2C19", RSID: "rs4244285", Chrom: "chr10", Position: 94781859, Genotype: "0/1"})
	table.Add(domain.VariantRecord{Gene: "CYP2C19", RSID: "rs12248560", Chrom: "chr10", Position: 94761665, Genotype: "0/0"})
	table.Add(domain.VariantRecord{Gene: "CYP2D6", RSID: "rs3892097", Chrom: "chr22", Position: 42129045, Genotype: "1/1"})
	table.Add(domain.VariantRecord{Gene: "CYP2D6", RSID: "", Chrom: "chr22", Position: 42130000, Genotype: "0/1"})
	table.Add(domain.VariantRecord{Gene: "CYP2D6", RSID: "rs0000001", Chrom: "chr22", Position: 42130001, Genotype: "0/1"})

	got := ExtractDetectedVariants(table)
	require.Len(t, got, 2)

	assert.Equal(t, domain.DetectedVariant{
		Gene: "CYP2C19", RSID: "rs4244285", Chrom: "chr10", Position: 94781859,
		Genotype: "0/1", StarAllele: "*2", AlleleFunction: "no function",
	}, got[0])
	assert.Equal(t, domain.DetectedVariant{
		Gene: "CYP2D6", RSID: "rs3892097", Chrom: "chr22", Position: 42129045,
		Genotype: "1/1", StarAllele: "*4", AlleleFunction: "no function",
	}, got[1])
}

func TestExtractDetectedVariantsExplicitStar(t *testing.T) {
	table := domain.NewVariantTable()
	table.Add(domain.VariantRecord{Gene: "CYP2C19", RSID: "rs4244285", Chrom: "chr10", Position: 1, Genotype: "0/1", Star: "*17"})

	got := ExtractDetectedVariants(table)
	require.Len(t, got, 1)
	assert.Equal(t, "*17", got[0].StarAllele)
	assert.Equal(t, "increased", got[0].AlleleFunction)
}

func TestExtractDetectedVariantsEmpty(t *testing.T) {
	assert.Empty(t, ExtractDetectedVariants(nil))
	assert.Empty(t, ExtractDetectedVariants(domain.NewVariantTable()))
}
