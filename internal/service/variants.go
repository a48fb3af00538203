package service

import (
	"strings"

	"github.com/pgx-risk-server/internal/domain"
	"github.com/pgx-risk-server/internal/reference"
)

// ExtractDetectedVariants walks the variant table in gene first-occurrence
// order and returns one annotated entry per non-reference, star-resolvable
// row. Rows with a reference genotype, no rsID, or no resolvable star allele
// are skipped. An explicit star annotation on the row takes precedence over
// the rsID lookup.
func ExtractDetectedVariants(table *domain.VariantTable) []domain.DetectedVariant {
	detected := make([]domain.DetectedVariant, 0)
	if table == nil {
		return detected
	}

	for _, gene := range table.Order {
		for _, row := range table.Genes[gene] {
			if NormalizeGenotype(row.Genotype) == ReferenceGenotype {
				continue
			}
			if row.RSID == "" {
				continue
			}

			star := strings.TrimSpace(row.Star)
			if star == "" || star == "." {
				var ok bool
				star, ok = reference.StarForVariant(gene, row.RSID)
				if !ok {
					continue
				}
			}

			detected = append(detected, domain.DetectedVariant{
				Gene:           gene,
				RSID:           row.RSID,
				Chrom:          row.Chrom,
				Position:       row.Position,
				Genotype:       row.Genotype,
				StarAllele:     star,
				AlleleFunction: reference.AlleleFunction(gene, star),
			})
		}
	}
	return detected
}
