package service

import (
	"strconv"
	"strings"
)

// ReferenceGenotype is the normalized form of an uninformative genotype
const ReferenceGenotype = "0/0"

// NormalizeGenotype collapses a raw VCF genotype string into one of the three
// canonical forms "0/0", "0/1" or "1/1". Both "/" and "|" separators are
// accepted; phasing information is discarded. Missing, malformed or
// non-biallelic values normalize to "0/0", and any allele index above 1 is
// treated as a generic alternate allele.
func NormalizeGenotype(genotype string) string {
	text := strings.TrimSpace(genotype)
	if text == "" || text == "./." {
		return ReferenceGenotype
	}

	var sep string
	switch {
	case strings.Contains(text, "/"):
		sep = "/"
	case strings.Contains(text, "|"):
		sep = "|"
	default:
		return ReferenceGenotype
	}

	parts := strings.Split(text, sep)
	if len(parts) != 2 {
		return ReferenceGenotype
	}

	alleles := make([]int, 0, 2)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "." {
			alleles = append(alleles, 0)
			continue
		}
		val, err := strconv.Atoi(p)
		if err != nil {
			alleles = append(alleles, 0)
			continue
		}
		if val <= 0 {
			alleles = append(alleles, 0)
		} else {
			alleles = append(alleles, 1)
		}
	}

	if alleles[0] > alleles[1] {
		alleles[0], alleles[1] = alleles[1], alleles[0]
	}
	return strconv.Itoa(alleles[0]) + "/" + strconv.Itoa(alleles[1])
}
