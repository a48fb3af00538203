package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
	"github.com/pgx-risk-server/internal/reference"
)

// Diplotype note fragments. The flag derivation in the pipeline keys off
// these strings, so they must stay stable.
const (
	noteUnphasedTrans = "Unphased: trans assumed"
	noteHapB3Proxy    = "HapB3 called from proxy tag " + reference.DPYDHapB3Proxy + " only"
	noteSLCO1B1Cis    = "Unphased: *15 (cis) assumed from " + reference.SLCO1B1Rs4149056 +
		" + " + reference.SLCO1B1Rs2306283 + " co-occurrence"
)

// DiplotypeCaller resolves a star-allele pair for one gene from its observed
// variant rows
type DiplotypeCaller struct {
	logger *logrus.Logger
}

// NewDiplotypeCaller creates a diplotype caller
func NewDiplotypeCaller(logger *logrus.Logger) *DiplotypeCaller {
	return &DiplotypeCaller{logger: logger}
}

// starObservation tracks the strongest zygosity seen for one star allele
type starObservation struct {
	star     string
	genotype string // "0/1" or "1/1"
}

// Call computes the diplotype for gene from its variant rows. Resolution
// rules, in precedence order:
//
//  1. Homozygous non-reference stars dominate; the first one observed is
//     rendered as star/star.
//  2. A single heterozygous star yields *1/star.
//  3. Two or more heterozygous stars yield the first two in observation
//     order with an unphased trans-assumed note.
//
// A star seen homozygous is never downgraded by a later heterozygous row.
// Gene-specific compound rules for SLCO1B1 and DPYD HapB3 apply afterwards.
func (c *DiplotypeCaller) Call(gene string, rows []domain.VariantRecord) domain.DiplotypeResult {
	starMap := reference.StarDefinitions[gene]

	var (
		observed        []starObservation
		hapB3Causal     bool
		hapB3ProxyOnly  bool
	)

	for _, row := range rows {
		genotype := NormalizeGenotype(row.Genotype)
		if genotype == ReferenceGenotype {
			continue
		}

		// Explicit star annotation on the row wins over the rsID lookup.
		star := strings.TrimSpace(row.Star)
		if star == "" || star == "." {
			if row.RSID == "" {
				continue
			}
			var ok bool
			star, ok = starMap[row.RSID]
			if !ok {
				continue
			}
		}

		if gene == domain.GeneDPYD && star == "*HapB3" {
			switch row.RSID {
			case reference.DPYDHapB3Causal:
				hapB3Causal = true
			case reference.DPYDHapB3Proxy:
				hapB3ProxyOnly = true
			}
		}

		idx := -1
		for i, obs := range observed {
			if obs.star == star {
				idx = i
				break
			}
		}
		if idx == -1 {
			observed = append(observed, starObservation{star: star, genotype: genotype})
		} else if observed[idx].genotype != "1/1" {
			observed[idx].genotype = genotype
		}
	}

	var homStars, hetStars []string
	for _, obs := range observed {
		if obs.star == domain.ReferenceAllele {
			continue
		}
		if obs.genotype == "1/1" {
			homStars = append(homStars, obs.star)
		} else {
			hetStars = append(hetStars, obs.star)
		}
	}

	result := domain.DiplotypeResult{
		Gene:    gene,
		Allele1: domain.ReferenceAllele,
		Allele2: domain.ReferenceAllele,
	}
	var noteParts []string

	switch {
	case len(homStars) > 0:
		result.Allele1 = homStars[0]
		result.Allele2 = homStars[0]
	case len(hetStars) == 1:
		result.Allele2 = hetStars[0]
	case len(hetStars) >= 2:
		result.Allele1 = hetStars[0]
		result.Allele2 = hetStars[1]
		noteParts = append(noteParts, noteUnphasedTrans)
	}

	if gene == domain.GeneSLCO1B1 {
		result, noteParts = c.applySLCO1B1CompoundRule(result, homStars, hetStars, noteParts)
	}
	if gene == domain.GeneDPYD && hapB3ProxyOnly && !hapB3Causal {
		noteParts = append(noteParts, noteHapB3Proxy)
	}

	result.Note = strings.Join(noteParts, "; ")

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"gene":      gene,
			"diplotype": result.String(),
			"note":      result.Note,
		}).Debug("Diplotype resolved")
	}
	return result
}

// applySLCO1B1CompoundRule merges heterozygous *5 and *1B observations into
// the compound *15 haplotype. With no phasing data the two variants are
// assumed to sit in cis, so the pair collapses to *1/*15 and the generic
// trans-assumed note is replaced with the cis-assumption note.
func (c *DiplotypeCaller) applySLCO1B1CompoundRule(
	result domain.DiplotypeResult,
	homStars, hetStars []string,
	noteParts []string,
) (domain.DiplotypeResult, []string) {
	if len(homStars) > 0 {
		return result, noteParts
	}
	has5, has1B := false, false
	for _, s := range hetStars {
		switch s {
		case "*5":
			has5 = true
		case "*1B":
			has1B = true
		}
	}
	if !has5 || !has1B {
		return result, noteParts
	}

	result.Allele1 = domain.ReferenceAllele
	result.Allele2 = "*15"

	filtered := noteParts[:0]
	for _, n := range noteParts {
		if n != noteUnphasedTrans {
			filtered = append(filtered, n)
		}
	}
	return result, append(filtered, noteSLCO1B1Cis)
}
