package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
	"github.com/pgx-risk-server/internal/reference"
)

// geneModel classifies one gene's diplotype into a phenotype
type geneModel interface {
	Classify(allele1, allele2 string) domain.Phenotype
}

// directLookupModel resolves phenotypes from an explicit diplotype table
type directLookupModel struct {
	table map[string]domain.Phenotype
}

func (m *directLookupModel) Classify(allele1, allele2 string) domain.Phenotype {
	if pheno, ok := m.table[allele1+"/"+allele2]; ok {
		return pheno
	}
	return domain.UnknownPhenotype
}

// scoreThreshold is one rung of a descending activity-score ladder
type scoreThreshold struct {
	min       float64
	inclusive bool
	phenotype domain.Phenotype
}

// activityScoreModel sums per-allele activity values and buckets the total
// through a descending threshold ladder. Genes differ in how a missing
// allele is treated: most become Unknown, DPYD defaults to normal activity.
type activityScoreModel struct {
	activity       map[string]float64
	defaultUnknown bool
	ladder         []scoreThreshold
	floor          domain.Phenotype
}

func (m *activityScoreModel) Classify(allele1, allele2 string) domain.Phenotype {
	score, ok := m.score(allele1, allele2)
	if !ok {
		return domain.UnknownPhenotype
	}
	for _, t := range m.ladder {
		if score > t.min || (t.inclusive && score == t.min) {
			return t.phenotype
		}
	}
	return m.floor
}

func (m *activityScoreModel) score(allele1, allele2 string) (float64, bool) {
	v1, ok1 := m.activity[allele1]
	v2, ok2 := m.activity[allele2]
	if !ok1 || !ok2 {
		if m.defaultUnknown {
			return 0, false
		}
		if !ok1 {
			v1 = 1.0
		}
		if !ok2 {
			v2 = 1.0
		}
	}
	return v1 + v2, true
}

// slco1b1Model counts reduced-function alleles instead of summing activity.
// Two no-function alleles, or one no-function plus one decreased-function
// allele, make a poor metabolizer; any other reduced pair stays intermediate.
type slco1b1Model struct{}

func (m *slco1b1Model) Classify(allele1, allele2 string) domain.Phenotype {
	countNF := boolToInt(reference.SLCO1B1NoFunction[allele1]) + boolToInt(reference.SLCO1B1NoFunction[allele2])
	countDF := boolToInt(reference.SLCO1B1DecreasedFunction[allele1]) + boolToInt(reference.SLCO1B1DecreasedFunction[allele2])

	total := countNF + countDF
	if total == 0 {
		return domain.NormalMetabolizer
	}
	if total == 1 {
		return domain.IntermediateMetabolizer
	}
	if countNF >= 2 || (countNF >= 1 && countDF >= 1) {
		return domain.PoorMetabolizer
	}
	return domain.IntermediateMetabolizer
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// PhenotypeClassifier maps gene diplotypes to CPIC phenotypes using
// per-gene classification models
type PhenotypeClassifier struct {
	logger *logrus.Logger
	models map[string]geneModel
}

// NewPhenotypeClassifier creates a classifier with all gene models registered
func NewPhenotypeClassifier(logger *logrus.Logger) *PhenotypeClassifier {
	c := &PhenotypeClassifier{
		logger: logger,
		models: make(map[string]geneModel),
	}
	c.registerModels()
	return c
}

func (c *PhenotypeClassifier) registerModels() {
	c.models[domain.GeneCYP2C19] = &directLookupModel{table: map[string]domain.Phenotype{
		"*1/*1":   domain.NormalMetabolizer,
		"*1/*2":   domain.IntermediateMetabolizer,
		"*2/*1":   domain.IntermediateMetabolizer,
		"*1/*3":   domain.IntermediateMetabolizer,
		"*3/*1":   domain.IntermediateMetabolizer,
		"*2/*2":   domain.PoorMetabolizer,
		"*3/*3":   domain.PoorMetabolizer,
		"*2/*3":   domain.PoorMetabolizer,
		"*3/*2":   domain.PoorMetabolizer,
		"*1/*17":  domain.RapidMetabolizer,
		"*17/*1":  domain.RapidMetabolizer,
		"*17/*17": domain.UltrarapidMetabolizer,
		"*2/*17":  domain.IntermediateMetabolizer,
		"*17/*2":  domain.IntermediateMetabolizer,
		"*3/*17":  domain.IntermediateMetabolizer,
		"*17/*3":  domain.IntermediateMetabolizer,
	}}

	c.models[domain.GeneCYP2C9] = &activityScoreModel{
		activity:       reference.CYP2C9Activity,
		defaultUnknown: true,
		ladder: []scoreThreshold{
			{min: 2.0, inclusive: true, phenotype: domain.NormalMetabolizer},
			{min: 1.0, inclusive: true, phenotype: domain.IntermediateMetabolizer},
		},
		floor: domain.PoorMetabolizer,
	}

	c.models[domain.GeneTPMT] = &activityScoreModel{
		activity:       reference.TPMTActivity,
		defaultUnknown: true,
		ladder: []scoreThreshold{
			{min: 2.0, inclusive: true, phenotype: domain.NormalMetabolizer},
			{min: 0.0, inclusive: false, phenotype: domain.IntermediateMetabolizer},
		},
		floor: domain.PoorMetabolizer,
	}

	c.models[domain.GeneDPYD] = &activityScoreModel{
		activity:       reference.DPYDActivity,
		defaultUnknown: false,
		ladder: []scoreThreshold{
			{min: 1.5, inclusive: true, phenotype: domain.NormalMetabolizer},
			{min: 0.5, inclusive: false, phenotype: domain.IntermediateMetabolizer},
		},
		floor: domain.PoorMetabolizer,
	}

	c.models[domain.GeneCYP2D6] = &activityScoreModel{
		activity:       reference.CYP2D6Activity,
		defaultUnknown: true,
		ladder: []scoreThreshold{
			{min: 2.25, inclusive: false, phenotype: domain.UltrarapidMetabolizer},
			{min: 1.0, inclusive: false, phenotype: domain.NormalMetabolizer},
			{min: 0.0, inclusive: false, phenotype: domain.IntermediateMetabolizer},
		},
		floor: domain.PoorMetabolizer,
	}

	c.models[domain.GeneSLCO1B1] = &slco1b1Model{}
}

// Classify resolves the phenotype for a gene and rendered diplotype string
func (c *PhenotypeClassifier) Classify(gene, diplotype string) domain.Phenotype {
	gene = strings.TrimSpace(gene)
	allele1, allele2, ok := splitDiplotype(diplotype)
	if !ok {
		return domain.UnknownPhenotype
	}
	model, found := c.models[gene]
	if !found {
		return domain.UnknownPhenotype
	}
	pheno := model.Classify(allele1, allele2)
	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"gene":      gene,
			"diplotype": diplotype,
			"phenotype": pheno,
		}).Debug("Phenotype classified")
	}
	return pheno
}

// ActivityScore returns the numeric activity score for genes that define
// per-allele activity values for reporting (CYP2D6 and DPYD). CYP2D6 yields
// nil when either allele has no activity value; DPYD defaults an unknown
// allele to normal activity. All other genes yield nil.
func (c *PhenotypeClassifier) ActivityScore(gene, diplotype string) *float64 {
	gene = strings.ToUpper(strings.TrimSpace(gene))
	allele1, allele2, ok := splitDiplotype(diplotype)
	if !ok {
		return nil
	}

	switch gene {
	case domain.GeneCYP2D6:
		v1, ok1 := reference.CYP2D6Activity[allele1]
		v2, ok2 := reference.CYP2D6Activity[allele2]
		if !ok1 || !ok2 {
			return nil
		}
		score := v1 + v2
		return &score
	case domain.GeneDPYD:
		v1, ok1 := reference.DPYDActivity[allele1]
		v2, ok2 := reference.DPYDActivity[allele2]
		if !ok1 {
			v1 = 1.0
		}
		if !ok2 {
			v2 = 1.0
		}
		score := v1 + v2
		return &score
	}
	return nil
}

func splitDiplotype(diplotype string) (string, string, bool) {
	text := strings.TrimSpace(diplotype)
	if text == "" {
		return "", "", false
	}
	idx := strings.Index(text, "/")
	if idx < 0 {
		return "", "", false
	}
	left := strings.TrimSpace(text[:idx])
	right := strings.TrimSpace(text[idx+1:])
	if left == "" || right == "" {
		return "", "", false
	}
	return left, right, true
}
