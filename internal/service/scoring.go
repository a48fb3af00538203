package service

import (
	"math"
	"strings"

	"github.com/pgx-risk-server/internal/domain"
)

// Risk score formula:
//
//	raw        = severity_weight × evidence_confidence × phenotype_factor × context_multiplier
//	risk_score = clamp(raw × (1 − missing_data_penalty), 0.0, 1.0)
//
// Every multiplier and penalty is returned in the components so reviewers
// can audit exactly how the number was produced.

// severityWeights maps severity to a numeric weight in [0, 1]. "moderate" is
// raised to 0.60 vs a naive 0.50 to separate it from low-boundary drugs.
var severityWeights = map[string]float64{
	"critical": 1.00,
	"high":     0.80,
	"moderate": 0.60,
	"low":      0.30,
	"minimal":  0.10,
	"none":     0.00,
	"unknown":  0.40,
}

const defaultSeverityWeight = 0.40

// evidenceConfidence maps CPIC evidence levels to confidence fractions
var evidenceConfidence = map[string]float64{
	"A":       0.95,
	"B":       0.75,
	"C":       0.55,
	"N/A":     0.60,
	"UNKNOWN": 0.60,
}

const defaultEvidenceConfidence = 0.60

// phenotypeFactor adjusts risk magnitude by phenotype. PM/UM are the extreme
// ends; IM/RM are intermediate; NM is baseline. The CPIC risk label already
// encodes directionality, so this factor adjusts magnitude, not direction.
var phenotypeFactor = map[domain.Phenotype]float64{
	domain.PoorMetabolizer:         1.00,
	domain.UltrarapidMetabolizer:   1.00,
	domain.IntermediateMetabolizer: 0.70,
	domain.RapidMetabolizer:        0.70,
	domain.NormalMetabolizer:       0.30,
	domain.UnknownPhenotype:        0.50,
}

// penaltyMap assigns each data-quality flag a penalty fraction. Penalties
// are summed and capped at 0.90.
var penaltyMap = map[string]float64{
	domain.FlagMissingCNV:        0.20,
	domain.FlagUnknownStar:       0.25,
	domain.FlagNoPhase:           0.15,
	domain.FlagCompoundUncertain: 0.15,
	domain.FlagHapB3ProxyOnly:    0.10,
	domain.FlagPipelineError:     0.90,
}

const maxPenalty = 0.90

// Context note identifiers
const (
	noteStrongCoMed       = "strong_interacting_co_med"
	noteRenalImpairment   = "renal_impairment"
	noteHepaticImpairment = "hepatic_impairment"
	noteAdvancedAge       = "advanced_age"
)

const advancedAgeThreshold = 75

// RiskScorer computes the deterministic risk score for one drug annotation
type RiskScorer struct{}

// NewRiskScorer creates a risk scorer
func NewRiskScorer() *RiskScorer {
	return &RiskScorer{}
}

// MissingDataPenalty sums the penalties for the given flags, capped at 0.90.
// Unrecognized flags contribute nothing.
func (s *RiskScorer) MissingDataPenalty(flags []string) float64 {
	total := 0.0
	for _, flag := range flags {
		total += penaltyMap[flag]
	}
	return math.Min(total, maxPenalty)
}

// ContextMultiplier returns a multiplier ≥ 1.0 and the names of the context
// rules that fired, in fixed rule order:
//
//	strong relevant co-medication inhibitor ×1.25
//	renal impairment                        ×1.10
//	hepatic impairment                      ×1.10
//	advanced age (≥75)                      ×1.05
func (s *RiskScorer) ContextMultiplier(ctx *domain.PatientContext) (float64, []string) {
	multiplier := 1.0
	var notes []string
	if ctx == nil {
		return multiplier, notes
	}

	inhibitors := make(map[string]bool, len(ctx.StrongRelevantInhibitors))
	for _, name := range ctx.StrongRelevantInhibitors {
		inhibitors[strings.ToLower(strings.TrimSpace(name))] = true
	}
	for _, med := range ctx.CoMedications {
		if inhibitors[strings.ToLower(strings.TrimSpace(med))] {
			multiplier *= 1.25
			notes = append(notes, noteStrongCoMed)
			break
		}
	}

	if ctx.RenalImpairment {
		multiplier *= 1.10
		notes = append(notes, noteRenalImpairment)
	}
	if ctx.HepaticImpairment {
		multiplier *= 1.10
		notes = append(notes, noteHepaticImpairment)
	}
	if ctx.Age != nil && *ctx.Age >= advancedAgeThreshold {
		multiplier *= 1.05
		notes = append(notes, noteAdvancedAge)
	}

	return multiplier, notes
}

// Score computes the risk score and category from severity, evidence level,
// phenotype, flags and optional patient context
func (s *RiskScorer) Score(
	severity domain.Severity,
	evidence domain.EvidenceLevel,
	phenotype domain.Phenotype,
	flags []string,
	ctx *domain.PatientContext,
) domain.RiskScore {
	sevW, ok := severityWeights[strings.ToLower(string(severity))]
	if !ok {
		sevW = defaultSeverityWeight
	}
	evConf, ok := evidenceConfidence[strings.ToUpper(string(evidence))]
	if !ok {
		evConf = defaultEvidenceConfidence
	}
	phenF, ok := phenotypeFactor[phenotype]
	if !ok {
		phenF = phenotypeFactor[domain.UnknownPhenotype]
	}

	contextMult, contextNotes := s.ContextMultiplier(ctx)
	penalty := s.MissingDataPenalty(flags)

	raw := sevW * evConf * phenF * contextMult
	adjusted := clamp(raw * (1.0 - penalty))

	return domain.RiskScore{
		Score:    round4(adjusted),
		Category: scoreToCategory(adjusted),
		Components: domain.RiskComponents{
			SeverityWeight:     sevW,
			EvidenceConfidence: evConf,
			PhenotypeFactor:    phenF,
			ContextMultiplier:  round4(contextMult),
			ContextNotes:       contextNotes,
			PenaltyTotal:       penalty,
			AppliedFlags:       flags,
			RawScore:           round4(raw),
		},
	}
}

func scoreToCategory(score float64) domain.RiskCategory {
	switch {
	case score >= 0.80:
		return domain.CategoryCritical
	case score >= 0.60:
		return domain.CategoryHigh
	case score >= 0.40:
		return domain.CategoryModerate
	case score >= 0.20:
		return domain.CategoryLow
	default:
		return domain.CategoryMinimal
	}
}

func clamp(x float64) float64 {
	return math.Max(0.0, math.Min(1.0, x))
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
