package domain

// Core Enums and Types

// Phenotype represents a CPIC metabolizer phenotype category
type Phenotype string

const (
	NormalMetabolizer       Phenotype = "NM"
	IntermediateMetabolizer Phenotype = "IM"
	PoorMetabolizer         Phenotype = "PM"
	UltrarapidMetabolizer   Phenotype = "UM"
	RapidMetabolizer        Phenotype = "RM"
	UnknownPhenotype        Phenotype = "Unknown"
)

// String returns the phenotype code
func (p Phenotype) String() string {
	return string(p)
}

// RiskLabel represents the CPIC-derived risk vocabulary used in the risk tables
type RiskLabel string

const (
	RiskSafe            RiskLabel = "Safe"
	RiskAdjustDose      RiskLabel = "Adjust Dose"
	RiskAvoid           RiskLabel = "Avoid"
	RiskReducedEfficacy RiskLabel = "Reduced Efficacy"
	RiskContraindicated RiskLabel = "Contraindicated"
	RiskUnknown         RiskLabel = "Unknown"
)

// String returns the risk label text
func (r RiskLabel) String() string {
	return string(r)
}

// Action represents the simplified output action vocabulary exposed in reports
type Action string

const (
	ActionSafe         Action = "Safe"
	ActionAdjustDosage Action = "Adjust Dosage"
	ActionToxic        Action = "Toxic"
	ActionUnknown      Action = "Unknown"
)

// String returns the action text
func (a Action) String() string {
	return string(a)
}

// Severity represents clinical urgency attached to a risk label
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// String returns the severity text
func (s Severity) String() string {
	return string(s)
}

// RiskCategory represents the bucketed risk-score category
type RiskCategory string

const (
	CategoryCritical RiskCategory = "critical"
	CategoryHigh     RiskCategory = "high"
	CategoryModerate RiskCategory = "moderate"
	CategoryLow      RiskCategory = "low"
	CategoryMinimal  RiskCategory = "minimal"
)

// String returns the category text
func (c RiskCategory) String() string {
	return string(c)
}

// EvidenceLevel represents the CPIC strength-of-evidence grade
type EvidenceLevel string

const (
	EvidenceA   EvidenceLevel = "A"
	EvidenceB   EvidenceLevel = "B"
	EvidenceC   EvidenceLevel = "C"
	EvidenceNA  EvidenceLevel = "N/A"
)

// String returns the evidence level text
func (e EvidenceLevel) String() string {
	return string(e)
}

// Data-quality and uncertainty flags. Names match the penalty table in the
// risk scorer so that flags derived by the pipeline automatically pick up the
// correct penalty.
const (
	FlagMissingCNV        = "missing_cnv"
	FlagUnknownStar       = "unknown_star"
	FlagNoPhase           = "no_phase"
	FlagCompoundUncertain = "compound_uncertain"
	FlagHapB3ProxyOnly    = "HapB3_proxy_only"
	FlagPipelineError     = "pipeline_error"
)

// Supported pharmacogenes
const (
	GeneCYP2D6  = "CYP2D6"
	GeneCYP2C19 = "CYP2C19"
	GeneCYP2C9  = "CYP2C9"
	GeneSLCO1B1 = "SLCO1B1"
	GeneTPMT    = "TPMT"
	GeneDPYD    = "DPYD"
)

// PGxGenes is the closed set of genes the engine annotates
var PGxGenes = map[string]bool{
	GeneCYP2D6:  true,
	GeneCYP2C19: true,
	GeneCYP2C9:  true,
	GeneSLCO1B1: true,
	GeneTPMT:    true,
	GeneDPYD:    true,
}

// ReferenceAllele is the default star allele assumed when no variant is observed
const ReferenceAllele = "*1"
