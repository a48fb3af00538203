package domain

import (
	"fmt"
	"sort"
)

// VariantRecord is one normalized row of the per-gene variant table
type VariantRecord struct {
	Gene     string `json:"gene"`
	RSID     string `json:"rsid"`
	Chrom    string `json:"chrom"`
	Position int    `json:"position"`
	Genotype string `json:"genotype"`
	Star     string `json:"star,omitempty"`
}

// VariantTable is the normalized per-gene variant table produced by the VCF
// parser. Order preserves first-occurrence gene order from the input so that
// downstream output is byte-stable across runs.
type VariantTable struct {
	Genes map[string][]VariantRecord `json:"genes"`
	Order []string                   `json:"order"`
}

// NewVariantTable returns an empty variant table
func NewVariantTable() *VariantTable {
	return &VariantTable{Genes: make(map[string][]VariantRecord)}
}

// Add appends a record under its gene, tracking first-occurrence order
func (t *VariantTable) Add(rec VariantRecord) {
	if _, ok := t.Genes[rec.Gene]; !ok {
		t.Order = append(t.Order, rec.Gene)
	}
	t.Genes[rec.Gene] = append(t.Genes[rec.Gene], rec)
}

// TotalVariants returns the number of records across all genes
func (t *VariantTable) TotalVariants() int {
	n := 0
	for _, recs := range t.Genes {
		n += len(recs)
	}
	return n
}

// GenesCovered returns the sorted list of genes present in the table
func (t *VariantTable) GenesCovered() []string {
	genes := make([]string, 0, len(t.Genes))
	for g := range t.Genes {
		genes = append(genes, g)
	}
	sort.Strings(genes)
	return genes
}

// Validate checks structural integrity of the table
func (t *VariantTable) Validate() error {
	if t.Genes == nil {
		return fmt.Errorf("%w: nil gene map", ErrMalformedTable)
	}
	for gene, recs := range t.Genes {
		if !PGxGenes[gene] {
			return fmt.Errorf("%w: unsupported gene %q", ErrMalformedTable, gene)
		}
		for _, rec := range recs {
			if rec.Genotype == "" {
				return fmt.Errorf("%w: empty genotype for %s %s", ErrMalformedTable, gene, rec.RSID)
			}
		}
	}
	return nil
}

// DiplotypeResult is a called star-allele pair for one gene
type DiplotypeResult struct {
	Gene    string `json:"gene"`
	Allele1 string `json:"allele1"`
	Allele2 string `json:"allele2"`
	Note    string `json:"note,omitempty"`
}

// String renders the diplotype in star/star form
func (d DiplotypeResult) String() string {
	return d.Allele1 + "/" + d.Allele2
}

// PhenotypeResult is the classified phenotype for one gene
type PhenotypeResult struct {
	Gene          string    `json:"gene"`
	Diplotype     string    `json:"diplotype"`
	Phenotype     Phenotype `json:"phenotype"`
	ActivityScore *float64  `json:"activity_score,omitempty"`
}

// DetectedVariant is one observed non-reference variant annotated with its
// star allele and allele function for the report's variant list
type DetectedVariant struct {
	Gene           string `json:"gene"`
	RSID           string `json:"rsid"`
	Chrom          string `json:"chrom"`
	Position       int    `json:"position"`
	Genotype       string `json:"genotype"`
	StarAllele     string `json:"star_allele"`
	AlleleFunction string `json:"allele_function"`
}

// DrugRisk is one CPIC risk table entry resolved for a gene/drug/phenotype
type DrugRisk struct {
	Gene           string        `json:"gene"`
	Drug           string        `json:"drug"`
	Phenotype      Phenotype     `json:"phenotype"`
	RiskLabel      RiskLabel     `json:"risk_label"`
	Severity       Severity      `json:"severity"`
	Confidence     float64       `json:"confidence"`
	Evidence       EvidenceLevel `json:"evidence"`
	CPICVersion    string        `json:"cpic_version"`
	Recommendation string        `json:"recommendation"`
}

// RiskComponents records every factor that entered the risk score, for audit
type RiskComponents struct {
	SeverityWeight     float64  `json:"severity_weight"`
	EvidenceConfidence float64  `json:"evidence_confidence"`
	PhenotypeFactor    float64  `json:"phenotype_factor"`
	ContextMultiplier  float64  `json:"context_multiplier"`
	ContextNotes       []string `json:"context_notes,omitempty"`
	PenaltyTotal       float64  `json:"penalty_total"`
	AppliedFlags       []string `json:"applied_flags,omitempty"`
	RawScore           float64  `json:"raw_score"`
}

// RiskScore is the final multiplicative risk score and its category
type RiskScore struct {
	Score      float64        `json:"score"`
	Category   RiskCategory   `json:"category"`
	Components RiskComponents `json:"components"`
}

// PatientContext carries optional clinical context that modulates the score
type PatientContext struct {
	CoMedications            []string `json:"co_medications,omitempty"`
	StrongRelevantInhibitors []string `json:"strong_relevant_inhibitors,omitempty"`
	RenalImpairment          bool     `json:"renal_impairment,omitempty"`
	HepaticImpairment        bool     `json:"hepatic_impairment,omitempty"`
	Age                      *int     `json:"age,omitempty"`
}

// RiskAssessment is the risk section of a report
type RiskAssessment struct {
	RiskLabel       Action   `json:"risk_label"`
	ConfidenceScore float64  `json:"confidence_score"`
	Severity        Severity `json:"severity"`
}

// PharmacogenomicProfile is the genotype section of a report
type PharmacogenomicProfile struct {
	PrimaryGene      string            `json:"primary_gene"`
	Diplotype        string            `json:"diplotype"`
	Phenotype        Phenotype         `json:"phenotype"`
	ActivityScore    *float64          `json:"activity_score,omitempty"`
	DetectedVariants []DetectedVariant `json:"detected_variants"`
	Flags            []string          `json:"flags,omitempty"`
	Notes            string            `json:"notes,omitempty"`
}

// Citation is a structured CPIC guideline reference parsed from the
// guideline version string
type Citation struct {
	Source           string `json:"source"`
	GuidelineVersion string `json:"guideline_version"`
	DOI              string `json:"doi,omitempty"`
	URL              string `json:"url,omitempty"`
}

// ClinicalRecommendation is the recommendation section of a report
type ClinicalRecommendation struct {
	CPICGuideline    string    `json:"cpic_guideline"`
	Citation         *Citation `json:"supporting_citation,omitempty"`
	DataQualityNotes string    `json:"data_quality_notes,omitempty"`
	Action           Action    `json:"action"`
}

// QualityMetrics summarizes input parsing quality
type QualityMetrics struct {
	VCFParsingSuccess bool `json:"vcf_parsing_success"`
	TotalVariants     int  `json:"total_variants"`
	GenesCovered      int  `json:"genes_covered"`
}

// Report is one complete drug-risk annotation for a patient and drug
type Report struct {
	ID                  string                 `json:"id,omitempty"`
	PatientID           string                 `json:"patient_id"`
	Drug                string                 `json:"drug"`
	Timestamp           string                 `json:"timestamp"`
	RiskAssessment      RiskAssessment         `json:"risk_assessment"`
	Profile             PharmacogenomicProfile `json:"pharmacogenomic_profile"`
	Recommendation      ClinicalRecommendation `json:"clinical_recommendation"`
	Explanation         map[string]any         `json:"llm_generated_explanation,omitempty"`
	QualityMetrics      QualityMetrics         `json:"quality_metrics"`
	RequireManualReview bool                   `json:"require_manual_review"`
	RiskScore           *RiskScore             `json:"risk_score,omitempty"`
}

// Finalize strips internal working fields not exposed in client-facing output
func (r *Report) Finalize() {
	r.Profile.Flags = nil
	r.Profile.Notes = ""
	r.Profile.ActivityScore = nil
}
