package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
	"github.com/pgx-risk-server/internal/reference"
)

var (
	doiPattern  = regexp.MustCompile(`DOI:([^)]+)`)
	yearPattern = regexp.MustCompile(`CPIC (\d{4})`)
)

// AnnotateParams carries one annotation request
type AnnotateParams struct {
	Table     *domain.VariantTable
	ParseOK   bool
	PatientID string
	Drugs     []string
	Context   *domain.PatientContext
}

// Annotator orchestrates the full drug-risk annotation: diplotype calling,
// phenotype classification, CPIC risk lookup, risk scoring and report
// assembly. The variant table is processed once and reused across drugs.
type Annotator struct {
	logger     *logrus.Logger
	diplotypes *DiplotypeCaller
	phenotypes *PhenotypeClassifier
	scorer     *RiskScorer
	now        func() time.Time
}

// NewAnnotator creates an annotator with all stages wired
func NewAnnotator(logger *logrus.Logger) *Annotator {
	return &Annotator{
		logger:     logger,
		diplotypes: NewDiplotypeCaller(logger),
		phenotypes: NewPhenotypeClassifier(logger),
		scorer:     NewRiskScorer(),
		now:        time.Now,
	}
}

// geneCall is the cached per-gene result shared by drugs within one request
type geneCall struct {
	diplotype domain.DiplotypeResult
	phenotype domain.Phenotype
}

// Annotate produces one report per requested drug. The per-gene diplotype
// and phenotype are computed at most once per request; output order matches
// the input drug order. Identical inputs yield byte-identical reports except
// for the timestamp.
func (a *Annotator) Annotate(params AnnotateParams) []domain.Report {
	timestamp := a.now().UTC().Format(time.RFC3339)
	patientID := params.PatientID
	if patientID == "" {
		patientID = "unknown"
	}

	var (
		detected     []domain.DetectedVariant
		totalVars    int
		genesCovered int
	)
	if params.ParseOK && params.Table != nil {
		detected = ExtractDetectedVariants(params.Table)
		totalVars = params.Table.TotalVariants()
		genesCovered = len(params.Table.Genes)
	}

	cache := make(map[string]geneCall)
	reports := make([]domain.Report, 0, len(params.Drugs))

	for _, drug := range params.Drugs {
		drugKey := strings.ToUpper(strings.TrimSpace(drug))

		gene, ok := reference.GeneForDrug(drugKey)
		if !ok {
			reports = append(reports, a.errorReport(patientID, drugKey, timestamp,
				fmt.Sprintf("Drug '%s' is not in the CPIC drug-gene map. Supported drugs: %s.",
					drugKey, strings.Join(reference.SupportedDrugs(), ", "))))
			continue
		}
		if !params.ParseOK || params.Table == nil {
			reports = append(reports, a.errorReport(patientID, drugKey, timestamp, "VCF parsing failed."))
			continue
		}

		call, cached := cache[gene]
		if !cached {
			call = a.callGene(gene, params.Table)
			cache[gene] = call
		}

		reports = append(reports, a.buildReport(
			patientID, drugKey, timestamp, gene, call,
			detected, totalVars, genesCovered, params.Context,
		))
	}

	return reports
}

// callGene resolves the diplotype and phenotype for one gene. Genes absent
// from the variant table default to the reference diplotype with an
// indeterminate phenotype.
func (a *Annotator) callGene(gene string, table *domain.VariantTable) geneCall {
	rows, present := table.Genes[gene]
	if !present {
		return geneCall{
			diplotype: domain.DiplotypeResult{
				Gene:    gene,
				Allele1: domain.ReferenceAllele,
				Allele2: domain.ReferenceAllele,
			},
			phenotype: domain.UnknownPhenotype,
		}
	}
	diplotype := a.diplotypes.Call(gene, rows)
	phenotype := a.phenotypes.Classify(gene, diplotype.String())
	return geneCall{diplotype: diplotype, phenotype: phenotype}
}

// computeFlags derives the structured data-quality flags for one annotation.
// Flag names match the penalty table keys so the scorer automatically
// applies the right penalty.
func (a *Annotator) computeFlags(gene string, phenotype domain.Phenotype, note string) []string {
	var flags []string

	// CNV not detectable from a SNP-only VCF
	if reference.GenesNeedCNV[strings.ToUpper(gene)] {
		flags = append(flags, domain.FlagMissingCNV)
	}
	// Heterozygous for two or more non-ref alleles, phase unknown
	if strings.Contains(note, "Unphased") {
		flags = append(flags, domain.FlagNoPhase)
	}
	// HapB3 called from the proxy SNP only; causal SNP not confirmed
	if strings.Contains(strings.ToLower(note), "proxy") {
		flags = append(flags, domain.FlagHapB3ProxyOnly)
	}
	// Star allele outside the CPIC activity tables
	if phenotype == domain.UnknownPhenotype {
		flags = append(flags, domain.FlagUnknownStar)
	}

	return flags
}

// mapRiskLabel collapses the CPIC-derived label into the simplified output
// action vocabulary
func mapRiskLabel(label domain.RiskLabel) domain.Action {
	switch label {
	case domain.RiskSafe:
		return domain.ActionSafe
	case domain.RiskAdjustDose, domain.RiskReducedEfficacy:
		return domain.ActionAdjustDosage
	case domain.RiskAvoid, domain.RiskContraindicated:
		return domain.ActionToxic
	default:
		return domain.ActionUnknown
	}
}

// severityFromCategory maps the score category to the output severity
// vocabulary; minimal renders as none
func severityFromCategory(category domain.RiskCategory) domain.Severity {
	if category == domain.CategoryMinimal {
		return domain.SeverityNone
	}
	switch category {
	case domain.CategoryLow, domain.CategoryModerate, domain.CategoryHigh, domain.CategoryCritical:
		return domain.Severity(category)
	}
	return domain.SeverityNone
}

// buildCitation parses the guideline version string, e.g.
// "CPIC 2020 (DOI:10.1002/cpt.1680)", into a structured citation
func buildCitation(cpicVersion, gene string) *domain.Citation {
	citation := &domain.Citation{
		Source:           "CPIC",
		GuidelineVersion: cpicVersion,
		URL:              reference.CPICCitationURLs[strings.ToUpper(gene)],
	}
	if m := doiPattern.FindStringSubmatch(cpicVersion); m != nil {
		citation.DOI = strings.TrimSpace(m[1])
	}
	if m := yearPattern.FindStringSubmatch(cpicVersion); m != nil {
		citation.GuidelineVersion = m[1]
	}
	return citation
}

func (a *Annotator) buildReport(
	patientID, drugKey, timestamp, gene string,
	call geneCall,
	detected []domain.DetectedVariant,
	totalVariants, genesCovered int,
	ctx *domain.PatientContext,
) domain.Report {
	diplotype := call.diplotype.String()
	phenotype := call.phenotype
	activityScore := a.phenotypes.ActivityScore(gene, diplotype)

	flags := a.computeFlags(gene, phenotype, call.diplotype.Note)
	risk := reference.GetDrugRisk(gene, phenotype, drugKey)

	scoreResult := a.scorer.Score(risk.Severity, risk.Evidence, phenotype, flags, ctx)
	penalty := a.scorer.MissingDataPenalty(flags)
	adjustedConfidence := round4(clamp(risk.Confidence * (1.0 - penalty)))

	requireReview := risk.RiskLabel == domain.RiskContraindicated ||
		risk.RiskLabel == domain.RiskUnknown ||
		len(flags) > 0 ||
		scoreResult.Category == domain.CategoryCritical ||
		scoreResult.Category == domain.CategoryHigh

	notes := a.composeNotes(flags, call.diplotype.Note, scoreResult.Components.ContextNotes)
	action := mapRiskLabel(risk.RiskLabel)
	severity := severityFromCategory(scoreResult.Category)
	citation := buildCitation(risk.CPICVersion, gene)

	clinicalText := buildClinicalRecommendationText(recommendationInput{
		drug:           drugKey,
		gene:           gene,
		diplotype:      diplotype,
		phenotype:      phenotype,
		activityScore:  activityScore,
		action:         action,
		severity:       severity,
		confidence:     adjustedConfidence,
		evidence:       risk.Evidence,
		recommendation: risk.Recommendation,
		notes:          notes,
		flags:          flags,
		citation:       citation,
	})

	if a.logger != nil {
		a.logger.WithFields(logrus.Fields{
			"patient_id": patientID,
			"drug":       drugKey,
			"gene":       gene,
			"diplotype":  diplotype,
			"phenotype":  phenotype,
			"action":     action,
			"risk_score": scoreResult.Score,
			"category":   scoreResult.Category,
		}).Info("Drug risk annotated")
	}

	score := scoreResult
	return domain.Report{
		PatientID: patientID,
		Drug:      drugKey,
		Timestamp: timestamp,
		RiskAssessment: domain.RiskAssessment{
			RiskLabel:       action,
			ConfidenceScore: adjustedConfidence,
			Severity:        severity,
		},
		Profile: domain.PharmacogenomicProfile{
			PrimaryGene:      gene,
			Diplotype:        diplotype,
			Phenotype:        phenotype,
			ActivityScore:    activityScore,
			DetectedVariants: detected,
			Flags:            flags,
			Notes:            notes,
		},
		Recommendation: domain.ClinicalRecommendation{
			CPICGuideline:    clinicalText,
			Citation:         citation,
			DataQualityNotes: notes,
			Action:           action,
		},
		QualityMetrics: domain.QualityMetrics{
			VCFParsingSuccess: true,
			TotalVariants:     totalVariants,
			GenesCovered:      genesCovered,
		},
		RequireManualReview: requireReview,
		RiskScore:           &score,
	}
}

// composeNotes renders the human-readable uncertainty summary in fixed flag
// order, followed by any applied context notes
func (a *Annotator) composeNotes(flags []string, diplotypeNote string, contextNotes []string) string {
	flagSet := make(map[string]bool, len(flags))
	for _, f := range flags {
		flagSet[f] = true
	}

	var parts []string
	if flagSet[domain.FlagMissingCNV] {
		parts = append(parts, "CYP2D6 copy number not assessed (SNP-only VCF). CNV can change effective activity score.")
	}
	if flagSet[domain.FlagNoPhase] {
		if diplotypeNote != "" {
			parts = append(parts, diplotypeNote)
		} else {
			parts = append(parts, "Diplotype is unphased; trans configuration assumed.")
		}
	}
	if flagSet[domain.FlagHapB3ProxyOnly] {
		parts = append(parts, "DPYD HapB3 called from proxy SNP rs56038477 only; confirm rs75017182.")
	}
	if flagSet[domain.FlagUnknownStar] {
		parts = append(parts, "One or more star alleles not in CPIC activity table; phenotype set to Unknown.")
	}
	parts = append(parts, contextNotes...)
	return strings.Join(parts, " ")
}

// recommendationInput bundles everything the recommendation template needs
type recommendationInput struct {
	drug           string
	gene           string
	diplotype      string
	phenotype      domain.Phenotype
	activityScore  *float64
	action         domain.Action
	severity       domain.Severity
	confidence     float64
	evidence       domain.EvidenceLevel
	recommendation string
	notes          string
	flags          []string
	citation       *domain.Citation
}

// buildClinicalRecommendationText assembles the explanatory clinical text
// from fixed template sections
func buildClinicalRecommendationText(in recommendationInput) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("PGx summary: %s / %s diplotype %s → phenotype %s.",
		in.drug, in.gene, in.diplotype, in.phenotype))

	if in.activityScore != nil {
		parts = append(parts, fmt.Sprintf("Activity score: %g.", *in.activityScore))
	}

	rec := strings.TrimRight(strings.TrimSpace(in.recommendation), ".")
	if rec == "" {
		parts = append(parts, "Guideline-based recommendation: Not available.")
	} else {
		parts = append(parts, "Guideline-based recommendation: "+rec+".")
	}

	parts = append(parts, fmt.Sprintf("Clinical action: %s. Severity: %s. Evidence level: %s. Confidence: %.2f.",
		in.action, in.severity, in.evidence, in.confidence))

	switch in.action {
	case domain.ActionAdjustDosage:
		parts = append(parts, "Monitoring: monitor clinical response and adverse effects.")
	case domain.ActionToxic:
		parts = append(parts, "Monitoring: use an alternative therapy and monitor closely if no alternatives.")
	case domain.ActionSafe:
		parts = append(parts, "Monitoring: routine monitoring per standard of care.")
	}

	if in.notes != "" {
		parts = append(parts, "Data limitations: "+strings.TrimRight(strings.TrimSpace(in.notes), ".")+".")
	}

	for _, flag := range in.flags {
		switch flag {
		case domain.FlagMissingCNV:
			parts = append(parts, "Follow-up: consider CYP2D6 copy-number (CNV) testing to refine phenotype and action.")
		case domain.FlagNoPhase:
			parts = append(parts, "Follow-up: consider phased genotyping/haplotype resolution if available.")
		case domain.FlagHapB3ProxyOnly:
			parts = append(parts, "Follow-up: confirm causal DPYD variant (rs75017182) if clinically relevant.")
		}
	}

	if in.citation != nil {
		var bits []string
		if in.citation.GuidelineVersion != "" {
			bits = append(bits, "version "+in.citation.GuidelineVersion)
		}
		if in.citation.DOI != "" {
			bits = append(bits, "DOI:"+in.citation.DOI)
		}
		if in.citation.URL != "" {
			bits = append(bits, in.citation.URL)
		}
		if len(bits) > 0 {
			parts = append(parts, "CPIC guideline citation: "+strings.Join(bits, " | ")+".")
		}
	}

	return strings.Join(parts, " ")
}

// errorReport returns the fixed-shape sentinel report emitted when the
// pipeline cannot complete for a drug
func (a *Annotator) errorReport(patientID, drug, timestamp, message string) domain.Report {
	if a.logger != nil {
		a.logger.WithFields(logrus.Fields{
			"patient_id": patientID,
			"drug":       drug,
			"reason":     message,
		}).Warn("Annotation failed, emitting error report")
	}
	return domain.Report{
		PatientID: patientID,
		Drug:      drug,
		Timestamp: timestamp,
		RiskAssessment: domain.RiskAssessment{
			RiskLabel:       domain.ActionUnknown,
			ConfidenceScore: 0.0,
			Severity:        domain.SeverityNone,
		},
		Profile: domain.PharmacogenomicProfile{
			PrimaryGene:      "",
			Diplotype:        "",
			Phenotype:        domain.UnknownPhenotype,
			DetectedVariants: []domain.DetectedVariant{},
		},
		Recommendation: domain.ClinicalRecommendation{
			CPICGuideline:    "",
			DataQualityNotes: message,
			Action:           domain.ActionUnknown,
		},
		QualityMetrics: domain.QualityMetrics{
			VCFParsingSuccess: false,
			TotalVariants:     0,
			GenesCovered:      0,
		},
		RequireManualReview: true,
	}
}
