package reference

import (
	"strings"

	"github.com/pgx-risk-server/internal/domain"
)

// riskEntry is one CPIC gene/drug/phenotype row
type riskEntry struct {
	RiskLabel      domain.RiskLabel
	Recommendation string
	Evidence       domain.EvidenceLevel
	CPICVersion    string
}

// CPICDrugRiskMap holds the curated CPIC drug risk table keyed by
// gene, drug and phenotype. All data sourced from official CPIC
// publications (cpicpgx.org). No runtime web calls are made.
var CPICDrugRiskMap = map[string]map[string]map[domain.Phenotype]riskEntry{

	// Codeine is a prodrug converted to morphine by CYP2D6.
	// UM: dangerously high morphine. PM: negligible conversion, no analgesia.
	"CYP2D6": {
		"CODEINE": {
			domain.NormalMetabolizer: {
				RiskLabel: domain.RiskSafe,
				Recommendation: "Label-recommended, age- or weight-specific starting dose is " +
					"warranted. Normal CYP2D6 activity; standard morphine conversion.",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2020 (DOI:10.1002/cpt.1680)",
			},
			domain.IntermediateMetabolizer: {
				RiskLabel: domain.RiskAdjustDose,
				Recommendation: "Label-recommended starting dose is recommended. Monitor closely " +
					"for suboptimal analgesic response. If response is inadequate, " +
					"consider an alternative non-opioid or CYP2D6-independent opioid " +
					"(e.g., morphine, hydromorphone).",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2020 (DOI:10.1002/cpt.1680)",
			},
			domain.PoorMetabolizer: {
				RiskLabel: domain.RiskAvoid,
				Recommendation: "Avoid codeine use. Negligible CYP2D6 activity results in " +
					"insufficient conversion to active morphine, leading to lack of " +
					"analgesic effect. Use an alternative non-opioid or a CYP2D6-" +
					"independent opioid (e.g., morphine, hydromorphone, oxycodone).",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2020 (DOI:10.1002/cpt.1680)",
			},
			domain.UltrarapidMetabolizer: {
				RiskLabel: domain.RiskContraindicated,
				Recommendation: "Avoid codeine use. Ultrarapid CYP2D6 activity results in " +
					"excessive morphine formation, causing life-threatening respiratory " +
					"depression and CNS toxicity. Use an alternative non-opioid or a " +
					"CYP2D6-independent opioid (e.g., morphine, hydromorphone).",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2020 (DOI:10.1002/cpt.1680)",
			},
		},
	},

	// Clopidogrel is a prodrug; CYP2C19 converts it to the active thiol
	// metabolite. IM/PM: impaired activation, reduced platelet inhibition.
	"CYP2C19": {
		"CLOPIDOGREL": {
			domain.NormalMetabolizer: {
				RiskLabel: domain.RiskSafe,
				Recommendation: "Initiate clopidogrel at standard label-recommended dose. Normal " +
					"CYP2C19 activity provides adequate conversion to active metabolite " +
					"and expected platelet inhibition.",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2022 (DOI:10.1002/cpt.2526)",
			},
			domain.IntermediateMetabolizer: {
				RiskLabel: domain.RiskAvoid,
				Recommendation: "CYP2C19 intermediate metabolizers have reduced platelet inhibition " +
					"and increased risk of major adverse cardiovascular events (MACE). " +
					"For ACS patients undergoing PCI, use an alternative P2Y12 inhibitor " +
					"(prasugrel or ticagrelor) if no contraindications exist.",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2022 (DOI:10.1002/cpt.2526)",
			},
			domain.PoorMetabolizer: {
				RiskLabel: domain.RiskAvoid,
				Recommendation: "CYP2C19 poor metabolizers have significantly reduced platelet " +
					"inhibition and substantially increased risk of MACE. Use an " +
					"alternative P2Y12 inhibitor (prasugrel or ticagrelor) if no " +
					"contraindications exist. Clopidogrel should not be used.",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2022 (DOI:10.1002/cpt.2526)",
			},
			domain.RapidMetabolizer: {
				RiskLabel: domain.RiskSafe,
				Recommendation: "Initiate clopidogrel at standard label-recommended dose. Rapid " +
					"CYP2C19 metabolizers generally achieve adequate platelet inhibition. " +
					"No dose adjustment required.",
				Evidence:    domain.EvidenceB,
				CPICVersion: "CPIC 2022 (DOI:10.1002/cpt.2526)",
			},
			domain.UltrarapidMetabolizer: {
				RiskLabel: domain.RiskSafe,
				Recommendation: "Initiate clopidogrel at standard label-recommended dose. Ultrarapid " +
					"CYP2C19 metabolizers achieve at least normal levels of active " +
					"metabolite. No dose adjustment required based on CPIC guidance.",
				Evidence:    domain.EvidenceB,
				CPICVersion: "CPIC 2022 (DOI:10.1002/cpt.2526)",
			},
		},
	},

	// CPIC warfarin guidance is primarily genotype-driven; phenotype rows are
	// a conservative interpretation of the 2017 genotype-grouping tables and
	// apply when a validated dosing algorithm is not feasible.
	"CYP2C9": {
		"WARFARIN": {
			domain.NormalMetabolizer: {
				RiskLabel: domain.RiskSafe,
				Recommendation: "Initiate warfarin using a validated pharmacogenetic dosing algorithm " +
					"incorporating CYP2C9, VKORC1, and clinical factors. Standard " +
					"starting dose is appropriate for CYP2C9 *1/*1 (normal metabolizers). " +
					"Monitor INR closely during initiation.",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2017 (DOI:10.1002/cpt.668)",
			},
			domain.IntermediateMetabolizer: {
				RiskLabel: domain.RiskAdjustDose,
				Recommendation: "CYP2C9 intermediate metabolizers have reduced S-warfarin clearance. " +
					"Use a validated pharmacogenetic dosing algorithm. Anticipate lower " +
					"dose requirements (approximately 15–30% reduction vs. average), " +
					"especially for *2/*2 or *1/*3 diplotypes. Monitor INR closely. " +
					"Allow longer time to achieve stable INR.",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2017 (DOI:10.1002/cpt.668)",
			},
			domain.PoorMetabolizer: {
				RiskLabel: domain.RiskAdjustDose,
				Recommendation: "CYP2C9 poor metabolizers (e.g., *2/*3, *3/*3) require significantly " +
					"lower warfarin doses and face substantially increased bleeding risk. " +
					"Use a validated pharmacogenetic dosing algorithm. If algorithm is " +
					"unavailable and a VKORC1-sensitive genotype is also present, consider " +
					"an alternative anticoagulant (e.g., DOAC). Intensive INR monitoring " +
					"is mandatory during initiation.",
				Evidence:    domain.EvidenceB,
				CPICVersion: "CPIC 2017 (DOI:10.1002/cpt.668)",
			},
		},
	},

	// SLCO1B1 encodes the OATP1B1 hepatic uptake transporter. Decreased or
	// poor function elevates plasma simvastatin acid and myopathy risk.
	"SLCO1B1": {
		"SIMVASTATIN": {
			domain.NormalMetabolizer: {
				RiskLabel: domain.RiskSafe,
				Recommendation: "Normal SLCO1B1 function. Prescribe desired statin intensity per " +
					"current standard of care and ACC/AHA guidelines. No SLCO1B1-driven " +
					"dose limitation for simvastatin.",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2022 (DOI:10.1002/cpt.2557)",
			},
			domain.IntermediateMetabolizer: {
				RiskLabel: domain.RiskAvoid,
				Recommendation: "Decreased SLCO1B1 function. Prescribe an alternative statin with " +
					"lower SAMS risk (e.g., rosuvastatin, pravastatin, or fluvastatin at " +
					"clinically appropriate doses). If simvastatin is necessary, limit the " +
					"dose to ≤20 mg/day and increase clinical monitoring for myopathy " +
					"symptoms (muscle pain, weakness, CK elevation).",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2022 (DOI:10.1002/cpt.2557)",
			},
			domain.PoorMetabolizer: {
				RiskLabel: domain.RiskContraindicated,
				Recommendation: "Poor SLCO1B1 function. Prescribe an alternative statin with lower " +
					"SAMS risk (e.g., rosuvastatin, pravastatin, or fluvastatin). " +
					"Simvastatin is associated with a substantially increased risk of " +
					"myopathy and rhabdomyolysis at standard doses. Do not use simvastatin " +
					"unless no alternatives exist; if unavoidable, use the lowest possible " +
					"dose with intensive monitoring.",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2022 (DOI:10.1002/cpt.2557)",
			},
		},
	},

	// Azathioprine is converted to 6-MP, then to thioguanine nucleotides.
	// TPMT inactivates these; low TPMT causes TGN accumulation and
	// myelosuppression. NUDT15 also modulates toxicity (not covered here).
	"TPMT": {
		"AZATHIOPRINE": {
			domain.NormalMetabolizer: {
				RiskLabel: domain.RiskSafe,
				Recommendation: "Normal TPMT activity. Start azathioprine at the normal starting dose " +
					"(2–3 mg/kg/day for IBD/rheumatology indications). Adjust doses per " +
					"disease-specific guidelines. Allow ≥2 weeks to reach steady-state " +
					"after each dose adjustment. Monitor CBC regularly.",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2019+2025 (DOI:10.1002/cpt.1172)",
			},
			domain.IntermediateMetabolizer: {
				RiskLabel: domain.RiskAdjustDose,
				Recommendation: "Reduced TPMT activity. Start at 30–80% of the normal azathioprine " +
					"dose (e.g., ~0.6–2.4 mg/kg/day). Adjust dose based on myelosuppression " +
					"and disease-specific guidelines. Allow 2–4 weeks to reach steady-state " +
					"after each dose adjustment. Monitor CBC frequently. If the initial dose " +
					"is already low for the indication, dose reduction may not be necessary.",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2019+2025 (DOI:10.1002/cpt.1172)",
			},
			domain.PoorMetabolizer: {
				RiskLabel: domain.RiskContraindicated,
				Recommendation: "Absent TPMT activity. For non-malignant conditions, use an alternative " +
					"non-thiopurine immunosuppressant (e.g., mycophenolate mofetil). " +
					"If thiopurine must be used for a malignant indication, use a drastically " +
					"reduced dose (10-fold reduction, administered 3×/week instead of daily) " +
					"with intensive myelosuppression monitoring. Allow 4–6 weeks per dose " +
					"adjustment. Risk of fatal myelosuppression is extremely high.",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2019+2025 (DOI:10.1002/cpt.1172)",
			},
		},
	},

	// DPD (the DPYD gene product) catabolises most administered 5-FU.
	// Reduced DPD activity prolongs 5-FU exposure and causes severe toxicity.
	"DPYD": {
		"FLUOROURACIL": {
			domain.NormalMetabolizer: {
				RiskLabel: domain.RiskSafe,
				Recommendation: "Normal DPD activity (activity score = 2.0). Administer 5-fluorouracil " +
					"at the full label-recommended starting dose per disease protocol. " +
					"No DPYD-based dose modification required.",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2024 update (DOI:10.1002/cpt.2450)",
			},
			domain.IntermediateMetabolizer: {
				RiskLabel: domain.RiskAdjustDose,
				Recommendation: "Decreased DPD activity (activity score 1.0 or 1.5). Start at 50% of " +
					"the normal 5-fluorouracil dose. Titrate dose based on clinical " +
					"tolerability and, ideally, therapeutic drug monitoring. If the first " +
					"two cycles are tolerated, dose escalation (≤10% per cycle) may be " +
					"considered. For homozygous c.[2846A>T];[2846A>T] (AS=1.0), a " +
					"reduction exceeding 50% may be warranted.",
				Evidence:    domain.EvidenceB,
				CPICVersion: "CPIC 2024 update (DOI:10.1002/cpt.2450)",
			},
			domain.PoorMetabolizer: {
				RiskLabel: domain.RiskContraindicated,
				Recommendation: "Severely reduced or absent DPD activity (activity score 0.0 or 0.5). " +
					"Avoid 5-fluorouracil and all fluoropyrimidine-based regimens (including " +
					"capecitabine). No safe dose has been established for complete DPD " +
					"deficiency (AS=0). If AS=0.5 and no alternative exists, a strongly " +
					"reduced dose (>75% reduction from standard) with early therapeutic drug " +
					"monitoring may be considered only after careful risk-benefit assessment. " +
					"FDA label updated 2024 to reflect DPD deficiency risk.",
				Evidence:    domain.EvidenceA,
				CPICVersion: "CPIC 2024 update (DOI:10.1002/cpt.2450)",
			},
		},
	},
}

// severityForLabel maps risk labels to clinical urgency
var severityForLabel = map[domain.RiskLabel]domain.Severity{
	domain.RiskSafe:            domain.SeverityNone,
	domain.RiskAdjustDose:      domain.SeverityModerate,
	domain.RiskAvoid:           domain.SeverityHigh,
	domain.RiskReducedEfficacy: domain.SeverityLow,
	domain.RiskContraindicated: domain.SeverityCritical,
	domain.RiskUnknown:         domain.SeverityNone,
}

// confidenceForEvidence maps CPIC evidence grades to confidence scores
var confidenceForEvidence = map[domain.EvidenceLevel]float64{
	domain.EvidenceA:  0.95,
	domain.EvidenceB:  0.75,
	domain.EvidenceNA: 0.0,
}

// GetDrugRisk resolves the CPIC risk entry for a gene, phenotype and drug.
// Inputs are trimmed and uppercased; any miss in the nested lookup yields an
// Unknown result whose recommendation names the missing level. Fully offline
// and deterministic.
func GetDrugRisk(gene string, phenotype domain.Phenotype, drug string) domain.DrugRisk {
	geneKey := strings.ToUpper(strings.TrimSpace(gene))
	drugKey := strings.ToUpper(strings.TrimSpace(drug))
	phenoKey := domain.Phenotype(strings.ToUpper(strings.TrimSpace(string(phenotype))))

	geneMap, ok := CPICDrugRiskMap[geneKey]
	if !ok {
		return unknownRisk(geneKey, drugKey, phenoKey,
			"Gene '"+geneKey+"' not in CPIC drug risk map.")
	}
	drugMap, ok := geneMap[drugKey]
	if !ok {
		return unknownRisk(geneKey, drugKey, phenoKey,
			"Drug '"+drugKey+"' not covered for gene '"+geneKey+"' in CPIC drug risk map.")
	}
	entry, ok := drugMap[phenoKey]
	if !ok {
		return unknownRisk(geneKey, drugKey, phenoKey,
			"Phenotype '"+string(phenoKey)+"' not explicitly defined by CPIC for "+geneKey+"/"+drugKey+".")
	}

	return domain.DrugRisk{
		Gene:           geneKey,
		Drug:           drugKey,
		Phenotype:      phenoKey,
		RiskLabel:      entry.RiskLabel,
		Severity:       severityForLabel[entry.RiskLabel],
		Confidence:     confidenceForEvidence[entry.Evidence],
		Evidence:       entry.Evidence,
		CPICVersion:    entry.CPICVersion,
		Recommendation: entry.Recommendation,
	}
}

func unknownRisk(gene, drug string, phenotype domain.Phenotype, reason string) domain.DrugRisk {
	return domain.DrugRisk{
		Gene:           gene,
		Drug:           drug,
		Phenotype:      phenotype,
		RiskLabel:      domain.RiskUnknown,
		Severity:       domain.SeverityNone,
		Confidence:     0.0,
		Evidence:       domain.EvidenceNA,
		CPICVersion:    "N/A",
		Recommendation: reason,
	}
}
