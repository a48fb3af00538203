package reference

import (
	"sort"
	"strings"
)

// DrugToGene maps a supported drug to its single governing gene.
// Only genes present in CPICDrugRiskMap are listed here.
var DrugToGene = map[string]string{
	"CODEINE":      "CYP2D6",
	"CLOPIDOGREL":  "CYP2C19",
	"WARFARIN":     "CYP2C9",
	"SIMVASTATIN":  "SLCO1B1",
	"AZATHIOPRINE": "TPMT",
	"FLUOROURACIL": "DPYD",
	"5-FU":         "DPYD",
}

// GenesNeedCNV lists genes whose true diplotype can be altered by copy-number
// variation a SNP-only VCF cannot detect
var GenesNeedCNV = map[string]bool{
	"CYP2D6": true,
}

// CPICCitationURLs maps genes to their CPIC guideline pages
var CPICCitationURLs = map[string]string{
	"CYP2D6":  "https://cpicpgx.org/guidelines/cpic-guideline-for-codeine/",
	"CYP2C19": "https://cpicpgx.org/guidelines/cpic-guideline-for-clopidogrel/",
	"CYP2C9":  "https://cpicpgx.org/guidelines/cpic-guideline-for-warfarin/",
	"SLCO1B1": "https://cpicpgx.org/guidelines/cpic-guideline-for-statins/",
	"TPMT":    "https://cpicpgx.org/guidelines/cpic-guideline-for-azathioprine-and-thioguanine/",
	"DPYD":    "https://cpicpgx.org/guidelines/cpic-guideline-for-fluoropyrimidines-and-dpyd/",
}

// GeneForDrug resolves the governing gene for a drug name (case-insensitive)
func GeneForDrug(drug string) (string, bool) {
	gene, ok := DrugToGene[strings.ToUpper(strings.TrimSpace(drug))]
	return gene, ok
}

// SupportedDrugs returns the sorted list of drugs with a gene mapping
func SupportedDrugs() []string {
	drugs := make([]string, 0, len(DrugToGene))
	for d := range DrugToGene {
		drugs = append(drugs, d)
	}
	sort.Strings(drugs)
	return drugs
}
