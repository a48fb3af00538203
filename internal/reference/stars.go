// Package reference holds the curated pharmacogenomic lookup tables: star
// allele definitions, allele activity values, allele function annotations and
// the CPIC drug risk map. All tables are keyed by uppercase gene symbols.
package reference

// StarDefinitions maps each supported gene to its defining variants.
// rs56038477 is a proxy tag for DPYD HapB3; rs75017182 is the causal variant.
var StarDefinitions = map[string]map[string]string{
	"CYP2C19": {
		"rs4244285":  "*2",
		"rs4986893":  "*3",
		"rs12248560": "*17",
	},
	"CYP2C9": {
		"rs1799853":  "*2",
		"rs1057910":  "*3",
		"rs28371686": "*5",
		"rs9332131":  "*6",
		"rs7900194":  "*8",
		"rs28371685": "*11",
	},
	"TPMT": {
		"rs1142345": "*3C",
		"rs1800460": "*3B",
		"rs1800462": "*2",
	},
	"DPYD": {
		"rs3918290":  "*2A",
		"rs55886062": "*13",
		"rs75017182": "*HapB3",
		"rs56038477": "*HapB3",
		"rs67376798": "*c2846AT",
	},
	"SLCO1B1": {
		"rs4149056": "*5",
		"rs2306283": "*1B",
	},
	"CYP2D6": {
		"rs3892097":  "*4",
		"rs1065852":  "*10",
		"rs35742686": "*3",
		"rs5030655":  "*6",
		"rs28371725": "*41",
	},
}

// DPYD HapB3 variant identifiers
const (
	DPYDHapB3Causal = "rs75017182"
	DPYDHapB3Proxy  = "rs56038477"
)

// SLCO1B1 compound haplotype variant identifiers
const (
	SLCO1B1Rs4149056 = "rs4149056"
	SLCO1B1Rs2306283 = "rs2306283"
)

// StarForVariant resolves the defining star allele for a gene/rsID pair
func StarForVariant(gene, rsid string) (string, bool) {
	defs, ok := StarDefinitions[gene]
	if !ok {
		return "", false
	}
	star, ok := defs[rsid]
	return star, ok
}

// AlleleFunctionMap maps gene and star allele to the annotated allele
// function used in detected variant records
var AlleleFunctionMap = map[string]map[string]string{
	"CYP2C19": {
		"*1":  "normal",
		"*2":  "no function",
		"*3":  "no function",
		"*17": "increased",
	},
	"CYP2C9": {
		"*1": "normal",
		"*2": "decreased",
		"*3": "decreased",
	},
	"TPMT": {
		"*1":  "normal",
		"*2":  "no function",
		"*3A": "no function",
		"*3B": "no function",
		"*3C": "no function",
	},
	"DPYD": {
		"*1":     "normal",
		"*2A":    "no function",
		"*13":    "no function",
		"*HapB3": "decreased",
	},
	"SLCO1B1": {
		"*1":  "normal",
		"*1B": "normal",
		"*5":  "decreased",
	},
	"CYP2D6": {
		"*1":  "normal",
		"*2":  "normal",
		"*4":  "no function",
		"*5":  "no function",
		"*10": "decreased",
		"*17": "decreased",
	},
}

// AlleleFunction returns the annotated function for a gene/star pair,
// defaulting to "unknown" when the allele is not in the map
func AlleleFunction(gene, star string) string {
	if fns, ok := AlleleFunctionMap[gene]; ok {
		if fn, ok := fns[star]; ok {
			return fn
		}
	}
	return "unknown"
}
