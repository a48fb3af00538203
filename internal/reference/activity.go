package reference

// Per-gene allele activity values used by activity-score phenotype models.
// Alleles absent from a gene's map are handled per-gene: most genes treat a
// missing allele as indeterminate, DPYD defaults it to normal activity.

// CYP2C9Activity maps CYP2C9 star alleles to activity values
var CYP2C9Activity = map[string]float64{
	"*1":  1.0,
	"*2":  0.5,
	"*3":  0.0,
	"*5":  0.0,
	"*6":  0.0,
	"*8":  0.0,
	"*11": 0.0,
}

// TPMTActivity maps TPMT star alleles to activity values
var TPMTActivity = map[string]float64{
	"*1":  1.0,
	"*3B": 0.5,
	"*2":  0.0,
	"*3A": 0.0,
	"*3C": 0.0,
	"*4":  0.0,
	"*8":  0.0,
	"*12": 0.0,
}

// DPYDActivity maps DPYD star alleles to activity values
var DPYDActivity = map[string]float64{
	"*1":       1.0,
	"*2A":      0.0,
	"*13":      0.0,
	"*HapB3":   0.5,
	"*c2846AT": 0.5,
}

// CYP2D6Activity maps CYP2D6 star alleles to activity values
var CYP2D6Activity = map[string]float64{
	"*1":  1.0,
	"*2":  1.0,
	"*3":  0.0,
	"*4":  0.0,
	"*5":  0.0,
	"*6":  0.0,
	"*10": 0.25,
	"*17": 0.5,
	"*41": 0.5,
}

// SLCO1B1 function classes used by the allele-count phenotype model
var (
	SLCO1B1NoFunction = map[string]bool{
		"*5":  true,
		"*15": true,
	}
	SLCO1B1DecreasedFunction = map[string]bool{
		"*9":  true,
		"*31": true,
		"*39": true,
		"*41": true,
		"*45": true,
	}
)
