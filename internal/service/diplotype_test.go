package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgx-risk-server/internal/domain"
)

func row(gene, rsid, genotype string) domain.VariantRecord {
	return domain.VariantRecord{Gene: gene, RSID: rsid, Chrom: "chr10", Position: 1000, Genotype: genotype}
}

func TestDiplotypeCallerCall(t *testing.T) {
	caller := NewDiplotypeCaller(nil)

	tests := []struct {
		name     string
		gene     string
		rows     []domain.VariantRecord
		want     string
		wantNote string
	}{
		{
			name: "no variants defaults to reference",
			gene: "CYP2C19",
			rows: nil,
			want: "*1/*1",
		},
		{
			name: "all hom ref stays reference",
			gene: "CYP2C19",
			rows: []domain.VariantRecord{row("CYP2C19", "rs4244285", "0/0")},
			want: "*1/*1",
		},
		{
			name: "single het",
			gene: "CYP2C19",
			rows: []domain.VariantRecord{row("CYP2C19", "rs4244285", "0/1")},
			want: "*1/*2",
		},
		{
			name: "homozygous",
			gene: "CYP2C19",
			rows: []domain.VariantRecord{row("CYP2C19", "rs4244285", "1/1")},
			want: "*2/*2",
		},
		{
			name: "hom dominates het",
			gene: "CYP2C19",
			rows: []domain.VariantRecord{
				row("CYP2C19", "rs12248560", "0/1"),
				row("CYP2C19", "rs4244285", "1/1"),
			},
			want: "*2/*2",
		},
		{
			name: "two hets unphased trans assumed",
			gene: "CYP2C19",
			rows: []domain.VariantRecord{
				row("CYP2C19", "rs4244285", "0/1"),
				row("CYP2C19", "rs4986893", "0/1"),
			},
			want:     "*2/*3",
			wantNote: "Unphased: trans assumed",
		},
		{
			name: "hom never downgraded by later het row",
			gene: "CYP2C19",
			rows: []domain.VariantRecord{
				row("CYP2C19", "rs4244285", "1/1"),
				row("CYP2C19", "rs4244285", "0/1"),
			},
			want: "*2/*2",
		},
		{
			name: "unknown rsid skipped",
			gene: "CYP2C19",
			rows: []domain.VariantRecord{
				row("CYP2C19", "rs9999999", "0/1"),
				row("CYP2C19", "rs4244285", "0/1"),
			},
			want: "*1/*2",
		},
		{
			name: "explicit star annotation wins over rsid lookup",
			gene: "CYP2C19",
			rows: []domain.VariantRecord{
				{Gene: "CYP2C19", RSID: "rs9999999", Genotype: "0/1", Star: "*17"},
			},
			want: "*1/*17",
		},
		{
			name: "dpyd proxy only het",
			gene: "DPYD",
			rows: []domain.VariantRecord{row("DPYD", "rs56038477", "0/1")},
			want:     "*1/*HapB3",
			wantNote: "HapB3 called from proxy tag rs56038477 only",
		},
		{
			name: "dpyd proxy plus causal has no proxy note",
			gene: "DPYD",
			rows: []domain.VariantRecord{
				row("DPYD", "rs56038477", "0/1"),
				row("DPYD", "rs75017182", "0/1"),
			},
			want: "*1/*HapB3",
		},
		{
			name: "slco1b1 compound cis collapses to *15",
			gene: "SLCO1B1",
			rows: []domain.VariantRecord{
				row("SLCO1B1", "rs4149056", "0/1"),
				row("SLCO1B1", "rs2306283", "0/1"),
			},
			want:     "*1/*15",
			wantNote: "Unphased: *15 (cis) assumed from rs4149056 + rs2306283 co-occurrence",
		},
		{
			name: "slco1b1 hom *5 suppresses compound rule",
			gene: "SLCO1B1",
			rows: []domain.VariantRecord{
				row("SLCO1B1", "rs4149056", "1/1"),
				row("SLCO1B1", "rs2306283", "0/1"),
			},
			want: "*5/*5",
		},
		{
			name: "slco1b1 lone *5 het",
			gene: "SLCO1B1",
			rows: []domain.VariantRecord{row("SLCO1B1", "rs4149056", "0/1")},
			want: "*1/*5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := caller.Call(tt.gene, tt.rows)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.wantNote, got.Note)
			assert.Equal(t, tt.gene, got.Gene)
		})
	}
}

func TestDiplotypeCallerDeterministicOrder(t *testing.T) {
	caller := NewDiplotypeCaller(nil)
	rows := []domain.VariantRecord{
		row("CYP2C9", "rs1057910", "0/1"),
		row("CYP2C9", "rs1799853", "0/1"),
		row("CYP2C9", "rs28371686", "0/1"),
	}

	first := caller.Call("CYP2C9", rows)
	for i := 0; i < 50; i++ {
		got := caller.Call("CYP2C9", rows)
		if got != first {
			t.Fatalf("call %d diverged: %+v vs %+v", i, got, first)
		}
	}
	// First two observed stars in row order
	assert.Equal(t, "*3/*2", first.String())
}
