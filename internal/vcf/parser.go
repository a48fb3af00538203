// Package vcf parses pharmacogene variants out of VCF files into the
// normalized variant table the annotation engine consumes.
package vcf

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/biogo/hts/bgzf"
	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
)

const (
	headerPrefix     = "##"
	columnHeaderLine = "#CHROM"
	sniffBytes       = 2048
)

var gzipMagic = []byte{0x1f, 0x8b}

// Parser extracts FILTER=PASS, gene-tagged pharmacogene rows from VCF input.
// Plain, gzip and bgzf compressed files are all accepted.
type Parser struct {
	logger *logrus.Logger
}

// NewParser creates a VCF parser
func NewParser(logger *logrus.Logger) *Parser {
	return &Parser{logger: logger}
}

// ParseFile parses the VCF at path
func (p *Parser) ParseFile(path string) (*domain.VariantTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewAnalysisError(domain.ErrCodeParseFailure, "failed to open VCF file", err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse parses VCF content from r. Compression is detected from the gzip
// magic bytes; bgzf is tried first since tabix-indexed VCFs are bgzf, with a
// plain gzip fallback.
func (p *Parser) Parse(r io.Reader) (*domain.VariantTable, error) {
	br := bufio.NewReader(r)

	magic, err := br.Peek(2)
	if err == nil && bytes.Equal(magic, gzipMagic) {
		decompressed, derr := decompress(br)
		if derr != nil {
			return nil, domain.NewAnalysisError(domain.ErrCodeParseFailure, "failed to decompress VCF", derr)
		}
		br = bufio.NewReader(decompressed)
	}

	table := domain.NewVariantTable()
	sawColumnHeader := false
	lineNo := 0

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, headerPrefix) {
			continue
		}
		if strings.HasPrefix(line, columnHeaderLine) {
			sawColumnHeader = true
			continue
		}
		if !sawColumnHeader {
			return nil, domain.NewAnalysisError(domain.ErrCodeParseFailure,
				fmt.Sprintf("data line %d before #CHROM header", lineNo), nil)
		}
		p.parseDataLine(line, table)
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.NewAnalysisError(domain.ErrCodeParseFailure, "failed to read VCF stream", err)
	}
	if !sawColumnHeader {
		return nil, domain.NewAnalysisError(domain.ErrCodeParseFailure, "no #CHROM column header found", nil)
	}

	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{
			"total_variants": table.TotalVariants(),
			"genes_covered":  len(table.Genes),
		}).Info("VCF parsed")
	}
	return table, nil
}

// parseDataLine processes one variant row. Rows are skipped, never fatal:
// non-PASS filters, missing pharmacogene tags and malformed columns all just
// drop the row.
func (p *Parser) parseDataLine(line string, table *domain.VariantTable) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return
	}

	filter := fields[6]
	if filter != "PASS" && filter != "." {
		return
	}

	info := parseInfo(fields[7])

	gene := extractGene(info["GENE"])
	if gene == "" {
		return
	}

	rsid := info["RS"]
	if rsid == "" || rsid == "." {
		if id := fields[2]; id != "" && id != "." {
			rsid = id
		} else {
			rsid = ""
		}
	}

	star := info["STAR"]
	if star == "." {
		star = ""
	}

	position, err := strconv.Atoi(fields[1])
	if err != nil {
		return
	}

	table.Add(domain.VariantRecord{
		Gene:     gene,
		RSID:     rsid,
		Chrom:    fields[0],
		Position: position,
		Genotype: firstSampleGenotype(fields),
		Star:     star,
	})
}

// parseInfo splits a semicolon-delimited INFO column into key/value pairs.
// Flag-style entries map to an empty value.
func parseInfo(infoField string) map[string]string {
	info := make(map[string]string)
	for _, entry := range strings.Split(infoField, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if idx := strings.Index(entry, "="); idx >= 0 {
			info[entry[:idx]] = entry[idx+1:]
		} else {
			info[entry] = ""
		}
	}
	return info
}

// extractGene returns the first token of the GENE INFO value that names a
// supported pharmacogene. Tokens may be delimited by comma, pipe, ampersand
// or semicolon.
func extractGene(value string) string {
	if value == "" || value == "." {
		return ""
	}
	for _, delim := range []string{",", "|", "&", ";"} {
		value = strings.ReplaceAll(value, delim, " ")
	}
	for _, token := range strings.Fields(value) {
		if domain.PGxGenes[token] {
			return token
		}
	}
	return ""
}

// firstSampleGenotype returns the GT string of the first sample column, or
// "./." when no sample data is present
func firstSampleGenotype(fields []string) string {
	if len(fields) < 10 {
		return "./."
	}
	formatKeys := strings.Split(fields[8], ":")
	sampleVals := strings.Split(fields[9], ":")
	for i, key := range formatKeys {
		if key == "GT" && i < len(sampleVals) {
			gt := strings.TrimSpace(sampleVals[i])
			if gt == "" {
				return "./."
			}
			return gt
		}
	}
	return "./."
}

// decompress opens a gzip-family stream, preferring bgzf
func decompress(r io.Reader) (io.Reader, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if bg, err := bgzf.NewReader(bytes.NewReader(buf), 0); err == nil {
		return bg, nil
	}
	return gzip.NewReader(bytes.NewReader(buf))
}

// LooksLikeVCF sniffs the first bytes of content for a VCF signature:
// the ##fileformat=VCF pragma or a #CHROM column header. Gzip content is
// accepted on its magic bytes alone.
func LooksLikeVCF(content []byte) bool {
	if len(content) >= 2 && bytes.Equal(content[:2], gzipMagic) {
		return true
	}
	head := content
	if len(head) > sniffBytes {
		head = head[:sniffBytes]
	}
	return bytes.Contains(head, []byte("##fileformat=VCF")) || bytes.Contains(head, []byte(columnHeaderLine))
}
