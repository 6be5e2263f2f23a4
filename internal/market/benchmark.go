package market

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Benchmark maps normalized area names to reference purchase prices in
// euros per square meter.
type Benchmark map[string]float64

// LoadBenchmark parses the benchmark workbook: first sheet, one header
// row, column A area name, column B reference price. Rows with an empty
// name or an unparseable price are skipped.
func LoadBenchmark(data []byte) (Benchmark, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "market: open benchmark workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("market: benchmark workbook has no sheets")
	}

	bench := make(Benchmark)
	for i, row := range f.Sheets[0].Rows {
		if i == 0 || len(row.Cells) < 2 {
			continue
		}
		name := NormalizeName(row.Cells[0].String())
		if name == "" {
			continue
		}
		price, err := row.Cells[1].Float()
		if err != nil || price <= 0 {
			continue
		}
		bench[name] = price
	}
	if len(bench) == 0 {
		return nil, eris.New("market: benchmark workbook has no usable rows")
	}
	return bench, nil
}

// Lookup returns the reference price for an area name, matching
// case- and accent-insensitively.
func (b Benchmark) Lookup(area string) (float64, bool) {
	price, ok := b[NormalizeName(area)]
	return price, ok
}

// NormalizeName lowercases and strips diacritics so "Chamberí" and
// "chamberi" key the same benchmark row. The transformer chain is built
// per call; transformers are not safe for concurrent reuse.
func NormalizeName(s string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
