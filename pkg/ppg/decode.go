package ppg

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"
)

// Decode parses a comma-delimited list of decimal samples, rounding each
// value to the given number of decimal digits. Whitespace around tokens is
// ignored. Decoding is all or nothing: the first malformed token fails the
// whole payload with ErrParse and no samples are returned.
func Decode(payload string, precision int) ([]float64, error) {
	tokens := strings.Split(payload, ",")
	samples := make([]float64, 0, len(tokens))

	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: token %d (%q)", ErrParse, i, tok)
		}
		samples = append(samples, scalar.RoundEven(v, precision))
	}

	return samples, nil
}
