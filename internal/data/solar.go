package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadSolarProfileCSV reads a single-column irradiance series and normalizes
// it to 0..1 against its maximum. A header row is skipped if the first field
// does not parse as a number.
func LoadSolarProfileCSV(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSolarProfile(f)
}

// ParseSolarProfile parses and normalizes the irradiance column.
func ParseSolarProfile(r io.Reader) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	var vals []float64
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if v < 0 {
			v = 0
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("no irradiance values")
	}

	var max float64
	for _, v := range vals {
		if v > max {
			max = v
		}
	}
	if max > 0 {
		for i := range vals {
			vals[i] /= max
		}
	}
	return vals, nil
}

// SyntheticSolarProfile is the fallback daily irradiance bell used when no
// profile file is configured: dark nights, a morning ramp, a flat midday
// plateau and an evening ramp, one sample per hour.
func SyntheticSolarProfile() []float64 {
	out := make([]float64, 24)
	for h := 0; h < 24; h++ {
		switch {
		case h < 6 || h >= 19:
			out[h] = 0
		case h < 10:
			out[h] = 0.25 * float64(h-5)
		case h < 15:
			out[h] = 1.0
		default:
			out[h] = 1.0 - 0.25*float64(h-15)
		}
	}
	return out
}
