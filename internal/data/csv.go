// Package data loads the historical time series feeding the simulation: the
// feeder load profile and the normalized solar irradiance profile.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
)

// Accepted timestamp layouts, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// LoadHistoryCSV reads a load time series with at least the columns
// {timestamp, active_power, reactive_power}. Extra columns are ignored;
// column order is taken from the header.
func LoadHistoryCSV(path string) ([]model.LoadPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseHistory(f)
}

// ParseHistory parses the load CSV from a reader. The first row must be a
// header naming timestamp, active_power and reactive_power columns.
func ParseHistory(r io.Reader) ([]model.LoadPoint, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	tsCol, pCol, qCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "timestamp", "time", "datetime":
			tsCol = i
		case "active_power", "total_active_power", "p_kw":
			pCol = i
		case "reactive_power", "total_reac_power", "q_kvar":
			qCol = i
		}
	}
	if tsCol < 0 || pCol < 0 || qCol < 0 {
		return nil, fmt.Errorf("header must include timestamp, active_power and reactive_power columns, got %v", header)
	}

	var out []model.LoadPoint
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := parseTime(rec[tsCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(rec[pCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: active_power: %w", line, err)
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(rec[qCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: reactive_power: %w", line, err)
		}
		out = append(out, model.LoadPoint{Timestamp: ts, ActivePowerKW: p, ReactivePowerKVAR: q})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	return out, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
