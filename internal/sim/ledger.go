package sim

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
)

// Row is one tick of recorded output.
// This is the primary artifact for "what happened" in a run.
type Row struct {
	Tick      int       `json:"tick"`
	Timestamp time.Time `json:"timestamp"`

	FrequencyHz       float64 `json:"frequency_hz"`
	MinVoltagePU      float64 `json:"min_voltage_pu"`
	TransformerTempC  float64 `json:"transformer_temp_c"`
	TransformerLoadPU float64 `json:"transformer_load_pu"`

	DemandKW   float64 `json:"demand_kw"`
	SolarKW    float64 `json:"solar_kw"`
	StorageKW  float64 `json:"storage_kw"`
	StorageSOC float64 `json:"storage_soc"`

	Source        model.DispatchSource `json:"source"`
	TapPosition   float64              `json:"tap_position"`
	RecloserState model.RecloserState  `json:"recloser_state"`

	EstimatorConverged bool    `json:"estimator_converged"`
	BadData            bool    `json:"bad_data"`
	CostJ              float64 `json:"cost_j"`
	NumericFault       bool    `json:"numeric_fault"`
	FaultActive        bool    `json:"fault_active"`
}

// Ledger is a bounded in-memory record of recent tick rows. Appends from the
// tick loop and reads from the API may interleave.
type Ledger struct {
	mu   sync.RWMutex
	rows []Row
	cap  int
}

func NewLedger(capacity int) *Ledger {
	if capacity < 1 {
		capacity = 1
	}
	return &Ledger{cap: capacity}
}

// Append records a row, evicting the oldest once the capacity is reached.
func (l *Ledger) Append(r Row) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, r)
	if len(l.rows) > l.cap {
		// Shift rather than reslice so the backing array cannot grow
		// without bound.
		copy(l.rows, l.rows[len(l.rows)-l.cap:])
		l.rows = l.rows[:l.cap]
	}
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rows)
}

// Last returns up to n most recent rows, oldest first.
func (l *Ledger) Last(n int) []Row {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.rows) {
		n = len(l.rows)
	}
	out := make([]Row, n)
	copy(out, l.rows[len(l.rows)-n:])
	return out
}

// Reset drops all recorded rows.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = nil
}

// WriteCSV writes rows to a CSV file for offline analysis.
func WriteCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"tick",
		"timestamp",
		"frequency_hz",
		"min_voltage_pu",
		"transformer_temp_c",
		"transformer_load_pu",
		"demand_kw",
		"solar_kw",
		"storage_kw",
		"storage_soc",
		"source",
		"tap_position",
		"recloser_state",
		"estimator_converged",
		"bad_data",
		"cost_j",
		"numeric_fault",
		"fault_active",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		row := []string{
			strconv.Itoa(r.Tick),
			fmtTime(r.Timestamp),
			fmtFloat(r.FrequencyHz),
			fmtFloat(r.MinVoltagePU),
			fmtFloat(r.TransformerTempC),
			fmtFloat(r.TransformerLoadPU),
			fmtFloat(r.DemandKW),
			fmtFloat(r.SolarKW),
			fmtFloat(r.StorageKW),
			fmtFloat(r.StorageSOC),
			string(r.Source),
			fmtFloat(r.TapPosition),
			string(r.RecloserState),
			strconv.FormatBool(r.EstimatorConverged),
			strconv.FormatBool(r.BadData),
			fmtFloat(r.CostJ),
			strconv.FormatBool(r.NumericFault),
			strconv.FormatBool(r.FaultActive),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
