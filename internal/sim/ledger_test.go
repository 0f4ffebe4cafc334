package sim

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
)

func TestLedgerEvictsOldest(t *testing.T) {
	l := NewLedger(3)
	for i := 0; i < 5; i++ {
		l.Append(Row{Tick: i})
	}
	assert.Equal(t, 3, l.Len())

	rows := l.Last(0)
	require.Len(t, rows, 3)
	assert.Equal(t, 2, rows[0].Tick)
	assert.Equal(t, 4, rows[2].Tick)
}

func TestLedgerLastN(t *testing.T) {
	l := NewLedger(10)
	for i := 0; i < 5; i++ {
		l.Append(Row{Tick: i})
	}

	rows := l.Last(2)
	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[0].Tick)
	assert.Equal(t, 4, rows[1].Tick)

	// Asking for more than recorded returns everything.
	assert.Len(t, l.Last(100), 5)
}

func TestLedgerReset(t *testing.T) {
	l := NewLedger(10)
	l.Append(Row{Tick: 1})
	l.Reset()
	assert.Zero(t, l.Len())
	assert.Empty(t, l.Last(0))
}

func TestWriteCSVRoundTrip(t *testing.T) {
	rows := []Row{
		{Tick: 1, FrequencyHz: 49.98, MinVoltagePU: 0.97, StorageKW: -80, StorageSOC: 0.52, Source: model.SourceGrid, RecloserState: model.RecloserClosed, EstimatorConverged: true},
		{Tick: 2, FrequencyHz: 49.95, MinVoltagePU: 0.82, Source: model.SourceGrid, RecloserState: model.RecloserTripped, FaultActive: true},
	}
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, WriteCSV(path, rows))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := records[0]
	assert.Equal(t, "tick", header[0])
	assert.Len(t, records[1], len(header))
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "-80.000000", records[1][8])
	assert.Equal(t, "0.520000", records[1][9])
	assert.Equal(t, "TRIPPED", records[2][12])
	assert.Equal(t, "true", records[2][17])
}
