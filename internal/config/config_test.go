package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "twin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
simulation:
  dt_seconds: 0.1
  seed: 42
noise:
  voltage_sigma: 0.02
fdi:
  enabled: true
  target_bus: bus2015
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.1, c.Simulation.DTSeconds)
	assert.Equal(t, int64(42), c.Simulation.Seed)
	assert.Equal(t, 0.02, c.Noise.VoltageSigma)
	assert.True(t, c.FDI.Enabled)
	assert.Equal(t, "bus2015", c.FDI.TargetBus)

	// Untouched sections keep their defaults.
	assert.Equal(t, 50.0, c.Generator.NominalHz)
	assert.Equal(t, 0.005, c.Noise.FrequencySigma)
	assert.Equal(t, FaultHold, c.Simulation.OnNumericFault)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"zero dt", "simulation:\n  dt_seconds: 0\n"},
		{"negative inertia", "generator:\n  inertia_h: -1\n"},
		{"bad fault policy", "simulation:\n  on_numeric_fault: explode\n"},
		{"solar exit above enter", "solar:\n  enter_ratio: 0.4\n  exit_ratio: 0.6\n"},
		{"chi2 alpha out of range", "wls:\n  chi2_alpha: 1.5\n"},
		{"inverter deadband above volt-watt knee", "inverter:\n  volt_var_high_pu: 1.06\n"},
		{"storage soc outside band", "storage:\n  initial_soc: 0.01\n"},
		{"storage schedule hour out of range", "storage:\n  discharge_end_hour: 25\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestBuildTopologyDefaultFeeder(t *testing.T) {
	top, err := Default().BuildTopology()
	require.NoError(t, err)
	assert.Equal(t, "bus1", top.SourceBus)
	assert.NotEmpty(t, top.MeteredBuses())
}

func TestBuildTopologyFromConfig(t *testing.T) {
	path := writeConfig(t, `
topology:
  source_bus: sub
  buses:
    - {id: sub, nominal_kv: 11.0, metered: false}
    - {id: ld1, nominal_kv: 11.0, load_share: 1.0, metered: true}
  lines:
    - {from: sub, to: ld1, r_ohm_per_km: 0.005, x_ohm_per_km: 0.002, length_km: 2.0}
`)
	c, err := Load(path)
	require.NoError(t, err)

	top, err := c.BuildTopology()
	require.NoError(t, err)
	assert.Equal(t, "sub", top.SourceBus)
	assert.Equal(t, []string{"ld1"}, top.MeteredBuses())
}

func TestConvertersCarryValues(t *testing.T) {
	c := Default()
	c.Recloser.MaxAttempts = 3
	c.AVR.TapStep = 0.01

	assert.Equal(t, 3, c.RecloserParams().MaxAttempts)
	assert.Equal(t, 0.01, c.AVRParams().TapStep)
	assert.Equal(t, c.WLS.Tolerance, c.WLSParams().Tolerance)
	assert.Equal(t, c.Solar.EnterRatio, c.SolarParams().EnterRatio)
	assert.Equal(t, c.Inverter.VoltWattStartPU, c.InverterParams().VoltWattStartPU)
	assert.Equal(t, c.Storage.ChargeFraction, c.PeakShaveParams().ChargeFraction)
}

func TestBuildStorage(t *testing.T) {
	c := Default()
	s, err := c.BuildStorage()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, c.Storage.InitialSOC, s.State.SOC)
	assert.Equal(t, c.Storage.CapacityKWh, s.Params.CapacityKWh)

	c.Storage.Enabled = false
	s, err = c.BuildStorage()
	require.NoError(t, err)
	assert.Nil(t, s)
}
