package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/dispatch"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/estimator"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/physics"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/protection"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/scada"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/topology"
)

// FaultPolicy selects what the loop does when the integrator diverges.
type FaultPolicy string

const (
	// FaultHold marks the tick faulted and re-publishes the last good state.
	FaultHold FaultPolicy = "hold"
	// FaultHalt stops the run.
	FaultHalt FaultPolicy = "halt"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Simulation  SimulationConfig  `yaml:"simulation"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Transformer TransformerConfig `yaml:"transformer"`
	PV          PVConfig          `yaml:"pv"`
	Noise       NoiseConfig       `yaml:"noise"`
	FDI         FDIConfig         `yaml:"fdi"`
	WLS         WLSConfig         `yaml:"wls"`
	Recloser    RecloserConfig    `yaml:"recloser"`
	AVR         AVRConfig         `yaml:"avr"`
	Solar       SolarConfig       `yaml:"solar"`
	Inverter    InverterConfig    `yaml:"inverter"`
	Storage     StorageConfig     `yaml:"storage"`
	FaultDetect FaultDetectConfig `yaml:"fault_detect"`

	// Topology overrides the built-in default feeder when present.
	Topology *topology.Topology `yaml:"topology"`

	// HistoryFile and SolarProfileFile point at CSV inputs; when empty
	// the loop falls back to synthetic profiles.
	HistoryFile      string `yaml:"history_file"`
	SolarProfileFile string `yaml:"solar_profile_file"`
}

type SimulationConfig struct {
	// DTSeconds is the physics integration step.
	DTSeconds float64 `yaml:"dt_seconds"`
	// Seed fixes the telemetry noise stream. Same seed, same run.
	Seed int64 `yaml:"seed"`
	// TicksPerHour maps ticks to simulated time of day for the load and
	// solar profiles.
	TicksPerHour int `yaml:"ticks_per_hour"`
	// AmbientTempC drives the thermal and PV cell-temperature models.
	AmbientTempC float64 `yaml:"ambient_temp_c"`
	// OnNumericFault is "hold" or "halt".
	OnNumericFault FaultPolicy `yaml:"on_numeric_fault"`
	// ForecastHorizon is the number of hourly steps the forecaster predicts.
	ForecastHorizon int `yaml:"forecast_horizon"`
	// LedgerCapacity bounds the in-memory tick ledger.
	LedgerCapacity int `yaml:"ledger_capacity"`
}

type GeneratorConfig struct {
	BaseMVA             float64 `yaml:"base_mva"`
	NominalHz           float64 `yaml:"nominal_hz"`
	InertiaH            float64 `yaml:"inertia_h"`
	DampingD            float64 `yaml:"damping_d"`
	GovernorGainKWPerHz float64 `yaml:"governor_gain_kw_per_hz"`
	InitialMechPowerKW  float64 `yaml:"initial_mech_power_kw"`
}

type TransformerConfig struct {
	RatingKVA     float64 `yaml:"rating_kva"`
	RatedRiseC    float64 `yaml:"rated_rise_c"`
	TimeConstantS float64 `yaml:"time_constant_s"`
	RiseExponent  float64 `yaml:"rise_exponent"`
	InitialTempC  float64 `yaml:"initial_temp_c"`
}

type PVConfig struct {
	NOCTC         float64 `yaml:"noct_c"`
	TempCoeffPerC float64 `yaml:"temp_coeff_per_c"`
	STCTempC      float64 `yaml:"stc_temp_c"`
}

type NoiseConfig struct {
	VoltageSigma   float64 `yaml:"voltage_sigma"`
	FrequencySigma float64 `yaml:"frequency_sigma"`
	PowerSigma     float64 `yaml:"power_sigma"`
}

type FDIConfig struct {
	Enabled   bool    `yaml:"enabled"`
	BiasPU    float64 `yaml:"bias_pu"`
	TargetBus string  `yaml:"target_bus"`
}

type WLSConfig struct {
	Tolerance float64 `yaml:"tolerance"`
	MaxIter   int     `yaml:"max_iter"`
	Chi2Alpha float64 `yaml:"chi2_alpha"`
}

type RecloserConfig struct {
	MaxAttempts       int `yaml:"max_attempts"`
	RecloseDelayTicks int `yaml:"reclose_delay_ticks"`
	DebounceTicks     int `yaml:"debounce_ticks"`
}

type AVRConfig struct {
	VMinPU              float64 `yaml:"v_min_pu"`
	VMaxPU              float64 `yaml:"v_max_pu"`
	MinTapIntervalTicks int     `yaml:"min_tap_interval_ticks"`
	TapStep             float64 `yaml:"tap_step"`
	TapMin              float64 `yaml:"tap_min"`
	TapMax              float64 `yaml:"tap_max"`
}

type SolarConfig struct {
	EnterRatio float64 `yaml:"enter_ratio"`
	ExitRatio  float64 `yaml:"exit_ratio"`
	Blend      bool    `yaml:"blend"`
}

// InverterConfig tunes the PV smart-inverter volt-watt and volt-var curves.
type InverterConfig struct {
	Enabled            bool    `yaml:"enabled"`
	VoltWattStartPU    float64 `yaml:"volt_watt_start_pu"`
	VoltWattSlopePerPU float64 `yaml:"volt_watt_slope_per_pu"`
	VoltVARHighPU      float64 `yaml:"volt_var_high_pu"`
	VoltVARLowPU       float64 `yaml:"volt_var_low_pu"`
	VoltVARSlopePerPU  float64 `yaml:"volt_var_slope_per_pu"`
	MaxVARFraction     float64 `yaml:"max_var_fraction"`
}

// StorageConfig sizes the feeder battery and its peak-shave schedule.
type StorageConfig struct {
	Enabled             bool    `yaml:"enabled"`
	CapacityKWh         float64 `yaml:"capacity_kwh"`
	MaxPowerKW          float64 `yaml:"max_power_kw"`
	ChargeEfficiency    float64 `yaml:"charge_efficiency"`
	DischargeEfficiency float64 `yaml:"discharge_efficiency"`
	MinSOC              float64 `yaml:"min_soc"`
	MaxSOC              float64 `yaml:"max_soc"`
	InitialSOC          float64 `yaml:"initial_soc"`

	ChargeStartHour    int     `yaml:"charge_start_hour"`
	ChargeEndHour      int     `yaml:"charge_end_hour"`
	DischargeStartHour int     `yaml:"discharge_start_hour"`
	DischargeEndHour   int     `yaml:"discharge_end_hour"`
	ChargeFraction     float64 `yaml:"charge_fraction"`
	ChargeCeilingSOC   float64 `yaml:"charge_ceiling_soc"`
	DischargeFloorSOC  float64 `yaml:"discharge_floor_soc"`
}

// FaultDetectConfig derives the recloser's fault indicator from the
// estimated state rather than the (unobservable) true state.
type FaultDetectConfig struct {
	// UndervoltagePU flags a fault when any estimated bus voltage falls
	// below this level.
	UndervoltagePU float64 `yaml:"undervoltage_pu"`
	// OvercurrentPU flags a fault when transformer loading exceeds this
	// multiple of rating.
	OvercurrentPU float64 `yaml:"overcurrent_pu"`
}

// Default returns the configuration the demo feeder runs with.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			DTSeconds:       0.05,
			Seed:            1,
			TicksPerHour:    60,
			AmbientTempC:    28.0,
			OnNumericFault:  FaultHold,
			ForecastHorizon: 24,
			LedgerCapacity:  10000,
		},
		Generator: GeneratorConfig{
			BaseMVA:             10.0,
			NominalHz:           50.0,
			InertiaH:            5.0,
			DampingD:            1.0,
			GovernorGainKWPerHz: 1000.0,
			InitialMechPowerKW:  5000.0,
		},
		Transformer: TransformerConfig{
			RatingKVA:     10000.0,
			RatedRiseC:    65.0,
			TimeConstantS: 20.0,
			RiseExponent:  2.0,
			InitialTempC:  40.0,
		},
		PV: PVConfig{
			NOCTC:         45.0,
			TempCoeffPerC: -0.0041,
			STCTempC:      25.0,
		},
		Noise: NoiseConfig{
			VoltageSigma:   0.015,
			FrequencySigma: 0.005,
			PowerSigma:     0.02,
		},
		FDI: FDIConfig{Enabled: false, BiasPU: 0.15},
		WLS: WLSConfig{Tolerance: 1e-4, MaxIter: 10, Chi2Alpha: 0.05},
		Recloser: RecloserConfig{
			MaxAttempts:       2,
			RecloseDelayTicks: 5,
			DebounceTicks:     2,
		},
		AVR: AVRConfig{
			VMinPU:              0.96,
			VMaxPU:              1.04,
			MinTapIntervalTicks: 10,
			TapStep:             0.0125,
			TapMin:              0.90,
			TapMax:              1.10,
		},
		Solar: SolarConfig{EnterRatio: 0.6, ExitRatio: 0.4, Blend: true},
		Inverter: InverterConfig{
			Enabled:            true,
			VoltWattStartPU:    1.05,
			VoltWattSlopePerPU: 10.0,
			VoltVARHighPU:      1.02,
			VoltVARLowPU:       0.98,
			VoltVARSlopePerPU:  5.0,
			MaxVARFraction:     0.44,
		},
		Storage: StorageConfig{
			Enabled:             true,
			CapacityKWh:         500.0,
			MaxPowerKW:          100.0,
			ChargeEfficiency:    0.95,
			DischargeEfficiency: 0.95,
			MinSOC:              0.05,
			MaxSOC:              1.0,
			InitialSOC:          0.5,
			ChargeStartHour:     10,
			ChargeEndHour:       15,
			DischargeStartHour:  18,
			DischargeEndHour:    22,
			ChargeFraction:      0.8,
			ChargeCeilingSOC:    0.95,
			DischargeFloorSOC:   0.20,
		},
		FaultDetect: FaultDetectConfig{
			UndervoltagePU: 0.85,
			OvercurrentPU:  1.5,
		},
	}
}

// Load reads a YAML config over the defaults and validates the result.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads a config over the defaults but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate catches configuration errors before the simulation starts; any
// error here is fatal at startup.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Simulation.DTSeconds <= 0 {
		return fmt.Errorf("simulation.dt_seconds must be > 0, got %g", c.Simulation.DTSeconds)
	}
	if c.Simulation.TicksPerHour < 1 {
		return errors.New("simulation.ticks_per_hour must be >= 1")
	}
	if c.Simulation.ForecastHorizon < 1 {
		return errors.New("simulation.forecast_horizon must be >= 1")
	}
	if c.Simulation.LedgerCapacity < 1 {
		return errors.New("simulation.ledger_capacity must be >= 1")
	}
	switch c.Simulation.OnNumericFault {
	case FaultHold, FaultHalt:
	default:
		return fmt.Errorf("simulation.on_numeric_fault must be %q or %q", FaultHold, FaultHalt)
	}

	if err := c.GeneratorParams().Validate(); err != nil {
		return fmt.Errorf("generator config invalid: %w", err)
	}
	if err := c.TransformerParams().Validate(); err != nil {
		return fmt.Errorf("transformer config invalid: %w", err)
	}
	if err := c.PVParams().Validate(); err != nil {
		return fmt.Errorf("pv config invalid: %w", err)
	}
	if err := c.NoiseParams().Validate(); err != nil {
		return fmt.Errorf("noise config invalid: %w", err)
	}
	if err := c.WLSParams().Validate(); err != nil {
		return fmt.Errorf("wls config invalid: %w", err)
	}
	if err := c.RecloserParams().Validate(); err != nil {
		return fmt.Errorf("recloser config invalid: %w", err)
	}
	if err := c.AVRParams().Validate(); err != nil {
		return fmt.Errorf("avr config invalid: %w", err)
	}
	if err := c.SolarParams().Validate(); err != nil {
		return fmt.Errorf("solar config invalid: %w", err)
	}
	if err := c.InverterParams().Validate(); err != nil {
		return fmt.Errorf("inverter config invalid: %w", err)
	}
	if c.Storage.Enabled {
		if _, err := c.BuildStorage(); err != nil {
			return fmt.Errorf("storage config invalid: %w", err)
		}
		if err := c.PeakShaveParams().Validate(); err != nil {
			return fmt.Errorf("storage config invalid: %w", err)
		}
	}
	if c.FaultDetect.UndervoltagePU <= 0 || c.FaultDetect.UndervoltagePU >= 1 {
		return errors.New("fault_detect.undervoltage_pu must be in (0, 1)")
	}
	if c.FaultDetect.OvercurrentPU <= 1 {
		return errors.New("fault_detect.overcurrent_pu must be > 1")
	}

	if c.Topology != nil {
		if err := c.Topology.Validate(); err != nil {
			return fmt.Errorf("topology config invalid: %w", err)
		}
	}
	return nil
}

// BuildTopology returns the configured feeder topology, validated, or the
// built-in default feeder when none is configured.
func (c *Config) BuildTopology() (*topology.Topology, error) {
	if c.Topology == nil {
		return topology.DefaultFeeder(), nil
	}
	if err := c.Topology.Validate(); err != nil {
		return nil, err
	}
	return c.Topology, nil
}

func (c *Config) GeneratorParams() physics.GeneratorParams {
	return physics.GeneratorParams{
		BaseMVA:             c.Generator.BaseMVA,
		NominalHz:           c.Generator.NominalHz,
		InertiaH:            c.Generator.InertiaH,
		DampingD:            c.Generator.DampingD,
		GovernorGainKWPerHz: c.Generator.GovernorGainKWPerHz,
		InitialMechPowerKW:  c.Generator.InitialMechPowerKW,
	}
}

func (c *Config) TransformerParams() physics.TransformerParams {
	return physics.TransformerParams{
		RatingKVA:     c.Transformer.RatingKVA,
		RatedRiseC:    c.Transformer.RatedRiseC,
		TimeConstantS: c.Transformer.TimeConstantS,
		RiseExponent:  c.Transformer.RiseExponent,
		InitialTempC:  c.Transformer.InitialTempC,
	}
}

func (c *Config) PVParams() physics.PVParams {
	return physics.PVParams{
		NOCTC:         c.PV.NOCTC,
		TempCoeffPerC: c.PV.TempCoeffPerC,
		STCTempC:      c.PV.STCTempC,
	}
}

func (c *Config) NoiseParams() scada.NoiseParams {
	return scada.NoiseParams{
		VoltageSigma:   c.Noise.VoltageSigma,
		FrequencySigma: c.Noise.FrequencySigma,
		PowerSigma:     c.Noise.PowerSigma,
	}
}

func (c *Config) FDIParams() scada.FDIParams {
	return scada.FDIParams{
		Enabled:   c.FDI.Enabled,
		BiasPU:    c.FDI.BiasPU,
		TargetBus: c.FDI.TargetBus,
	}
}

func (c *Config) WLSParams() estimator.Params {
	return estimator.Params{
		Tolerance: c.WLS.Tolerance,
		MaxIter:   c.WLS.MaxIter,
		Chi2Alpha: c.WLS.Chi2Alpha,
	}
}

func (c *Config) RecloserParams() protection.RecloserParams {
	return protection.RecloserParams{
		MaxAttempts:         c.Recloser.MaxAttempts,
		ReclosureDelayTicks: c.Recloser.RecloseDelayTicks,
		DebounceTicks:       c.Recloser.DebounceTicks,
	}
}

func (c *Config) AVRParams() protection.AVRParams {
	return protection.AVRParams{
		VMinPU:              c.AVR.VMinPU,
		VMaxPU:              c.AVR.VMaxPU,
		MinTapIntervalTicks: c.AVR.MinTapIntervalTicks,
		TapStep:             c.AVR.TapStep,
		TapMin:              c.AVR.TapMin,
		TapMax:              c.AVR.TapMax,
	}
}

func (c *Config) SolarParams() dispatch.SolarHandoverParams {
	return dispatch.SolarHandoverParams{
		EnterRatio:      c.Solar.EnterRatio,
		ExitRatio:       c.Solar.ExitRatio,
		BlendBelowEnter: c.Solar.Blend,
	}
}

func (c *Config) InverterParams() physics.InverterParams {
	return physics.InverterParams{
		Enabled:            c.Inverter.Enabled,
		VoltWattStartPU:    c.Inverter.VoltWattStartPU,
		VoltWattSlopePerPU: c.Inverter.VoltWattSlopePerPU,
		VoltVARHighPU:      c.Inverter.VoltVARHighPU,
		VoltVARLowPU:       c.Inverter.VoltVARLowPU,
		VoltVARSlopePerPU:  c.Inverter.VoltVARSlopePerPU,
		MaxVARFraction:     c.Inverter.MaxVARFraction,
	}
}

func (c *Config) PeakShaveParams() dispatch.PeakShaveParams {
	return dispatch.PeakShaveParams{
		ChargeStartHour:    c.Storage.ChargeStartHour,
		ChargeEndHour:      c.Storage.ChargeEndHour,
		DischargeStartHour: c.Storage.DischargeStartHour,
		DischargeEndHour:   c.Storage.DischargeEndHour,
		ChargeFraction:     c.Storage.ChargeFraction,
		ChargeCeilingSOC:   c.Storage.ChargeCeilingSOC,
		DischargeFloorSOC:  c.Storage.DischargeFloorSOC,
	}
}

// BuildStorage constructs the battery asset at its configured initial state
// of charge, or nil when storage is disabled.
func (c *Config) BuildStorage() (*model.Storage, error) {
	if !c.Storage.Enabled {
		return nil, nil
	}
	return model.NewStorage(model.StorageParams{
		CapacityKWh:         c.Storage.CapacityKWh,
		MaxPowerKW:          c.Storage.MaxPowerKW,
		ChargeEfficiency:    c.Storage.ChargeEfficiency,
		DischargeEfficiency: c.Storage.DischargeEfficiency,
		MinSOC:              c.Storage.MinSOC,
		MaxSOC:              c.Storage.MaxSOC,
	}, c.Storage.InitialSOC)
}
