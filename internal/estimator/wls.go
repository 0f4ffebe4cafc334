// Package estimator reconstructs the feeder operating point from noisy SCADA
// telemetry with an iterative Gauss-Newton weighted-least-squares solve, and
// applies a chi-squared residual test for bad-data detection.
package estimator

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/google/uuid"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/model"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/topology"
)

// ErrNotConverged indicates the Gauss-Newton iteration hit the iteration cap
// before the update norm fell under tolerance. The accompanying estimate is
// the last iterate and must be treated as untrustworthy by control logic.
var ErrNotConverged = errors.New("estimator: gauss-newton did not converge")

// Params are the estimator convergence and detection controls.
type Params struct {
	// Tolerance is the convergence threshold on the update norm.
	Tolerance float64
	// MaxIter caps Gauss-Newton iterations per bus.
	MaxIter int
	// Chi2Alpha is the bad-data test significance level (e.g. 0.05).
	Chi2Alpha float64
}

func (p Params) Validate() error {
	if p.Tolerance <= 0 {
		return errors.New("Tolerance must be > 0")
	}
	if p.MaxIter < 1 {
		return errors.New("MaxIter must be >= 1")
	}
	if p.Chi2Alpha <= 0 || p.Chi2Alpha >= 1 {
		return errors.New("Chi2Alpha must be in (0, 1)")
	}
	return nil
}

// DefaultParams matches the usual estimator tuning for this feeder.
func DefaultParams() Params {
	return Params{Tolerance: 1e-4, MaxIter: 10, Chi2Alpha: 0.05}
}

// WLS is the weighted-least-squares state estimator. It is deterministic:
// fixed measurements and a flat start always produce the same estimate.
type WLS struct {
	top    *topology.Topology
	params Params
	baseKW float64
}

// New builds an estimator over the given topology. baseKW converts power
// telemetry (kW/kVAR) to per unit.
func New(top *topology.Topology, params Params, baseKW float64) (*WLS, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if baseKW <= 0 {
		return nil, errors.New("baseKW must be > 0")
	}
	return &WLS{top: top, params: params, baseKW: baseKW}, nil
}

// busSet is the telemetry for one metered bus: voltage plus net P and Q.
type busSet struct {
	v, p, q          model.Measurement
	hasV, hasP, hasQ bool
}

// Estimate runs the estimator on one tick's measurement set. vSource is the
// substation source voltage (the applied tap position).
//
// On non-convergence of any bus the estimate is still returned, flagged, with
// ErrNotConverged; on detected bad data the offending measurement is removed
// and the estimation is re-run once, with the suspect sensor reported.
func (w *WLS) Estimate(measurements []model.Measurement, vSource float64) (model.EstimatedState, error) {
	est, err := w.estimateOnce(measurements, vSource)
	if err != nil {
		return est, err
	}

	if est.DOF > 0 {
		est.Threshold = distuv.ChiSquared{K: float64(est.DOF)}.Quantile(1 - w.params.Chi2Alpha)
		if est.CostJ > est.Threshold {
			est.BadData = true
			suspect, ok := w.largestNormalizedResidual(measurements, est, vSource)
			if ok {
				est.SuspectSensor = suspect
				// Re-estimate without the suspect measurement.
				kept := make([]model.Measurement, 0, len(measurements)-1)
				for _, m := range measurements {
					if m.SensorID != suspect {
						kept = append(kept, m)
					}
				}
				reEst, reErr := w.estimateOnce(kept, vSource)
				if reErr == nil {
					reEst.BadData = true
					reEst.SuspectSensor = suspect
					if reEst.DOF > 0 {
						reEst.Threshold = distuv.ChiSquared{K: float64(reEst.DOF)}.Quantile(1 - w.params.Chi2Alpha)
					}
					est = reEst
				}
			}
		}
	}
	return est, nil
}

func (w *WLS) estimateOnce(measurements []model.Measurement, vSource float64) (model.EstimatedState, error) {
	sets := w.groupByBus(measurements)

	est := model.EstimatedState{Buses: make(map[string]model.BusEstimate, len(sets))}
	var nonConverged bool
	var nStates, nMeas int

	for _, bus := range w.top.MeteredBuses() {
		set, ok := sets[bus]
		if !ok || !set.hasV {
			continue
		}
		z, sigmas, m := set.vectors(w.baseKW)
		nMeas += m
		if m >= 2 {
			nStates += 2
		} else {
			nStates += m
		}

		r, err := w.top.PathImpedance(bus)
		if err != nil {
			return est, fmt.Errorf("estimate bus %q: %w", bus, err)
		}

		sol := w.solveBus(z, sigmas, real(r), imag(r), vSource)
		est.Buses[bus] = model.BusEstimate{VoltagePU: sol.v, AngleRad: sol.delta}
		est.Residuals = append(est.Residuals, sol.residuals...)
		est.CostJ += sol.costJ
		if sol.iterations > est.Iterations {
			est.Iterations = sol.iterations
		}
		if !sol.converged {
			nonConverged = true
		}
	}

	est.DOF = nMeas - nStates
	est.Converged = !nonConverged
	if nonConverged {
		return est, ErrNotConverged
	}
	return est, nil
}

type busSolution struct {
	v, delta   float64
	residuals  []float64
	costJ      float64
	iterations int
	converged  bool
}

// solveBus runs Gauss-Newton on the two-state model [V, delta] of one bus fed
// through the series impedance (r, x) from the source.
//
// At each iteration: residual r = z - h(x), weight W = diag(1/sigma^2), solve
// the normal equations (H^T W H) dx = H^T W r, step x += dx, until
// ||dx|| < tolerance or MaxIter.
func (w *WLS) solveBus(z, sigmas []float64, r, x, vSource float64) busSolution {
	n := len(z)
	weights := make([]float64, n)
	for i, s := range sigmas {
		weights[i] = 1.0 / (s * s)
	}

	// A lone voltage measurement observes V directly; the angle is held at
	// zero. This arises after bad-data removal strips a bus's power pair.
	if n < 2 {
		return busSolution{v: z[0], delta: 0, residuals: []float64{0}, converged: true}
	}

	state := []float64{1.0, 0.0} // flat start
	sol := busSolution{converged: false}

	var resid []float64
	for iter := 1; iter <= w.params.MaxIter; iter++ {
		sol.iterations = iter

		h := w.measurementModel(state[0], state[1], r, x, vSource, n)
		resid = make([]float64, n)
		for i := range z {
			resid[i] = z[i] - h[i]
		}

		// Finite-difference Jacobian, one column per state variable.
		const eps = 1e-5
		jac := mat.NewDense(n, 2, nil)
		for col := 0; col < 2; col++ {
			pert := []float64{state[0], state[1]}
			pert[col] += eps
			hp := w.measurementModel(pert[0], pert[1], r, x, vSource, n)
			for row := 0; row < n; row++ {
				jac.Set(row, col, (hp[row]-h[row])/eps)
			}
		}

		// Normal equations G dx = H^T W r.
		var wh mat.Dense
		wh.CloneFrom(jac)
		for row := 0; row < n; row++ {
			for col := 0; col < 2; col++ {
				wh.Set(row, col, jac.At(row, col)*weights[row])
			}
		}
		var g mat.Dense
		g.Mul(jac.T(), &wh)

		wr := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			wr.SetVec(i, weights[i]*resid[i])
		}
		rhs := mat.NewVecDense(2, nil)
		rhs.MulVec(jac.T(), wr)

		var dx mat.VecDense
		if err := dx.SolveVec(&g, rhs); err != nil {
			// Singular gain matrix; report the current iterate unconverged.
			break
		}

		state[0] += dx.AtVec(0)
		state[1] += dx.AtVec(1)

		if mat.Norm(&dx, 2) < w.params.Tolerance {
			sol.converged = true
			// Residuals at the accepted state.
			h = w.measurementModel(state[0], state[1], r, x, vSource, n)
			for i := range z {
				resid[i] = z[i] - h[i]
			}
			break
		}
	}

	sol.v = state[0]
	sol.delta = state[1]
	sol.residuals = resid
	for i, ri := range resid {
		sol.costJ += weights[i] * ri * ri
	}
	return sol
}

// measurementModel is h(x): predicted [V, P_pu, (Q_pu)] for bus state
// (v, delta) behind impedance (r, x) from the source at vSource.
func (w *WLS) measurementModel(v, delta, r, x, vSource float64, n int) []float64 {
	vc := cmplx.Rect(v, delta)
	vs := complex(vSource, 0)
	zline := complex(r, x)
	ic := (vs - vc) / zline
	sc := vc * cmplx.Conj(ic)

	h := []float64{v, real(sc), imag(sc)}
	return h[:n]
}

// largestNormalizedResidual finds the sensor whose residual, scaled by its
// sigma, is largest. Used to pick the removal candidate after a chi-squared
// alarm.
func (w *WLS) largestNormalizedResidual(measurements []model.Measurement, est model.EstimatedState, vSource float64) (suspect uuid.UUID, ok bool) {
	sets := w.groupByBus(measurements)

	best := -1.0
	for _, bus := range w.top.MeteredBuses() {
		set, found := sets[bus]
		if !found || !set.hasV {
			continue
		}
		be, found := est.Buses[bus]
		if !found {
			continue
		}
		z, sigmas, n := set.vectors(w.baseKW)
		zpath, err := w.top.PathImpedance(bus)
		if err != nil {
			continue
		}
		h := w.measurementModel(be.VoltagePU, be.AngleRad, real(zpath), imag(zpath), vSource, n)
		ids := set.sensorIDs()
		for i := 0; i < n; i++ {
			norm := math.Abs(z[i]-h[i]) / sigmas[i]
			if norm > best {
				best = norm
				suspect = ids[i]
				ok = true
			}
		}
	}
	return suspect, ok
}

func (w *WLS) groupByBus(measurements []model.Measurement) map[string]*busSet {
	sets := make(map[string]*busSet)
	for _, m := range measurements {
		if m.Bus == "" {
			continue // frequency telemetry is not part of the bus solve
		}
		set, ok := sets[m.Bus]
		if !ok {
			set = &busSet{}
			sets[m.Bus] = set
		}
		switch m.Kind {
		case model.MeasVoltagePU:
			set.v, set.hasV = m, true
		case model.MeasActiveKW:
			set.p, set.hasP = m, true
		case model.MeasReactiveKVAR:
			set.q, set.hasQ = m, true
		}
	}
	return sets
}

// vectors flattens a bus set to aligned measurement and sigma vectors in per
// unit, ordered [V, P, Q] with absent trailing entries dropped.
func (s *busSet) vectors(baseKW float64) (z, sigmas []float64, n int) {
	z = append(z, s.v.Value)
	sigmas = append(sigmas, s.v.Sigma)
	if s.hasP {
		z = append(z, s.p.Value/baseKW)
		sigmas = append(sigmas, s.p.Sigma/baseKW)
	}
	if s.hasP && s.hasQ {
		z = append(z, s.q.Value/baseKW)
		sigmas = append(sigmas, s.q.Sigma/baseKW)
	}
	return z, sigmas, len(z)
}

func (s *busSet) sensorIDs() []uuid.UUID {
	ids := []uuid.UUID{s.v.SensorID}
	if s.hasP {
		ids = append(ids, s.p.SensorID)
	}
	if s.hasP && s.hasQ {
		ids = append(ids, s.q.SensorID)
	}
	return ids
}
