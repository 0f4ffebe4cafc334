package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/config"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/physics"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/sim"
)

// Demo:
// - Run the feeder at steady state
// - Inject a three-phase fault and watch the recloser sequence to lockout
// - Clear the fault, reset the recloser, and restore service
func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	faultBus := flag.String("bus", "bus2008", "Bus to fault")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}

	loop, err := sim.New(cfg)
	if err != nil {
		panic(err)
	}
	defer loop.Close()

	ctx := context.Background()
	report := func(label string) {
		s := loop.Latest()
		fmt.Printf("[tick %4d] %-24s f=%.3fHz minV=%.3fpu xfmr=%.2fpu recloser=%s\n",
			s.Tick, label, s.State.FrequencyHz,
			s.MinVoltagePU(loop.Topology().SourceBus), s.State.TransformerLoadPU,
			s.Recloser.State)
	}

	must(loop.Run(ctx, 200, 0))
	report("steady state")

	fmt.Printf("\n--- injecting %s fault at %s ---\n", physics.FaultLLL, *faultBus)
	must(loop.InjectFault(*faultBus, physics.FaultLLL, 0))

	prev := loop.Latest().Recloser.State
	for i := 0; i < 60; i++ {
		must(loop.Step())
		if s := loop.Latest().Recloser.State; s != prev {
			report(fmt.Sprintf("recloser %s -> %s", prev, s))
			prev = s
		}
	}
	report("fault persisting")

	fmt.Println("\n--- clearing fault, resetting recloser ---")
	loop.ClearFault()
	if !loop.ResetRecloser() {
		fmt.Println("reset ignored (not locked out)")
	}
	must(loop.Run(ctx, 100, 0))
	report("service restored")
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
