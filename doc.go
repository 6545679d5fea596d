// Package flowsim provides a steady-state chemical process simulator.
//
// Flowsheets are defined declaratively (for example in YAML) and describe
// chemicals, process streams and unit operations. The engine comes with
// pluggable service layers such as:
//
//   - system     – flowsheet assembly, recycle convergence, design and costing
//   - thermo     – chemicals, streams and phase equilibrium
//   - evaluation – Monte Carlo evaluation of uncertain parameters
//
// Flowsim is designed to be embedded in host applications.  End-users
// typically interact with the engine via the high-level Service façade
// exposed by the root package:
//
//	srv := flowsim.New()
//	rt  := srv.Runtime()
//	fs, _ := rt.LoadFlowsheet(ctx, "flowsheet.yaml")
//	run, _ := rt.Simulate(ctx, fs)
//
// For more details see the README and individual sub-packages.
package flowsim
