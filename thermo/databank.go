package thermo

// databank holds the built-in pure-component property set. Antoine
// coefficients are log10/Pa/K; values for permanent gases and solids are
// left zero so that they are treated as non-condensable or non-volatile.
var databank = []*Chemical{
	{
		ID: "Water", CAS: "7732-18-5", MW: 18.015, Tb: 373.15, Vl: 0.01807,
		Cpl: 75.3, Cpg: 33.6, Hvap: 40650,
		Antoine: Antoine{A: 10.19621, B: 1730.63, C: -39.724}, RefPhase: PhaseLiquid,
	},
	{
		ID: "Ethanol", CAS: "64-17-5", MW: 46.069, Tb: 351.39, Vl: 0.05841,
		Cpl: 112.3, Cpg: 65.6, Hvap: 38600,
		Antoine: Antoine{A: 10.32907, B: 1642.89, C: -42.85}, RefPhase: PhaseLiquid,
	},
	{
		ID: "Methanol", CAS: "67-56-1", MW: 32.042, Tb: 337.85, Vl: 0.04073,
		Cpl: 81.1, Cpg: 44.1, Hvap: 35200,
		Antoine: Antoine{A: 10.02240, B: 1474.08, C: -44.02}, RefPhase: PhaseLiquid,
	},
	{
		ID: "AceticAcid", CAS: "64-19-7", MW: 60.052, Tb: 391.05, Vl: 0.05731,
		Cpl: 123.1, Cpg: 63.4, Hvap: 23700,
		Antoine: Antoine{A: 9.51272, B: 1533.313, C: -50.841}, RefPhase: PhaseLiquid,
	},
	{
		ID: "Octane", CAS: "111-65-9", MW: 114.229, Tb: 398.83, Vl: 0.16257,
		Cpl: 255.7, Cpg: 188.9, Hvap: 34410,
		Antoine: Antoine{A: 9.04358, B: 1351.99, C: -64.0}, RefPhase: PhaseLiquid,
	},
	{
		ID: "Glucose", CAS: "50-99-7", MW: 180.156, Tb: 0, Vl: 0.11548,
		Cpl: 219.2, RefPhase: PhaseSolid,
	},
	{
		ID: "Sucrose", CAS: "57-50-1", MW: 342.297, Tb: 0, Vl: 0.21569,
		Cpl: 425.5, RefPhase: PhaseSolid,
	},
	{
		ID: "O2", CAS: "7782-44-7", MW: 31.998, Tb: 90.19, Vl: 0.02856,
		Cpg: 29.4, RefPhase: PhaseGas,
	},
	{
		ID: "N2", CAS: "7727-37-9", MW: 28.014, Tb: 77.36, Vl: 0.03484,
		Cpg: 29.1, RefPhase: PhaseGas,
	},
	{
		ID: "CO2", CAS: "124-38-9", MW: 44.009, Tb: 194.69, Vl: 0.03707,
		Cpg: 37.1, RefPhase: PhaseGas,
	},
}

var databankByID = func() map[string]*Chemical {
	result := make(map[string]*Chemical, len(databank))
	for _, chemical := range databank {
		result[chemical.ID] = chemical
	}
	return result
}()

// LookupChemical returns a built-in chemical by ID, or nil when unknown.
func LookupChemical(id string) *Chemical {
	return databankByID[id]
}
