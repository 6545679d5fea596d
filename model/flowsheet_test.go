package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFlowsheet() *Flowsheet {
	f := NewFlowsheet("dilution").
		WithChemicals("Water", "Ethanol").
		WithDescription("dilute an ethanol feed with water")
	f.AddStream("feed").WithFlow("Ethanol", 10)
	f.AddStream("water").WithFlow("Water", 40)
	f.AddStream("diluted")
	f.AddUnit("M1", "mixer", []string{"feed", "water"}, []string{"diluted"})
	return f
}

func TestFlowsheetValidate(t *testing.T) {
	assert.Empty(t, validFlowsheet().Validate())
}

func TestFlowsheetValidateCatchesIssues(t *testing.T) {
	testCases := []struct {
		description string
		mutate      func(f *Flowsheet)
		expect      string
	}{
		{
			description: "missing name",
			mutate:      func(f *Flowsheet) { f.Name = "" },
			expect:      "no name",
		},
		{
			description: "duplicate stream",
			mutate:      func(f *Flowsheet) { f.AddStream("feed") },
			expect:      "duplicate stream",
		},
		{
			description: "duplicate unit",
			mutate: func(f *Flowsheet) {
				f.AddStream("other")
				f.AddUnit("M1", "pump", []string{"diluted"}, []string{"other"})
			},
			expect: "duplicate unit",
		},
		{
			description: "unknown unit type",
			mutate:      func(f *Flowsheet) { f.Unit("M1").Type = "reactor" },
			expect:      "unknown type",
		},
		{
			description: "unknown inlet stream",
			mutate:      func(f *Flowsheet) { f.Unit("M1").Ins[0] = "missing" },
			expect:      "unknown stream",
		},
		{
			description: "wrong outlet count",
			mutate: func(f *Flowsheet) {
				f.AddStream("extra")
				f.Unit("M1").Outs = append(f.Unit("M1").Outs, "extra")
			},
			expect: "requires 1 outlets",
		},
		{
			description: "unknown flow key",
			mutate:      func(f *Flowsheet) { f.Stream("feed").WithFlow("Benzene", 1) },
			expect:      "unknown chemical or group",
		},
		{
			description: "group collides with chemical",
			mutate:      func(f *Flowsheet) { f.WithGroup("Water", "Ethanol") },
			expect:      "collides",
		},
		{
			description: "two producers for one stream",
			mutate: func(f *Flowsheet) {
				f.AddStream("bypass")
				f.AddUnit("P1", "pump", []string{"bypass"}, []string{"diluted"})
			},
			expect: "produced by both",
		},
		{
			description: "feed flow on a produced stream",
			mutate:      func(f *Flowsheet) { f.Stream("diluted").WithFlow("Water", 1) },
			expect:      "produced by unit",
		},
		{
			description: "self-referential connection",
			mutate: func(f *Flowsheet) {
				f.AddStream("loop")
				f.AddUnit("P1", "pump", []string{"loop"}, []string{"loop"})
			},
			expect: "both an inlet and an outlet",
		},
		{
			description: "unknown convergence method",
			mutate: func(f *Flowsheet) {
				f.WithConvergence(&ConvergenceDef{Method: "newton"})
			},
			expect: "unknown convergence method",
		},
	}

	for _, testCase := range testCases {
		f := validFlowsheet()
		testCase.mutate(f)
		issues := f.Validate()
		require.NotEmpty(t, issues, testCase.description)
		found := false
		for _, issue := range issues {
			if strings.Contains(issue.Error(), testCase.expect) {
				found = true
				break
			}
		}
		assert.True(t, found, "%s: issues %v should mention %q", testCase.description, issues, testCase.expect)
	}
}

func TestFlowsheetClone(t *testing.T) {
	original := validFlowsheet().WithGroup("solvent", "Water")
	clone := original.Clone()

	require.NotNil(t, clone)
	assert.Equal(t, original.Name, clone.Name)
	assert.Equal(t, original.Chemicals, clone.Chemicals)
	assert.Equal(t, original.Groups, clone.Groups)
	require.Len(t, clone.Streams, len(original.Streams))
	require.Len(t, clone.Units, len(original.Units))

	clone.Stream("feed").Flow["Ethanol"] = 99
	clone.Unit("M1").Ins[0] = "changed"
	assert.EqualValues(t, 10, original.Stream("feed").Flow["Ethanol"])
	assert.Equal(t, "feed", original.Unit("M1").Ins[0])
}
