package flows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		description string
		input       string
		expect      *Key
		hasError    bool
	}{
		{
			description: "plain chemical",
			input:       "Water",
			expect:      &Key{Name: "Water"},
		},
		{
			description: "group with members",
			input:       "sugars[Glucose,Sucrose]",
			expect:      &Key{Name: "sugars", Members: []string{"Glucose", "Sucrose"}},
		},
		{
			description: "group with spaces",
			input:       "sugars[ Glucose , Sucrose ]",
			expect:      &Key{Name: "sugars", Members: []string{"Glucose", "Sucrose"}},
		},
		{
			description: "single member group",
			input:       "solvent[Water]",
			expect:      &Key{Name: "solvent", Members: []string{"Water"}},
		},
		{
			description: "unterminated group",
			input:       "sugars[Glucose",
			hasError:    true,
		},
		{
			description: "empty group",
			input:       "sugars[]",
			hasError:    true,
		},
		{
			description: "not an identifier",
			input:       "9lives",
			hasError:    true,
		},
	}

	for _, testCase := range testCases {
		actual, err := Parse([]byte(testCase.input))
		if testCase.hasError {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.EqualValues(t, testCase.expect, actual, testCase.description)
	}
}

func TestParsePort(t *testing.T) {
	testCases := []struct {
		description string
		input       string
		expect      *Port
	}{
		{
			description: "first outlet",
			input:       "M1-0",
			expect:      &Port{Unit: "M1", Outlet: 0},
		},
		{
			description: "double digit outlet",
			input:       "splitter-12",
			expect:      &Port{Unit: "splitter", Outlet: 12},
		},
		{
			description: "plain name is not a port",
			input:       "recycle",
		},
		{
			description: "missing outlet index",
			input:       "M1-",
		},
		{
			description: "trailing content",
			input:       "M1-0x",
		},
		{
			description: "group expression is not a port",
			input:       "sugars[Glucose]",
		},
	}

	for _, testCase := range testCases {
		actual, ok := ParsePort([]byte(testCase.input))
		if testCase.expect == nil {
			assert.False(t, ok, testCase.description)
			continue
		}
		require.True(t, ok, testCase.description)
		assert.EqualValues(t, testCase.expect, actual, testCase.description)
	}
}
