package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_FromYAML(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", "basic.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "basic", sc.Name)
	require.Len(t, sc.Setups, 2)
	assert.Equal(t, "Cart.addItem", sc.Setups[0].Method)
	assert.True(t, sc.Setups[0].Returns)
	require.Len(t, sc.Calls, 2)
	require.NotNil(t, sc.Calls[0].Expect)
	require.NotNil(t, sc.Calls[0].Expect.Setup)
	assert.Equal(t, 1, *sc.Calls[0].Expect.Setup)
	assert.True(t, sc.Calls[1].Expect.Unmatched)
	require.Len(t, sc.Verify, 2)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadScenario_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: [unclosed"), 0o644))

	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestScenario_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sc      Scenario
		wantErr string
	}{
		{
			name:    "missing name",
			sc:      Scenario{},
			wantErr: "no name",
		},
		{
			name: "bad setup method",
			sc: Scenario{
				Name:   "x",
				Setups: []SetupSpec{{Method: "noDot"}},
			},
			wantErr: "Type.Name",
		},
		{
			name: "expect out of range",
			sc: Scenario{
				Name:   "x",
				Setups: []SetupSpec{{Method: "Svc.call"}},
				Calls:  []CallStep{{Method: "Svc.call", Expect: &ExpectClause{Setup: intp(3)}}},
			},
			wantErr: "out of range",
		},
		{
			name: "verify out of range",
			sc: Scenario{
				Name:   "x",
				Verify: []VerifyStep{{Setup: 0}},
			},
			wantErr: "out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sc.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
