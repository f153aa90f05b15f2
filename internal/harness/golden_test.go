package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGolden_BuyMilk(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/buy_milk.yaml")
	require.NoError(t, err)

	result := RunWithGolden(t, s)
	require.True(t, result.Pass)
}
