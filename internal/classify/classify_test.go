package classify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyEmptyIsAmbiguous(t *testing.T) {
	v := Classify("", "")
	require.True(t, v.Ambiguous)
	require.Equal(t, "no text", v.Reason)
}

func TestClassifyTerminalDepositDominatesTopUp(t *testing.T) {
	v := Classify("Cash In Терминал ID 42", "")
	require.False(t, v.Ambiguous)
	require.False(t, v.IsRevenue)
	require.Equal(t, "terminal self-deposit", v.Reason)
}

func TestClassifyRevenueMarker(t *testing.T) {
	v := Classify("Оплата по договору", "")
	require.False(t, v.Ambiguous)
	require.True(t, v.IsRevenue)
}

func TestClassifyNonRevenueMarker(t *testing.T) {
	v := Classify("Salary payment for March", "")
	require.False(t, v.Ambiguous)
	require.False(t, v.IsRevenue)
}

func TestClassifyTopUpNeedsContext(t *testing.T) {
	v := Classify("Пополнение счета от ИП Ахметов", "")
	require.True(t, v.Ambiguous)
	require.Equal(t, "needs context", v.Reason)
}

func TestClassifyNoExplicitMarkers(t *testing.T) {
	v := Classify("misc entry 42", "unknown sender")
	require.True(t, v.Ambiguous)
	require.Equal(t, "no explicit markers", v.Reason)
}

func TestClassifyScenarioOne(t *testing.T) {
	cases := []struct {
		purpose   string
		isRevenue bool
	}{
		{"Оплата по СФ №12", true},
		{"Оплата за услуги", true},
		{"Оплата по договору", true},
	}
	for _, c := range cases {
		v := Classify(c.purpose, "")
		require.False(t, v.Ambiguous, c.purpose)
		require.Equal(t, c.isRevenue, v.IsRevenue, c.purpose)
	}
}
