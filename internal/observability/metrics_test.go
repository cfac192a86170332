package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-trust-lab/internal/domain"
)

// counterValue sums every series of the named counter family in reg.
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestRecordResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordResult(&domain.ScoreResult{
		Terminal:    domain.TerminalVerdict,
		Verdict:     domain.VerdictGood,
		FinalScore:  60,
		TrustFactor: 0.8,
		TrustDetails: domain.TrustDetails{
			{Key: domain.PenaltyAdLoad, Multiplier: 0.8},
			{Key: domain.PenaltyBotWall, Multiplier: 0.6},
		},
	}, 0.002)

	assert.Equal(t, 1.0, counterValue(t, reg, "test_scoring_snapshots_scored_total"))
	assert.Equal(t, 2.0, counterValue(t, reg, "test_scoring_penalties_total"))
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	regA := prometheus.NewRegistry()
	regB := prometheus.NewRegistry()
	a := NewMetrics("test", regA)
	NewMetrics("test", regB)

	a.RecordError("store")
	assert.Equal(t, 1.0, counterValue(t, regA, "test_scoring_errors_total"))
	assert.Equal(t, 0.0, counterValue(t, regB, "test_scoring_errors_total"))
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		logger, err := NewLogger(env)
		require.NoError(t, err, env)
		assert.NotNil(t, logger)
	}
}
