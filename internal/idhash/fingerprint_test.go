package idhash

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-trust-lab/internal/domain"
)

func sampleResult() *domain.ScoreResult {
	v := 0.42
	return &domain.ScoreResult{
		SnapshotID:    ComputeSnapshotID("chan", 1000),
		ChannelID:     "chan",
		ScannedAt:     1000,
		ConfigVersion: "v48.0",
		RawScore:      71.3,
		TrustFactor:   0.85,
		FinalScore:    61,
		Verdict:       domain.VerdictGood,
		Terminal:      domain.TerminalVerdict,
		Path:          []domain.State{domain.StateReceivedSnapshot, domain.StateVerdict},
		Breakdown: domain.Breakdown{
			Quality: domain.CategoryBreakdown{
				Category: domain.CategoryQuality,
				Max:      40,
				Points:   14,
				Entries:  []domain.MetricEntry{{Key: domain.MetricReach, Value: &v, Points: 14, MaxPoints: 14, Available: true}},
			},
		},
		TrustDetails: domain.TrustDetails{
			{Key: domain.PenaltyHiddenComments, Multiplier: 0.85, Rationale: "comments are disabled", Metrics: map[string]float64{"b": 2, "a": 1}},
		},
	}
}

func TestComputeFingerprint_Deterministic(t *testing.T) {
	r := sampleResult()

	fp1, err := ComputeFingerprint(r)
	require.NoError(t, err)
	fp2, err := ComputeFingerprint(sampleResult())
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)

	raw, err := base58.Decode(fp1)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestComputeFingerprint_IgnoresExistingFingerprint(t *testing.T) {
	r := sampleResult()
	fp1, err := ComputeFingerprint(r)
	require.NoError(t, err)

	r.Fingerprint = fp1
	fp2, err := ComputeFingerprint(r)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.Equal(t, fp1, r.Fingerprint, "input must not be modified")
}

func TestComputeFingerprint_SensitiveToFields(t *testing.T) {
	base, err := ComputeFingerprint(sampleResult())
	require.NoError(t, err)

	changed := sampleResult()
	changed.TrustFactor = 0.8501
	fp, err := ComputeFingerprint(changed)
	require.NoError(t, err)
	assert.NotEqual(t, base, fp)

	changed = sampleResult()
	changed.TrustDetails[0].Rationale = "different"
	fp, err = ComputeFingerprint(changed)
	require.NoError(t, err)
	assert.NotEqual(t, base, fp)
}

func TestComputeFingerprint_Nil(t *testing.T) {
	_, err := ComputeFingerprint(nil)
	assert.Error(t, err)
}
