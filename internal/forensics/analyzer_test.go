package forensics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-trust-lab/internal/config"
	"channel-trust-lab/internal/domain"
)

// spread returns n members whose IDs are far apart.
func spread(n int) []domain.Member {
	members := make([]domain.Member, n)
	for i := range members {
		members[i] = domain.Member{UserID: int64(10_000 + i*1000)}
	}
	return members
}

func TestNeighborRatio(t *testing.T) {
	tests := []struct {
		name  string
		ids   []int64
		delta int64
		want  float64
	}{
		{name: "empty", ids: nil, delta: 3, want: 0},
		{name: "single", ids: []int64{5}, delta: 3, want: 0},
		{name: "all sequential", ids: []int64{1, 2, 3, 4}, delta: 3, want: 1},
		{name: "one pair of four", ids: []int64{100, 102, 500, 900}, delta: 3, want: 0.5},
		{name: "outside delta", ids: []int64{100, 104, 108}, delta: 3, want: 0},
		{name: "unsorted input", ids: []int64{900, 1, 500, 2}, delta: 3, want: 0.5},
		{name: "duplicates counted once", ids: []int64{7, 7, 7, 1000}, delta: 3, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := make([]domain.Member, len(tt.ids))
			for i, id := range tt.ids {
				members[i].UserID = id
			}
			assert.InDelta(t, tt.want, NeighborRatio(members, tt.delta), 1e-9)
		})
	}
}

func TestAnalyze_InsufficientSample(t *testing.T) {
	a := NewAnalyzer(config.Default().Forensics)

	for _, sample := range []*domain.MemberSample{nil, {}, {Members: spread(5)}} {
		res := a.Analyze(sample, 2)
		assert.True(t, res.Insufficient)
		assert.Equal(t, 1.0, res.Multiplier)
		assert.Empty(t, res.Penalties)
		assert.Nil(t, res.NeighborRatio)
		assert.False(t, res.Fatality)
		assert.False(t, res.ZeroPremium)
	}
}

func TestAnalyze_Cluster(t *testing.T) {
	tests := []struct {
		name     string
		pairs    int // neighbouring pairs among 20 members
		fatality bool
		mult     float64
	}{
		{name: "clean", pairs: 1, mult: 1},
		{name: "suspicious", pairs: 2, mult: 0.5},
		{name: "fatal", pairs: 4, fatality: true, mult: 0},
	}

	a := NewAnalyzer(config.Default().Forensics)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := spread(20)
			for p := 0; p < tt.pairs; p++ {
				members[2*p+1].UserID = members[2*p].UserID + 1
			}

			res := a.Analyze(&domain.MemberSample{Members: members}, 0)

			require.NotNil(t, res.NeighborRatio)
			assert.Equal(t, tt.fatality, res.Fatality)
			assert.Equal(t, tt.mult, res.Multiplier)
			if tt.mult < 1 {
				require.Len(t, res.Penalties, 1)
				assert.Equal(t, domain.PenaltyIDCluster, res.Penalties[0].Key)
			}
		})
	}
}

func TestAnalyze_Geo(t *testing.T) {
	a := NewAnalyzer(config.Default().Forensics)

	members := spread(20)
	for i := range members {
		members[i].DCID = 5
	}
	members[0].DCID = 2
	members[1].DCID = 2

	res := a.Analyze(&domain.MemberSample{Members: members}, 2)
	require.NotNil(t, res.ForeignRatio)
	assert.InDelta(t, 0.9, *res.ForeignRatio, 1e-9)
	assert.InDelta(t, 0.2, res.Multiplier, 1e-9)

	// unknown locale: no geo check
	res = a.Analyze(&domain.MemberSample{Members: members}, 0)
	assert.Nil(t, res.ForeignRatio)
	assert.Equal(t, 1.0, res.Multiplier)

	// too few members with a known DC
	for i := range members {
		if i >= 5 {
			members[i].DCID = 0
		}
	}
	res = a.Analyze(&domain.MemberSample{Members: members}, 2)
	assert.Nil(t, res.ForeignRatio)
}

func TestAnalyze_PremiumAndFlags(t *testing.T) {
	a := NewAnalyzer(config.Default().Forensics)

	members := spread(40)
	members[3].Fake = true
	members[7].Scam = true

	res := a.Analyze(&domain.MemberSample{Members: members}, 0)
	assert.True(t, res.ZeroPremium)
	assert.Equal(t, 2, res.FlaggedCount)
	assert.True(t, res.Flagged)
	assert.Equal(t, 1.0, res.Multiplier, "premium and flags feed conviction only")

	members[0].Premium = true
	res = a.Analyze(&domain.MemberSample{Members: members}, 0)
	assert.False(t, res.ZeroPremium)
	assert.InDelta(t, 0.025, *res.PremiumRatio, 1e-9)

	// adequate for forensics but too small to judge premium density
	res = a.Analyze(&domain.MemberSample{Members: spread(20)}, 0)
	assert.False(t, res.ZeroPremium)
}

func TestResult_Summary(t *testing.T) {
	a := NewAnalyzer(config.Default().Forensics)
	res := a.Analyze(&domain.MemberSample{Members: spread(40)}, 0)

	s := res.Summary()
	assert.Equal(t, 40, s.SampleSize)
	assert.Equal(t, res.NeighborRatio, s.NeighborRatio)
	assert.True(t, s.ZeroPremium)
	assert.False(t, s.Fatality)
}
