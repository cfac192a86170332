package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-trust-lab/internal/domain"
)

// decodeWithout round-trips s through JSON with the named keys removed from
// the given section, the way a scanner that does not report them sends it.
func decodeWithout(t *testing.T, s *domain.Snapshot, section string, keys ...string) *domain.Snapshot {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	obj, ok := raw[section].(map[string]any)
	require.True(t, ok, "section %s missing", section)
	for _, k := range keys {
		delete(obj, k)
	}

	data, err = json.Marshal(raw)
	require.NoError(t, err)
	var out domain.Snapshot
	require.NoError(t, json.Unmarshal(data, &out))
	return &out
}

func TestScore_UnreportedOnlineCountIsNeutral(t *testing.T) {
	e := newEngine(t)

	s := healthySnapshot()
	s.Channel.MemberCount = 50_000
	s.Health = &domain.ChannelHealth{OnlineCount: domain.Count(0), HasLinkedGroup: true}
	withHealth := decodeWithout(t, s, "health", "online_count")
	require.NotNil(t, withHealth.Health)
	assert.Nil(t, withHealth.Health.OnlineCount)

	noHealth := s.Clone()
	noHealth.Health = nil

	got, err := e.Score(withHealth)
	require.NoError(t, err)
	want, err := e.Score(noHealth)
	require.NoError(t, err)

	_, ghost := got.TrustDetails.Lookup(domain.PenaltyGhostChannel)
	_, zombie := got.TrustDetails.Lookup(domain.PenaltyZombieAudience)
	assert.False(t, ghost)
	assert.False(t, zombie)
	assert.Equal(t, want.TrustFactor, got.TrustFactor)
	assert.Equal(t, want.FinalScore, got.FinalScore)
}

func TestScore_ReportedZeroOnlineStillPenalized(t *testing.T) {
	e := newEngine(t)

	s := healthySnapshot()
	s.Channel.MemberCount = 50_000
	s.Health = &domain.ChannelHealth{OnlineCount: domain.Count(0)}

	res, err := e.Score(s)
	require.NoError(t, err)
	_, ghost := res.TrustDetails.Lookup(domain.PenaltyGhostChannel)
	assert.True(t, ghost)
}

func TestScore_UnreportedFeatureFlagsAreNeutral(t *testing.T) {
	e := newEngine(t)

	s := healthySnapshot()
	decoded := decodeWithout(t, s, "channel", "comments_enabled", "reactions_enabled")
	assert.Nil(t, decoded.Channel.CommentsEnabled)
	assert.Nil(t, decoded.Channel.ReactionsEnabled)

	got, err := e.Score(decoded)
	require.NoError(t, err)
	want, err := e.Score(s)
	require.NoError(t, err)

	_, hidden := got.TrustDetails.Lookup(domain.PenaltyHiddenComments)
	assert.False(t, hidden)
	assert.Equal(t, want.FinalScore, got.FinalScore)
	assert.Equal(t, want.Breakdown, got.Breakdown)
}

func TestScore_UnreportedCommentsWithoutEvidence(t *testing.T) {
	e := newEngine(t)

	s := healthySnapshot()
	s.Channel.CommentsEnabled = nil
	for i := range s.Posts {
		s.Posts[i].Comments = 0
	}

	res, err := e.Score(s)
	require.NoError(t, err)

	_, hidden := res.TrustDetails.Lookup(domain.PenaltyHiddenComments)
	assert.False(t, hidden)
	comments, ok := res.Breakdown.Entry(domain.MetricComments)
	require.True(t, ok)
	assert.False(t, comments.Available)
}

func TestScore_DisabledCommentsPenalized(t *testing.T) {
	e := newEngine(t)

	s := healthySnapshot()
	s.Channel.CommentsEnabled = domain.Flag(false)

	res, err := e.Score(s)
	require.NoError(t, err)
	_, hidden := res.TrustDetails.Lookup(domain.PenaltyHiddenComments)
	assert.True(t, hidden)
}
