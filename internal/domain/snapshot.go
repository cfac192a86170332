package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidSnapshot is returned when a snapshot is missing a required section.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot is an immutable capture of public channel activity produced by the scanner.
// All timestamps are Unix milliseconds.
type Snapshot struct {
	SnapshotID string         `json:"snapshot_id"`
	ChannelID  string         `json:"channel_id"`
	ScannedAt  int64          `json:"scanned_at"` // reference time for post age
	Channel    *ChannelMeta   `json:"channel"`
	Posts      []Post         `json:"posts"`
	Members    *MemberSample  `json:"members,omitempty"` // nil when the member list could not be sampled
	Health     *ChannelHealth `json:"health,omitempty"`  // nil when health indicators are unavailable
}

// ChannelMeta holds channel-level metadata.
type ChannelMeta struct {
	Username              string `json:"username"`
	Title                 string `json:"title"`
	MemberCount           int    `json:"member_count"`
	Verified              bool   `json:"verified"`
	Scam                  bool   `json:"scam"` // platform-assigned scam label
	Fake                  bool   `json:"fake"` // platform-assigned fake label
	CreatedAt             *int64 `json:"created_at,omitempty"`
	HasPremiumSubscribers bool   `json:"has_premium_subscribers"`
	ExpectedDC            int    `json:"expected_dc"` // 0 = unknown locale

	// Feature flags are nil when the scanner did not report them.
	CommentsEnabled  *bool `json:"comments_enabled,omitempty"`
	ReactionsEnabled *bool `json:"reactions_enabled,omitempty"`
}

// Post is a single recent channel post.
type Post struct {
	MessageID      int64  `json:"message_id"`
	PostedAt       int64  `json:"posted_at"`
	Views          int    `json:"views"`
	Forwards       int    `json:"forwards"`
	Comments       int    `json:"comments"`
	Reactions      int    `json:"reactions"`
	CommentsHidden bool   `json:"comments_hidden"`
	HasPrivateLink bool   `json:"has_private_link"`
	IsAd           bool   `json:"is_ad"`
	ForwardedFrom  string `json:"forwarded_from,omitempty"` // source channel, empty for original posts
	Text           string `json:"text,omitempty"`
}

// MemberSample is the sampled subset of channel members.
type MemberSample struct {
	Members []Member `json:"members"`
}

// Member is one sampled channel member.
type Member struct {
	UserID         int64 `json:"user_id"`
	RecentlyOnline bool  `json:"recently_online"`
	Premium        bool  `json:"premium"`
	DCID           int   `json:"dc_id"` // 0 = unknown
	Scam           bool  `json:"scam"`
	Fake           bool  `json:"fake"`
}

// ChannelHealth holds live audience indicators.
type ChannelHealth struct {
	OnlineCount         *int `json:"online_count,omitempty"` // nil = not reported
	ObservedMemberCount *int `json:"observed_member_count,omitempty"`
	HasLinkedGroup      bool `json:"has_linked_group"`
}

// Flag returns a pointer to v, for optional boolean snapshot fields.
func Flag(v bool) *bool { return &v }

// Count returns a pointer to v, for optional counters.
func Count(v int) *int { return &v }

// Size returns the number of sampled members, 0 for a nil sample.
func (m *MemberSample) Size() int {
	if m == nil {
		return 0
	}
	return len(m.Members)
}

// Validate checks structural completeness.
// Optional sections (Members, Health) are allowed to be nil; the engine
// degrades on them instead of substituting defaults.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: snapshot is nil", ErrInvalidSnapshot)
	}
	if s.ChannelID == "" {
		return fmt.Errorf("%w: channel_id is empty", ErrInvalidSnapshot)
	}
	if s.ScannedAt <= 0 {
		return fmt.Errorf("%w: scanned_at is not set", ErrInvalidSnapshot)
	}
	if s.Channel == nil {
		return fmt.Errorf("%w: channel section is missing", ErrInvalidSnapshot)
	}
	if s.Channel.MemberCount < 0 {
		return fmt.Errorf("%w: member_count is negative (%d)", ErrInvalidSnapshot, s.Channel.MemberCount)
	}
	if s.Posts == nil {
		return fmt.Errorf("%w: posts section is missing", ErrInvalidSnapshot)
	}
	for i, p := range s.Posts {
		if p.Views < 0 || p.Forwards < 0 || p.Comments < 0 || p.Reactions < 0 {
			return fmt.Errorf("%w: post %d has negative counters", ErrInvalidSnapshot, i)
		}
		if p.PostedAt <= 0 {
			return fmt.Errorf("%w: post %d has no timestamp", ErrInvalidSnapshot, i)
		}
	}
	if s.Health != nil && s.Health.OnlineCount != nil && *s.Health.OnlineCount < 0 {
		return fmt.Errorf("%w: online_count is negative", ErrInvalidSnapshot)
	}
	return nil
}
