package engine

import (
	"fmt"

	"channel-trust-lab/internal/domain"
)

const (
	day  = int64(24 * 3600 * 1000)
	hour = int64(3600 * 1000)
	t0   = int64(1_700_000_000_000)
)

func int64Ptr(v int64) *int64 { return &v }

// healthySnapshot: 950 members, unverified, no premium members, comments
// open with healthy activity, reach 40%, 5% neighbouring member IDs.
func healthySnapshot() *domain.Snapshot {
	posts := make([]domain.Post, 30)
	for i := range posts {
		// Oldest posts accumulated the most views: 480 -> 380 -> 280 by bucket.
		views := 480
		switch {
		case i >= 20:
			views = 280
		case i >= 10:
			views = 380
		}
		views += (i%5)*20 - 40
		posts[i] = domain.Post{
			MessageID: int64(100 + i),
			PostedAt:  t0 + int64(i)*day + int64(i%3)*hour,
			Views:     views,
			Forwards:  4,
			Comments:  5,
			Reactions: 10,
			Text:      fmt.Sprintf("weekly digest number %c%c", 'a'+rune(i%26), 'a'+rune(i/26)),
		}
	}
	members := make([]domain.Member, 40)
	for i := range members {
		members[i] = domain.Member{UserID: int64(1_000_000 + i*1000), RecentlyOnline: i%4 == 0}
	}
	// one neighbouring pair: 2 of 40 IDs = 5%
	members[1].UserID = members[0].UserID + 1

	return &domain.Snapshot{
		ChannelID: "healthy_950",
		ScannedAt: t0 + 32*day,
		Channel: &domain.ChannelMeta{
			Username:         "healthy_950",
			Title:            "Healthy",
			MemberCount:      950,
			CreatedAt:        int64Ptr(t0 - 400*day),
			CommentsEnabled:  domain.Flag(true),
			ReactionsEnabled: domain.Flag(true),
		},
		Posts:   posts,
		Members: &domain.MemberSample{Members: members},
		Health:  &domain.ChannelHealth{OnlineCount: domain.Count(30)},
	}
}

// botWallSnapshot has identical mean views in every post-age bucket.
func botWallSnapshot() *domain.Snapshot {
	s := healthySnapshot()
	s.ChannelID = "bot_wall"
	for i := range s.Posts {
		s.Posts[i].Views = 200 + (i%10)*50
	}
	return s
}
