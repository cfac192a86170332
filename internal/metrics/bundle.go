// Package metrics derives the metric bundle shared by every scoring stage.
// A nil metric means "undefined for this snapshot"; it is never replaced with
// a zero, because a fabricated zero would itself trigger penalty paths.
package metrics

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"channel-trust-lab/internal/config"
	"channel-trust-lab/internal/domain"
)

const msPerHour = 3600 * 1000
const msPerDay = 24 * msPerHour

// Bundle holds metrics computed once per snapshot.
type Bundle struct {
	PostCount   int
	MemberCount int
	SampleSize  int

	// Structural availability of engagement features (platform level).
	// When the scanner did not report a flag, availability is inferred from
	// the posts and CommentsUnknown is set.
	CommentsAvailable  bool
	ReactionsAvailable bool
	CommentsUnknown    bool
	Verified           bool

	AvgViews    *float64
	ViewsCV     *float64
	ReachRatio  *float64 // avg views / members
	DecayRatio  *float64 // newest bucket mean / oldest bucket mean
	DecayRatios []float64

	ForwardRate     *float64
	CommentRate     *float64 // nil when comments are structurally unavailable
	ReactionRate    *float64 // nil when reactions are structurally unavailable
	InteractionRate *float64 // all observable interactions / views
	ERCV            *float64
	ERTrend         *float64 // newer-half ER / older-half ER

	IntervalCV  *float64
	PostsPerDay *float64

	AdRatio            *float64
	PrivateLinkRatio   *float64
	DuplicateTextRatio *float64
	ScamTextRatio      *float64
	AvgComments        *float64 // nil when comments are structurally unavailable
	TopSourceShare     *float64
	UniqueSources      int

	OnlineRatio        *float64 // health online count / declared members
	SampleOnlineRatio  *float64 // recently-online share of the member sample
	PremiumRatio       *float64 // premium share of the member sample
	ChannelAgeDays     *float64
	MemberDiscrepancy  *float64 // |declared - observed| / declared
	HasPremiumFlag     bool
	HasObservedMembers bool
}

// Compute derives the bundle from a validated snapshot.
// Posts are sorted by PostedAt ASC, MessageID ASC before order-dependent metrics.
func Compute(s *domain.Snapshot, p config.MetricParams) *Bundle {
	posts := sortedPosts(s.Posts)
	b := &Bundle{
		PostCount:      len(posts),
		MemberCount:    s.Channel.MemberCount,
		SampleSize:     s.Members.Size(),
		Verified:       s.Channel.Verified,
		HasPremiumFlag: s.Channel.HasPremiumSubscribers,
	}
	b.CommentsAvailable = commentsAvailable(s.Channel, posts)
	b.CommentsUnknown = s.Channel.CommentsEnabled == nil
	b.ReactionsAvailable = reactionsAvailable(s.Channel, posts)

	computeViewMetrics(b, posts, p)
	b.DecayRatio, b.DecayRatios = computeDecay(posts, s.ScannedAt, p)
	computeEngagementMetrics(b, posts, p)
	computeCadence(b, posts, p)
	computeContent(b, posts, p)
	computeAudience(b, s)

	return b
}

func sortedPosts(in []domain.Post) []domain.Post {
	posts := make([]domain.Post, len(in))
	copy(posts, in)
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].PostedAt != posts[j].PostedAt {
			return posts[i].PostedAt < posts[j].PostedAt
		}
		return posts[i].MessageID < posts[j].MessageID
	})
	return posts
}

// commentsAvailable: the channel has a discussion section and at least one
// post exposes it. Zero comments on open posts is a signal, not unavailability.
// With the flag unreported, only posts that carry comments prove availability.
func commentsAvailable(meta *domain.ChannelMeta, posts []domain.Post) bool {
	if meta.CommentsEnabled == nil {
		for _, p := range posts {
			if p.Comments > 0 {
				return true
			}
		}
		return false
	}
	if !*meta.CommentsEnabled {
		return false
	}
	if len(posts) == 0 {
		return true
	}
	for _, p := range posts {
		if !p.CommentsHidden {
			return true
		}
	}
	return false
}

// reactionsAvailable follows the flag; unreported, any reaction proves it.
func reactionsAvailable(meta *domain.ChannelMeta, posts []domain.Post) bool {
	if meta.ReactionsEnabled != nil {
		return *meta.ReactionsEnabled
	}
	for _, p := range posts {
		if p.Reactions > 0 {
			return true
		}
	}
	return false
}

func computeViewMetrics(b *Bundle, posts []domain.Post, p config.MetricParams) {
	if len(posts) == 0 {
		return
	}
	views := make([]float64, len(posts))
	for i, post := range posts {
		views[i] = float64(post.Views)
	}
	avg := computeMean(views)
	b.AvgViews = ptr(avg)
	b.ViewsCV = computeCV(views, p.MinPosts)
	if b.MemberCount > 0 {
		b.ReachRatio = ptr(avg / float64(b.MemberCount))
	}
}

// computeDecay buckets posts old enough to have settled, newest first, and
// compares bucket means. Ratios are newer/older for each consecutive pair.
func computeDecay(posts []domain.Post, scannedAt int64, p config.MetricParams) (*float64, []float64) {
	minAge := int64(p.DecayMinPostAgeHrs * msPerHour)
	var settled []domain.Post
	for i := len(posts) - 1; i >= 0; i-- {
		if scannedAt-posts[i].PostedAt >= minAge {
			settled = append(settled, posts[i])
		}
	}
	k := p.DecayBuckets
	if k < 2 || len(settled) < 2*k {
		return nil, nil
	}

	size := len(settled) / k
	means := make([]float64, k)
	for i := 0; i < k; i++ {
		start := i * size
		end := start + size
		if i == k-1 {
			end = len(settled)
		}
		sum := 0.0
		for _, post := range settled[start:end] {
			sum += float64(post.Views)
		}
		means[i] = sum / float64(end-start)
	}

	ratios := make([]float64, 0, k-1)
	for i := 0; i < k-1; i++ {
		if means[i+1] <= 0 {
			return nil, nil
		}
		ratios = append(ratios, means[i]/means[i+1])
	}
	return computeRatio(means[0], means[k-1]), ratios
}

func computeEngagementMetrics(b *Bundle, posts []domain.Post, p config.MetricParams) {
	var views, forwards, comments, reactions float64
	for _, post := range posts {
		views += float64(post.Views)
		forwards += float64(post.Forwards)
		comments += float64(post.Comments)
		reactions += float64(post.Reactions)
	}

	b.ForwardRate = computeRatio(forwards, views)
	interactions := forwards
	if b.CommentsAvailable {
		b.CommentRate = computeRatio(comments, views)
		interactions += comments
		if len(posts) > 0 {
			b.AvgComments = ptr(comments / float64(len(posts)))
		}
	}
	if b.ReactionsAvailable {
		b.ReactionRate = computeRatio(reactions, views)
		interactions += reactions
	}
	b.InteractionRate = computeRatio(interactions, views)

	ers := make([]float64, 0, len(posts))
	for _, post := range posts {
		if post.Views <= 0 {
			continue
		}
		n := float64(post.Forwards)
		if b.CommentsAvailable {
			n += float64(post.Comments)
		}
		if b.ReactionsAvailable {
			n += float64(post.Reactions)
		}
		ers = append(ers, n/float64(post.Views))
	}
	b.ERCV = computeCV(ers, p.MinPosts)

	if len(ers) >= 4 {
		half := len(ers) / 2
		older := computeMean(ers[:half])
		newer := computeMean(ers[half:])
		b.ERTrend = computeRatio(newer, older)
	}
}

func computeCadence(b *Bundle, posts []domain.Post, p config.MetricParams) {
	if len(posts) < 2 {
		return
	}
	intervals := make([]float64, 0, len(posts)-1)
	for i := 1; i < len(posts); i++ {
		intervals = append(intervals, float64(posts[i].PostedAt-posts[i-1].PostedAt))
	}
	b.IntervalCV = computeCV(intervals, p.MinPosts-1)

	spanDays := float64(posts[len(posts)-1].PostedAt-posts[0].PostedAt) / msPerDay
	if spanDays > 0 {
		b.PostsPerDay = ptr(float64(len(posts)-1) / spanDays)
	}
}

func computeContent(b *Bundle, posts []domain.Post, p config.MetricParams) {
	n := len(posts)
	if n == 0 {
		return
	}

	var ads, private, scam int
	sources := make(map[string]int)
	texts := make(map[string]int)
	nonEmpty := 0
	for _, post := range posts {
		if post.IsAd {
			ads++
		}
		if post.HasPrivateLink {
			private++
		}
		if post.ForwardedFrom != "" {
			sources[post.ForwardedFrom]++
		}
		lower := strings.ToLower(post.Text)
		if containsAny(lower, p.ScamKeywords) {
			scam++
		}
		if norm := normalizeCaption(lower); norm != "" {
			texts[norm]++
			nonEmpty++
		}
	}

	b.AdRatio = ptr(float64(ads) / float64(n))
	b.PrivateLinkRatio = ptr(float64(private) / float64(n))
	b.ScamTextRatio = ptr(float64(scam) / float64(n))

	top := 0
	for _, c := range sources {
		if c > top {
			top = c
		}
	}
	b.UniqueSources = len(sources)
	b.TopSourceShare = ptr(float64(top) / float64(n))

	if nonEmpty >= p.MinPosts {
		dup := 0
		for _, c := range texts {
			if c > 1 {
				dup += c
			}
		}
		b.DuplicateTextRatio = ptr(float64(dup) / float64(nonEmpty))
	}
}

func computeAudience(b *Bundle, s *domain.Snapshot) {
	if s.Health != nil {
		if s.Health.OnlineCount != nil && b.MemberCount > 0 {
			b.OnlineRatio = ptr(float64(*s.Health.OnlineCount) / float64(b.MemberCount))
		}
		if s.Health.ObservedMemberCount != nil && b.MemberCount > 0 {
			b.HasObservedMembers = true
			diff := math.Abs(float64(b.MemberCount - *s.Health.ObservedMemberCount))
			b.MemberDiscrepancy = ptr(diff / float64(b.MemberCount))
		}
	}

	if n := s.Members.Size(); n > 0 {
		online, premium := 0, 0
		for _, m := range s.Members.Members {
			if m.RecentlyOnline {
				online++
			}
			if m.Premium {
				premium++
			}
		}
		b.SampleOnlineRatio = ptr(float64(online) / float64(n))
		b.PremiumRatio = ptr(float64(premium) / float64(n))
	}

	if s.Channel.CreatedAt != nil && *s.Channel.CreatedAt > 0 {
		age := float64(s.ScannedAt-*s.Channel.CreatedAt) / msPerDay
		b.ChannelAgeDays = ptr(math.Max(age, 0))
	}
}

func containsAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// normalizeCaption folds digits and whitespace so templated captions that
// differ only by numbers compare equal.
func normalizeCaption(text string) string {
	var sb strings.Builder
	space := false
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			sb.WriteRune('#')
			space = false
		case unicode.IsSpace(r):
			if !space && sb.Len() > 0 {
				sb.WriteRune(' ')
			}
			space = true
		default:
			sb.WriteRune(r)
			space = false
		}
	}
	return strings.TrimSpace(sb.String())
}
