package domain

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	if s.Channel != nil {
		meta := *s.Channel
		if s.Channel.CreatedAt != nil {
			created := *s.Channel.CreatedAt
			meta.CreatedAt = &created
		}
		meta.CommentsEnabled = cloneFlag(s.Channel.CommentsEnabled)
		meta.ReactionsEnabled = cloneFlag(s.Channel.ReactionsEnabled)
		c.Channel = &meta
	}
	if s.Posts != nil {
		c.Posts = append([]Post{}, s.Posts...)
	}
	if s.Members != nil {
		sample := MemberSample{}
		if s.Members.Members != nil {
			sample.Members = append([]Member{}, s.Members.Members...)
		}
		c.Members = &sample
	}
	if s.Health != nil {
		h := *s.Health
		h.OnlineCount = cloneCount(s.Health.OnlineCount)
		h.ObservedMemberCount = cloneCount(s.Health.ObservedMemberCount)
		c.Health = &h
	}
	return &c
}

// Clone returns a deep copy of the result.
func (r *ScoreResult) Clone() *ScoreResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.Path != nil {
		c.Path = append([]State{}, r.Path...)
	}
	c.Breakdown = Breakdown{
		Quality:    r.Breakdown.Quality.clone(),
		Engagement: r.Breakdown.Engagement.clone(),
		Reputation: r.Breakdown.Reputation.clone(),
	}
	if r.TrustDetails != nil {
		c.TrustDetails = make(TrustDetails, len(r.TrustDetails))
		for i, p := range r.TrustDetails {
			if p.Metrics != nil {
				m := make(map[string]float64, len(p.Metrics))
				for k, v := range p.Metrics {
					m[k] = v
				}
				p.Metrics = m
			}
			c.TrustDetails[i] = p
		}
	}
	if r.Factors != nil {
		c.Factors = append([]ConvictionFactor{}, r.Factors...)
	}
	c.Forensics.NeighborRatio = clonePtr(r.Forensics.NeighborRatio)
	c.Forensics.ForeignRatio = clonePtr(r.Forensics.ForeignRatio)
	c.Forensics.PremiumRatio = clonePtr(r.Forensics.PremiumRatio)
	return &c
}

func (c CategoryBreakdown) clone() CategoryBreakdown {
	if c.Entries != nil {
		entries := make([]MetricEntry, len(c.Entries))
		for i, e := range c.Entries {
			e.Value = clonePtr(e.Value)
			entries[i] = e
		}
		c.Entries = entries
	}
	return c
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

func cloneFlag(v *bool) *bool {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

func cloneCount(v *int) *int {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}
