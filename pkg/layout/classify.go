package layout

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// linkDraft is a link before strength classification. Classification is
// relative - a link's tier depends on every other currently visible link -
// so drafts are collected first and scored together.
type linkDraft struct {
	link Link
}

// draftLink builds the unclassified link for one rendered parent-child
// connection. Links into a synthetic cluster carry no originating tree edge;
// their count and weight summarize the member edges instead.
func (e *engine) draftLink(parent, child *vnode) linkDraft {
	l := Link{SourceID: parent.id, TargetID: child.id}

	switch child.kind {
	case KindEntity:
		if edge := child.tn.Edge; edge != nil {
			l.Edge = edge
			l.OccurrenceCount = edge.OccurrenceCount
			l.Weight = edge.Weight
			l.NeedsReview = edge.NeedsReview()
		}
	case KindCluster:
		for _, memberID := range child.cl.MemberIDs {
			member, ok := e.params.Tree.ByID[memberID]
			if !ok || member.Edge == nil {
				continue
			}
			l.OccurrenceCount += member.Edge.OccurrenceCount
			if member.Edge.Weight > l.Weight {
				l.Weight = member.Edge.Weight
			}
			if member.Edge.NeedsReview() {
				l.NeedsReview = true
			}
		}
	}
	return linkDraft{link: l}
}

// classifyLinks converts each draft's strength score into a percentile rank
// among all visible links and buckets it into three tiers, then assigns the
// single prioritized gap reason per link.
//
// Precedence for the gap reason: needs-review, then low weight percentile,
// then weak strength tier, then none.
func classifyLinks(drafts []linkDraft, cfg Config) []Link {
	if len(drafts) == 0 {
		return nil
	}

	maxWeight := 0.0
	for i := range drafts {
		if w := drafts[i].link.Weight; w > maxWeight {
			maxWeight = w
		}
	}

	scores := make([]float64, len(drafts))
	weights := make([]float64, len(drafts))
	for i := range drafts {
		l := &drafts[i].link
		norm := 0.0
		if maxWeight > eps {
			norm = l.Weight / maxWeight
		}
		scores[i] = cfg.CountWeight*math.Log1p(float64(l.OccurrenceCount)) + cfg.WeightWeight*norm
		weights[i] = l.Weight
	}

	sortedScores := slices.Clone(scores)
	slices.Sort(sortedScores)
	sortedWeights := slices.Clone(weights)
	slices.Sort(sortedWeights)

	links := make([]Link, len(drafts))
	for i := range drafts {
		l := drafts[i].link
		l.Strength = strengthTier(stat.CDF(scores[i], stat.Empirical, sortedScores, nil))
		l.Gap = gapReason(&l, stat.CDF(weights[i], stat.Empirical, sortedWeights, nil), cfg)
		links[i] = l
	}
	return links
}

func strengthTier(percentile float64) StrengthTier {
	switch {
	case percentile <= 1.0/3:
		return StrengthWeak
	case percentile <= 2.0/3:
		return StrengthMedium
	default:
		return StrengthStrong
	}
}

func gapReason(l *Link, weightPercentile float64, cfg Config) GapReason {
	switch {
	case l.NeedsReview:
		return GapNeedsReview
	case weightPercentile < cfg.LowWeightPercentile:
		return GapLowWeight
	case l.Strength == StrengthWeak:
		return GapWeakLink
	default:
		return GapNone
	}
}
