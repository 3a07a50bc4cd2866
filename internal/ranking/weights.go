package ranking

import (
	"math"

	"github.com/makeuc/lattice/internal/profile"
)

// NeutralComponent is the contribution of a pairwise component whose inputs are missing.
const NeutralComponent = 0.5

// SkillOverlap is the Jaccard similarity of two skill lists, compared
// case-insensitively. Returns NeutralComponent if either list is empty.
func SkillOverlap(a, b []string) float64 {
	sa, sb := tagSet(a), tagSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return NeutralComponent
	}
	return jaccard(sa, sb)
}

// coverage is the fraction of wanted roles that share at least one word
// with the offered skills. Returns NeutralComponent if either side is empty.
func coverage(wanted, offered []string) float64 {
	offeredWords := wordSet(offered)
	if len(offeredWords) == 0 {
		return NeutralComponent
	}

	total, covered := 0, 0
	for role := range tagSet(wanted) {
		total++
		for _, w := range splitWords(role) {
			if _, ok := offeredWords[w]; ok {
				covered++
				break
			}
		}
	}
	if total == 0 {
		return NeutralComponent
	}
	return float64(covered) / float64(total)
}

// LookingForFit measures how well two people fill each other's open roles.
// It averages the coverage of the requester's looking-for list by the
// candidate's skills and the reverse.
func LookingForFit(requester, candidate *profile.Profile) float64 {
	forward := coverage(requester.LookingFor, candidate.Skills)
	backward := coverage(candidate.LookingFor, requester.Skills)
	return (forward + backward) / 2
}

// IdeaAffinity is the Jaccard similarity of the keyword sets of two idea
// descriptions. Returns NeutralComponent if either has no keywords.
func IdeaAffinity(a, b string) float64 {
	ka, kb := keywordSet(a), keywordSet(b)
	if len(ka) == 0 || len(kb) == 0 {
		return NeutralComponent
	}
	return jaccard(ka, kb)
}

// Reachability is 1 when the candidate can be contacted and 0 otherwise.
func Reachability(candidate *profile.Profile) float64 {
	if candidate.Slack != "" || candidate.Email != "" {
		return 1
	}
	return 0
}

// Components holds the individual component values behind a score.
type Components struct {
	SkillOverlap float64 `json:"skill_overlap"`
	LookingFor   float64 `json:"looking_for"`
	Idea         float64 `json:"idea"`
	Reachability float64 `json:"reachability"`
}

// Explain computes every component for the pair without weighting them.
func Explain(requester, candidate *profile.Profile) Components {
	return Components{
		SkillOverlap: SkillOverlap(requester.Skills, candidate.Skills),
		LookingFor:   LookingForFit(requester, candidate),
		Idea:         IdeaAffinity(requester.Idea, candidate.Idea),
		Reachability: Reachability(candidate),
	}
}

// Score returns the weighted compatibility of candidate for requester.
// A nil weights uses DefaultWeights. The result is always finite.
func Score(requester, candidate *profile.Profile, weights *Weights) float64 {
	if weights == nil {
		weights = DefaultWeights()
	}

	c := Explain(requester, candidate)
	score := finite(c.SkillOverlap)*weights.SkillOverlap +
		finite(c.LookingFor)*weights.LookingFor +
		finite(c.Idea)*weights.Idea +
		finite(c.Reachability)*weights.Reachability

	return finite(score)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
