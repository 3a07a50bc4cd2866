// Package ranking computes the compatibility score between a requester and
// a candidate profile.
//
// A score is a weighted sum of independent components, each in [0, 1]:
//
//	score = SkillOverlap*w.SkillOverlap + LookingForFit*w.LookingFor +
//	        IdeaAffinity*w.Idea + Reachability*w.Reachability
//
// SkillOverlap, LookingForFit and IdeaAffinity compare both profiles. When
// their inputs are missing on either side they contribute NeutralComponent
// instead of failing, so an incomplete profile still gets a finite,
// comparable score. Reachability is a presence signal on the candidate
// alone: 1 with contact info, 0 without.
//
// Weights are tuned at deploy time through a JSON calibration file:
//
//	weights, err := ranking.LoadCalibration(cfg.RankingCalibrationPath)
//	if err != nil {
//		slog.Warn("using default ranking weights", "error", err)
//	}
//	s := ranking.Score(requester, candidate, weights)
//
// Every function in this package is pure. Nothing reads process-wide state,
// and calling Score twice with the same inputs yields the same value.
package ranking
