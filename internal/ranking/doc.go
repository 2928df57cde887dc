// Package ranking holds the pure scoring and selection rules for recommendations.
//
// Scoring:
//
//	newScore, cull := ranking.ApplyVote(current, ranking.Down)
//	if cull {
//		// the recommendation fell below ScoreFloor and must be removed
//	}
//
// Selection:
//
// Top orders a snapshot by score (descending) with ties broken by id, and
// WeightedDraw picks a single candidate using a two-band skew: candidates
// scoring above the calibrated threshold form the "high" band, everything
// else the "low" band. A single draw from the injected Source picks the band
// and a second picks the member, so tests can drive the outcome exactly.
//
//	cal, err := ranking.LoadCalibration("configs/selection.calibration.json")
//	if err != nil {
//		log.Warn("using default calibration", "error", err)
//	}
//	pick, band, err := ranking.WeightedDraw(candidates, cal, rng)
//
// Calibration:
//
// The band threshold and the high-band probability are deploy-time tunables
// loaded from JSON at startup. Partial files are merged over the defaults.
package ranking
