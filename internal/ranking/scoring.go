package ranking

// Direction is the direction of a single vote.
type Direction int

const (
	// Up adds one point to a score.
	Up Direction = iota + 1
	// Down removes one point from a score.
	Down
)

// String returns the lowercase name used in logs and metric labels.
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// ScoreFloor is the lowest score a recommendation may hold. A downvote that
// takes a score strictly below the floor culls the recommendation.
const ScoreFloor = -5

// ApplyVote computes the score after a single vote and reports whether the
// recommendation must be deleted. Upvotes never cull. An unknown direction
// leaves the score untouched.
func ApplyVote(current int, dir Direction) (newScore int, shouldDelete bool) {
	switch dir {
	case Up:
		return current + 1, false
	case Down:
		newScore = current - 1
		return newScore, newScore < ScoreFloor
	default:
		return current, false
	}
}
