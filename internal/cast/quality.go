package cast

// ScoredActor is the per-actor input to QualityScore: final (translated,
// formatted) name and role.
type ScoredActor struct {
	Name string
	Role string
}

// QualityInput bundles QualityScore's per-item parameters.
type QualityInput struct {
	Actors             []ScoredActor
	IsAnimation        bool
	OriginalCount      int
	ExpectedFinalCount int // 0 means "not given"
}

// QualityScore computes a 0-10 score combining per-actor
// name/role quality with a count-penalty multiplier, rounded to one
// decimal.
func QualityScore(in QualityInput) float64 {
	finalCount := len(in.Actors)

	if finalCount == 0 {
		if in.IsAnimation {
			return 7.0
		}
		return 0.0
	}

	var total float64
	for _, a := range in.Actors {
		total += nameScore(a.Name) + roleScore(a.Role)
	}
	avg := total / float64(finalCount)

	if !in.IsAnimation {
		avg *= countPenalty(finalCount, in.OriginalCount, in.ExpectedFinalCount)
	}

	return round1(avg)
}

func nameScore(name string) float64 {
	switch {
	case name == "":
		return 0
	case containsCJK(name):
		return 5
	default:
		return 1
	}
}

func roleScore(role string) float64 {
	switch {
	case role == "":
		return 0
	case !containsCJK(role):
		return 0.5
	case IsPlaceholderRole(role):
		return 2.5
	default:
		return 5
	}
}

func countPenalty(finalCount, originalCount, expectedFinalCount int) float64 {
	switch {
	case finalCount < 10:
		return float64(finalCount) / 10
	case expectedFinalCount > 0 && finalCount < int(0.8*float64(expectedFinalCount)):
		return float64(finalCount) / float64(expectedFinalCount)
	case originalCount > 0 && finalCount < int(0.8*float64(originalCount)):
		return float64(finalCount) / float64(originalCount)
	default:
		return 1
	}
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
