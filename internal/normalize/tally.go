package normalize

// tally counts observations of one candidate value.
type tally struct {
	count int
	first int
	last  int
}

func (t *tally) observe(row int) {
	if t.count == 0 || row < t.first {
		t.first = row
	}
	if t.count == 0 || row > t.last {
		t.last = row
	}
	t.count++
}

// row returns the row a tie break should compare for this candidate.
func (tb TieBreak) row(t tally) int {
	if tb == TieBreakLastSeen {
		return t.last
	}
	return t.first
}

// mostFrequent returns the key with the highest count, ties broken by tb.
// Keys are visited in the given order so the result does not depend on map
// iteration.
func mostFrequent(order []string, counts map[string]*tally, tb TieBreak) (string, bool) {
	var (
		best  string
		bestT tally
		found bool
	)
	for _, k := range order {
		t := *counts[k]
		switch {
		case !found:
		case t.count > bestT.count:
		case t.count == bestT.count && tb.prefers(tb.row(t), tb.row(bestT)):
		default:
			continue
		}
		best, bestT, found = k, t, true
	}
	return best, found
}
