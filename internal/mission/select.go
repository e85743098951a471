package mission

// SelectBid picks the winning bid from one broadcast round: strictly highest
// confidence wins, ties broken by lowest estimated cost, remaining ties by
// position (registration order). Deterministic for the same bid slice.
func SelectBid(bids []Bid) (Bid, bool) {
	if len(bids) == 0 {
		return Bid{}, false
	}

	best := bids[0]
	for _, b := range bids[1:] {
		if b.Confidence > best.Confidence {
			best = b
			continue
		}
		if b.Confidence == best.Confidence && b.EstimatedCost < best.EstimatedCost {
			best = b
		}
	}
	return best, true
}
