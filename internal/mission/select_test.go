package mission

import "testing"

func TestSelectBidHighestConfidence(t *testing.T) {
	bids := []Bid{
		{AgentID: "A", Confidence: 0.7, EstimatedCost: 1},
		{AgentID: "B", Confidence: 0.9, EstimatedCost: 2},
		{AgentID: "C", Confidence: 0.8, EstimatedCost: 0.5},
	}

	winner, ok := SelectBid(bids)
	if !ok {
		t.Fatal("expected a winner")
	}
	if winner.AgentID != "B" {
		t.Errorf("expected B, got %s", winner.AgentID)
	}
}

func TestSelectBidTieBrokenByCost(t *testing.T) {
	// Registration order A, B, C: equal top confidence, B is cheaper.
	bids := []Bid{
		{AgentID: "A", Confidence: 0.9, EstimatedCost: 2},
		{AgentID: "B", Confidence: 0.9, EstimatedCost: 1},
		{AgentID: "C", Confidence: 0.7, EstimatedCost: 0.5},
	}

	winner, ok := SelectBid(bids)
	if !ok {
		t.Fatal("expected a winner")
	}
	if winner.AgentID != "B" {
		t.Errorf("expected B, got %s", winner.AgentID)
	}
}

func TestSelectBidFullTieKeepsRegistrationOrder(t *testing.T) {
	bids := []Bid{
		{AgentID: "A", Confidence: 0.9, EstimatedCost: 1},
		{AgentID: "B", Confidence: 0.9, EstimatedCost: 1},
	}

	winner, _ := SelectBid(bids)
	if winner.AgentID != "A" {
		t.Errorf("expected first-registered A, got %s", winner.AgentID)
	}
}

func TestSelectBidDeterministic(t *testing.T) {
	bids := []Bid{
		{AgentID: "A", Confidence: 0.9, EstimatedCost: 2},
		{AgentID: "B", Confidence: 0.9, EstimatedCost: 1},
		{AgentID: "C", Confidence: 0.7, EstimatedCost: 0.5},
	}

	first, _ := SelectBid(bids)
	for i := 0; i < 100; i++ {
		again, _ := SelectBid(bids)
		if again.AgentID != first.AgentID {
			t.Fatalf("selection not deterministic: %s vs %s", again.AgentID, first.AgentID)
		}
	}
}

func TestSelectBidEmpty(t *testing.T) {
	if _, ok := SelectBid(nil); ok {
		t.Error("expected no winner for empty bid list")
	}
}
