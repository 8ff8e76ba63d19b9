package linkmgr

import "testing"

func TestShapingParamsValidateRejectsOutOfRangeLoss(t *testing.T) {
	p := ShapingParams{LossPct: 101}
	if err := p.Validate(); err == nil {
		t.Fatal("expected loss > 100 to be rejected")
	}
	p = ShapingParams{LossPct: -1}
	if err := p.Validate(); err == nil {
		t.Fatal("expected negative loss to be rejected")
	}
}

func TestShapingParamsValidateAcceptsBoundaries(t *testing.T) {
	for _, pct := range []float64{0, 100} {
		p := ShapingParams{LossPct: pct}
		if err := p.Validate(); err != nil {
			t.Fatalf("expected %v to be valid, got %v", pct, err)
		}
	}
}

func TestShapingParamsHasNetemAndTbf(t *testing.T) {
	none := ShapingParams{}
	if none.hasNetem() || none.hasTbf() {
		t.Fatal("zero-value params should request no qdiscs")
	}
	latency := ShapingParams{LatencyMS: 10}
	if !latency.hasNetem() {
		t.Fatal("latency should request netem")
	}
	loss := ShapingParams{LossPct: 50}
	if !loss.hasNetem() {
		t.Fatal("loss should request netem")
	}
	bw := ShapingParams{BandwidthMbps: 10}
	if !bw.hasTbf() {
		t.Fatal("bandwidth should request tbf")
	}
}
