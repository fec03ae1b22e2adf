package ui

import "testing"

func TestSpinnerStopIsIdempotent(t *testing.T) {
	sp := NewWaitingSpinner("waiting")
	sp.Start()
	sp.UpdateMessage("still waiting")
	sp.Success("done")

	// Stop after Success and a second Stop must not close done twice.
	sp.Stop()
	sp.Stop()

	select {
	case <-sp.done:
	default:
		t.Fatalf("spinner not stopped")
	}
}

func TestRunConnectionSpinnerReturnsStop(t *testing.T) {
	stop := RunConnectionSpinner("connecting")
	stop()
	stop()
}
