package metrics

import (
	"encoding/json"
	"testing"
)

func TestCollector_Connections(t *testing.T) {
	c := New()

	c.ConnectionOpened()
	c.ConnectionOpened()
	if c.ActiveConnections() != 2 {
		t.Errorf("active = %d, want 2", c.ActiveConnections())
	}
	if c.TotalConnections() != 2 {
		t.Errorf("total = %d, want 2", c.TotalConnections())
	}

	c.ConnectionClosed()
	if c.ActiveConnections() != 1 {
		t.Errorf("active = %d, want 1", c.ActiveConnections())
	}
	if c.TotalConnections() != 2 {
		t.Errorf("total should remain 2, got %d", c.TotalConnections())
	}
}

func TestCollector_Auth(t *testing.T) {
	c := New()

	c.AuthSucceeded()
	c.AuthFailed()
	c.AuthFailed()

	if c.AuthSuccesses() != 1 {
		t.Errorf("auth ok = %d, want 1", c.AuthSuccesses())
	}
	if c.AuthFailures() != 2 {
		t.Errorf("auth failed = %d, want 2", c.AuthFailures())
	}
}

func TestCollector_Frames(t *testing.T) {
	c := New()

	c.FrameReceived(25)
	c.FrameReceived(45)
	c.FrameSent(25)

	if c.FramesIn() != 2 || c.TotalBytesIn() != 70 {
		t.Errorf("in = %d frames / %d bytes, want 2 / 70", c.FramesIn(), c.TotalBytesIn())
	}
	if c.FramesOut() != 1 || c.TotalBytesOut() != 25 {
		t.Errorf("out = %d frames / %d bytes, want 1 / 25", c.FramesOut(), c.TotalBytesOut())
	}
}

func TestCollector_Errors(t *testing.T) {
	c := New()

	c.RecordError("first error")
	c.RecordError("second error")

	if c.ErrorCount() != 2 {
		t.Errorf("errors = %d, want 2", c.ErrorCount())
	}
}

func TestCollector_Snapshot(t *testing.T) {
	c := New()
	c.ConnectionOpened()
	c.FrameReceived(100)
	c.FrameSent(50)
	c.SendFailed()
	c.RecordError("test")

	snap := c.Snapshot()
	if snap.ConnectionsActive != 1 {
		t.Errorf("snap active = %d", snap.ConnectionsActive)
	}
	if snap.BytesIn != 100 {
		t.Errorf("snap bytes in = %d", snap.BytesIn)
	}
	if snap.SendFailures != 1 {
		t.Errorf("snap send failures = %d", snap.SendFailures)
	}
	if snap.ErrorsTotal != 1 {
		t.Errorf("snap errors = %d", snap.ErrorsTotal)
	}
	if snap.LastErrorMessage != "test" {
		t.Errorf("snap error msg = %q", snap.LastErrorMessage)
	}
}

func TestCollector_JSON(t *testing.T) {
	c := New()
	c.ConnectionOpened()
	c.AuthSucceeded()
	c.FrameSent(42)

	raw := c.JSON()
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("JSON parse error: %v", err)
	}
	if snap.ConnectionsActive != 1 {
		t.Errorf("JSON active = %d", snap.ConnectionsActive)
	}
	if snap.AuthSucceeded != 1 {
		t.Errorf("JSON auth = %d", snap.AuthSucceeded)
	}
	if snap.BytesOut != 42 {
		t.Errorf("JSON bytes out = %d", snap.BytesOut)
	}
}

func TestNilCollector_NoOps(t *testing.T) {
	var c *Collector

	// None of these should panic.
	c.ConnectionOpened()
	c.ConnectionClosed()
	c.AuthSucceeded()
	c.AuthFailed()
	c.FrameReceived(100)
	c.FrameSent(100)
	c.SendFailed()
	c.RecordError("test")

	if c.ActiveConnections() != 0 {
		t.Error("nil collector should return 0")
	}
	if c.TotalBytesIn() != 0 {
		t.Error("nil collector should return 0")
	}
	if c.ErrorCount() != 0 {
		t.Error("nil collector should return 0")
	}

	snap := c.Snapshot()
	if snap.ConnectionsActive != 0 {
		t.Error("nil snapshot should be zero")
	}

	j := c.JSON()
	if j == "" {
		t.Error("nil JSON should return valid JSON")
	}
}
