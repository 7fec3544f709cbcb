package errors

import (
	"fmt"
	"testing"
)

func TestError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeSessionBusy, "session busy")
	if err.Code != ErrCodeSessionBusy {
		t.Errorf("expected code %s, got %s", ErrCodeSessionBusy, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeConnectFailed, "connect failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeConnectFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeSessionBusy) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("state", "live").WithDetail("attempt", 2)
	if detailed.Details["state"] != "live" {
		t.Error("WithDetail should add details")
	}
}

func TestIsThroughFmtWrap(t *testing.T) {
	inner := TransportNotOpen("api.OpenRepo")
	outer := fmt.Errorf("opening repo: %w", inner)

	if !Is(outer, ErrCodeTransportNotOpen) {
		t.Error("Is should unwrap fmt.Errorf chains")
	}
	if GetCode(outer) != ErrCodeTransportNotOpen {
		t.Errorf("expected code %s, got %s", ErrCodeTransportNotOpen, GetCode(outer))
	}
	if GetCode(nil) != "" {
		t.Error("GetCode(nil) should be empty")
	}
}

func TestErrorConstructors(t *testing.T) {
	err := CallFailed("api.Commit", -32000, "nothing to commit")
	if err.Code != ErrCodeCallFailed {
		t.Errorf("expected code %s, got %s", ErrCodeCallFailed, err.Code)
	}
	if err.Details["method"] != "api.Commit" {
		t.Error("CallFailed should include method detail")
	}

	err = SessionBusy("live")
	if err.Details["state"] != "live" {
		t.Error("SessionBusy should include state detail")
	}
}

func TestCloseInfo(t *testing.T) {
	err := fmt.Errorf("call: %w", TransportClosed(1006, ""))

	code, reason, ok := CloseInfo(err)
	if !ok {
		t.Fatal("expected close info")
	}
	if code != 1006 || reason != "" {
		t.Errorf("expected 1006 with empty reason, got %d %q", code, reason)
	}

	if _, _, ok := CloseInfo(TransportNotOpen("x")); ok {
		t.Error("CloseInfo should reject other codes")
	}
	if _, _, ok := CloseInfo(fmt.Errorf("plain")); ok {
		t.Error("CloseInfo should reject plain errors")
	}
}

func TestIsThroughJoin(t *testing.T) {
	joined := Join(nil, fmt.Errorf("plain"), TransportClosed(1006, "eof"))
	if !Is(joined, ErrCodeTransportClosed) {
		t.Error("Is should look inside joined errors")
	}
	if Is(joined, ErrCodeSessionBusy) {
		t.Error("Is should not match absent codes")
	}
	if Join(nil, nil) != nil {
		t.Error("Join of nils should be nil")
	}
}
