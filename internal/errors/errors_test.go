package errors

import (
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: ErrNotFound, Status: 404, Message: "task not found: t1"}
	if got, want := err.Error(), "NOT_FOUND: task not found: t1"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		code   Code
		status int
	}{
		{"invalid request", NewInvalidRequest("bad"), ErrInvalidRequest, 400},
		{"not found", NewNotFound("goal", "g1"), ErrNotFound, 404},
		{"invalid state", NewInvalidState("already resolved"), ErrInvalidState, 409},
		{"conflict", NewConflict("dup"), ErrConflict, 409},
		{"internal", NewInternal(fmt.Errorf("disk gone")), ErrInternal, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Status != tt.status {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.status)
			}
		})
	}
}

func TestNewNotFoundDetails(t *testing.T) {
	err := NewNotFound("adjustment", "a1")
	if err.Details["kind"] != "adjustment" || err.Details["id"] != "a1" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestNewInternalNil(t *testing.T) {
	if msg := NewInternal(nil).Message; msg != "internal error" {
		t.Errorf("Message = %q", msg)
	}
}

func TestIsMatchesWrapped(t *testing.T) {
	wrapped := fmt.Errorf("accept: %w", NewInvalidState("resolved"))
	if !Is(wrapped, ErrInvalidState) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}
	if Is(wrapped, ErrNotFound) {
		t.Error("Is matched the wrong code")
	}
	if Is(fmt.Errorf("plain"), ErrInternal) {
		t.Error("Is matched a non-coded error")
	}
}

func TestStatusOf(t *testing.T) {
	if got := StatusOf(NewNotFound("task", "x")); got != 404 {
		t.Errorf("StatusOf = %d, want 404", got)
	}
	if got := StatusOf(fmt.Errorf("boom")); got != 500 {
		t.Errorf("StatusOf = %d, want 500", got)
	}
}

func TestGenerationKinds(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{Transport(fmt.Errorf("dial tcp")), KindTransport},
		{Parse(fmt.Errorf("unexpected end")), KindParse},
		{Schema("missing %s", "milestones"), KindSchema},
		{fmt.Errorf("wrapped: %w", Schema("x")), KindSchema},
		{fmt.Errorf("plain"), ""},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
