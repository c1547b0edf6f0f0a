package browser

import (
	"context"
	"errors"
	"testing"
)

func TestClassifySelenium(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"no such element: Unable to locate element", ErrNotFound},
		{"invalid session id", ErrSessionInvalid},
		{"session not found", ErrSessionInvalid},
		{"element click intercepted", ErrClickIntercepted},
		{"timeout waiting for element", ErrTimeout},
	}
	for _, tt := range tests {
		got := classifySelenium(errors.New(tt.msg))
		if !errors.Is(got, tt.want) {
			t.Errorf("classifySelenium(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}

	// Unknown errors pass through unwrapped.
	plain := errors.New("something else entirely")
	if got := classifySelenium(plain); got != plain {
		t.Errorf("classifySelenium passed-through = %v", got)
	}
	if classifySelenium(nil) != nil {
		t.Error("classifySelenium(nil) != nil")
	}
}

func TestClassifyChromedp(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{context.DeadlineExceeded, ErrTimeout},
		{context.Canceled, ErrSessionInvalid},
		{errors.New("could not find node"), ErrNotFound},
		{errors.New("no nodes match selector"), ErrNotFound},
		{errors.New("node not visible"), ErrClickIntercepted},
		{errors.New("target closed"), ErrSessionInvalid},
	}
	for _, tt := range tests {
		got := classifyChromedp(tt.err)
		if !errors.Is(got, tt.want) {
			t.Errorf("classifyChromedp(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(classifySelenium(errors.New("no such element"))) {
		t.Error("ErrNotFound not transient")
	}
	if !IsTransient(classifyChromedp(context.DeadlineExceeded)) {
		t.Error("ErrTimeout not transient")
	}
	if IsTransient(classifySelenium(errors.New("invalid session id"))) {
		t.Error("ErrSessionInvalid wrongly transient")
	}
}
