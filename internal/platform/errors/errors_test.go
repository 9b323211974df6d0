package errors

import (
	stderrs "errors"
	"fmt"
	"testing"
)

func TestErrorCodeString(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want string
	}{
		{ErrorCodeUnknown, "unknown"},
		{ErrorCodeSourceNotFound, "source_not_found"},
		{ErrorCodeMalformedRecord, "malformed_record"},
		{ErrorCodeInvalidConfig, "invalid_config"},
		{ErrorCodeDuplicateIdentifier, "duplicate_identifier"},
		{ErrorCodeNotFound, "not_found"},
		{ErrorCodeIndexOutOfRange, "index_out_of_range"},
		{ErrorCodeInvalidRatio, "invalid_ratio"},
		{9999, "code(9999)"}, // default branch
	}
	for _, c := range cases {
		if got := c.code.String(); got != c.want {
			t.Fatalf("String(%d) = %q, want %q", c.code, got, c.want)
		}
	}
	if !ErrorCodeMalformedRecord.Recoverable() || ErrorCodeInvalidRatio.Recoverable() {
		t.Fatalf("only malformed records are recoverable")
	}
}

func TestErrorTypeAndMethods(t *testing.T) {
	// nil *Error should render "<nil>"
	var e *Error
	if e.Error() != "<nil>" {
		t.Fatalf("nil *Error render = %q, want <nil>", e.Error())
	}

	// New / Newf
	e1 := New(ErrorCodeInvalidConfig, "bad stuff")
	if CodeOf(e1) != ErrorCodeInvalidConfig {
		t.Fatalf("CodeOf(New) = %v", CodeOf(e1))
	}
	e2 := Newf(ErrorCodeMalformedRecord, "bad entry %d", 12)
	if got := e2.Error(); got != "bad entry 12" {
		t.Fatalf("Newf().Error = %q", got)
	}

	// Wrap / Wrapf / Unwrap
	src := stderrs.New("root")
	e3 := Wrap(src, ErrorCodeSourceNotFound, "open failed")
	if u := stderrs.Unwrap(e3); u == nil || u.Error() != "root" {
		t.Fatalf("Wrap did not keep orig")
	}
	if CodeOf(e3) != ErrorCodeSourceNotFound {
		t.Fatalf("CodeOf(Wrap) = %v", CodeOf(e3))
	}
	e4 := Wrapf(src, ErrorCodeNotFound, "nope %s", "here")
	if want := "nope here: root"; e4.Error() != want {
		t.Fatalf("Wrapf().Error = %q, want %q", e4.Error(), want)
	}

	// As and Message
	if got, ok := As(e4); !ok || got.Code() != ErrorCodeNotFound || got.Message() != "nope here" {
		t.Fatalf("As() failed for our error")
	}
	if _, ok := As(src); ok {
		t.Fatalf("As() true for foreign error")
	}

	// WithField (copy-on-write) and WithOp
	e5 := Wrap(src, ErrorCodeInvalidConfig, "oops")
	e6 := WithField(e5, "min_token_length")
	e7 := WithOp(e6, "preprocess.New")
	if fe, ok := As(e6); !ok || fe.Field() != "min_token_length" {
		t.Fatalf("WithField failed")
	}
	if oe, ok := As(e7); !ok || oe.Op() != "preprocess.New" {
		t.Fatalf("WithOp failed")
	}
	if fe0, _ := As(e5); fe0.Field() != "" || fe0.Op() != "" {
		t.Fatalf("copy-on-write mutated original")
	}
	if got := WithField(src, "x"); got != src {
		t.Fatalf("WithField(foreign) should return input")
	}

	// WithFieldChain wraps foreign error
	wrapped := WithFieldChain(src, "name")
	we, ok := As(wrapped)
	if !ok || we.Field() != "name" || we.Code() != ErrorCodeUnknown {
		t.Fatalf("WithFieldChain failed: %+v", we)
	}

	// Helpers (sugar) and IsCode
	if !IsCode(SourceNotFoundf("x"), ErrorCodeSourceNotFound) ||
		!IsCode(Malformedf("x"), ErrorCodeMalformedRecord) ||
		!IsCode(InvalidConfigf("x"), ErrorCodeInvalidConfig) ||
		!IsCode(DuplicateIDf("x"), ErrorCodeDuplicateIdentifier) ||
		!IsCode(NotFoundf("x"), ErrorCodeNotFound) ||
		!IsCode(OutOfRangef("x"), ErrorCodeIndexOutOfRange) ||
		!IsCode(InvalidRatiof("x"), ErrorCodeInvalidRatio) ||
		!IsCode(Internalf("x"), ErrorCodeUnknown) {
		t.Fatalf("sugar helpers code mismatch")
	}
	if IsCode(nil, ErrorCodeUnknown) {
		t.Fatalf("IsCode(nil) should be false")
	}

	// WrapIf
	if WrapIf(nil, ErrorCodeUnknown, "ignored") != nil {
		t.Fatalf("WrapIf(nil) should return nil")
	}
	if WrapIf(src, ErrorCodeUnknown, "x") == nil {
		t.Fatalf("WrapIf(non-nil) should wrap")
	}

	// Root traversal
	deep := fmt.Errorf("level2: %w", fmt.Errorf("level1: %w", src))
	if got := Root(deep); got == nil || got.Error() != "root" {
		t.Fatalf("Root() failed, got %v", got)
	}

	// codes survive fmt wrapping
	if !IsCode(fmt.Errorf("ctx: %w", e4), ErrorCodeNotFound) {
		t.Fatalf("IsCode through fmt.Errorf failed")
	}

	if !IsCode(ErrNotFound, ErrorCodeNotFound) {
		t.Fatalf("ErrNotFound code mismatch")
	}
}
