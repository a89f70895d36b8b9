package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"testing"
)

func TestErrorCode_String(t *testing.T) {
	want := map[ErrorCode]string{
		ErrorCodeUnknown:         "unknown",
		ErrorCodeTooManyRequests: "too_many_requests",
		ErrorCodeNotFound:        "not_found",
		ErrorCodeSource:          "source",
		ErrorCode(4242):          "code_4242",
	}
	for c, s := range want {
		if c.String() != s {
			t.Fatalf("%d.String() = %q, want %q", uint16(c), c.String(), s)
		}
	}
}

func TestError_RenderAndUnwrap(t *testing.T) {
	var nilErr *Error
	if nilErr.Error() != "<nil>" {
		t.Fatalf("nil render = %q", nilErr.Error())
	}

	if got := Newf(ErrorCodeJSON, "decode row %d", 12).Error(); got != "decode row 12" {
		t.Fatalf("Newf = %q", got)
	}

	cause := stderrs.New("connection reset")
	err := Wrapf(cause, ErrorCodeSource, "fetch %s", "VIIRS_SNPP_NRT")
	if err.Error() != "fetch VIIRS_SNPP_NRT: connection reset" {
		t.Fatalf("Wrapf = %q", err.Error())
	}
	if !stderrs.Is(err, cause) {
		t.Fatalf("cause lost")
	}
	e, ok := As(fmt.Errorf("cycle: %w", err))
	if !ok || e.Code() != ErrorCodeSource || e.Message() != "fetch VIIRS_SNPP_NRT" {
		t.Fatalf("As = %+v, %v", e, ok)
	}
	if _, ok := As(cause); ok {
		t.Fatalf("foreign error matched As")
	}
}

func TestCodeOf_OutermostWins(t *testing.T) {
	inner := New(ErrorCodeNotFound, "incident 9")
	outer := Wrap(inner, ErrorCodeConflict, "attach")
	if CodeOf(outer) != ErrorCodeConflict || CodeOf(inner) != ErrorCodeNotFound {
		t.Fatalf("codes = %v %v", CodeOf(outer), CodeOf(inner))
	}
	if CodeOf(stderrs.New("x")) != ErrorCodeUnknown || CodeOf(nil) != ErrorCodeUnknown {
		t.Fatalf("foreign errors should be unknown")
	}
}

func TestShorthands(t *testing.T) {
	cases := []struct {
		err  error
		code ErrorCode
	}{
		{NotFoundf("x"), ErrorCodeNotFound},
		{InvalidArgf("x"), ErrorCodeInvalidArgument},
		{DBf("x"), ErrorCodeDB},
		{Conflictf("x"), ErrorCodeConflict},
		{Unavailablef("x"), ErrorCodeUnavailable},
		{Sourcef("x"), ErrorCodeSource},
	}
	for _, c := range cases {
		if !IsCode(c.err, c.code) {
			t.Fatalf("%v has code %v, want %v", c.err, CodeOf(c.err), c.code)
		}
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unavailable", Unavailablef("all sources failed"), true},
		{"rate limited", New(ErrorCodeTooManyRequests, "slow down"), true},
		{"validation", New(ErrorCodeValidation, "bad"), false},
		{"serialization", Wrap(pgErr("40001"), ErrorCodeDB, "tx"), true},
		{"canceled", Wrap(context.Canceled, ErrorCodeUnavailable, "stop"), false},
		{"foreign", stderrs.New("plain"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Retryable(c.err); got != c.want {
				t.Fatalf("Retryable(%v) = %v, want %v", c.err, got, c.want)
			}
		})
	}
}
