package config

import (
	"strings"
	"testing"
	"time"

	perr "firewatch/internal/platform/errors"
)

type sampleOptions struct {
	DistanceM float64       `env:"DISTANCE_M" validate:"gt=0"`
	Batch     int           `env:"BATCH" validate:"min=1,max=100000"`
	Expiry    time.Duration `env:"EXPIRY" validate:"gt=0"`
	Sources   []string      `validate:"min=1,dive,required"`
}

func TestValidateOK(t *testing.T) {
	o := sampleOptions{DistanceM: 5000, Batch: 10, Expiry: time.Hour, Sources: []string{"MODIS_NRT"}}
	if err := Validate(o); err != nil {
		t.Fatalf("Validate ok: %v", err)
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	err := Validate(sampleOptions{})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("code = %v, want validation", perr.CodeOf(err))
	}
	msg := err.Error()
	for _, want := range []string{"DISTANCE_M", "BATCH", "EXPIRY", "Sources"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestMustValidatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("MustValidate should panic")
		}
	}()
	MustValidate(sampleOptions{Batch: -1})
}
