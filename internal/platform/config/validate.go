package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	perr "firewatch/internal/platform/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// envName reports the env suffix (`env:"DISTANCE_M"`) in messages when a field has one
func envName(fld reflect.StructField) string {
	if tag := fld.Tag.Get("env"); tag != "" && tag != "-" {
		return tag
	}
	return fld.Name
}

var checker = sync.OnceValues(func() (*validator.Validate, ut.Translator) {
	loc := en.New()
	trans, _ := ut.New(loc, loc).GetTranslator(loc.Locale())

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(envName)
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		panic(err)
	}
	return v, trans
})

// Validate checks an options struct against its `validate` tags and returns a
// single ErrorCodeValidation error listing every violation in English
func Validate(opts any) error {
	v, trans := checker()
	err := v.Struct(opts)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return perr.Wrapf(err, perr.ErrorCodeValidation, "validate options")
	}
	var b strings.Builder
	for i, fe := range ves {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(fe.Translate(trans))
	}
	return perr.Newf(perr.ErrorCodeValidation, "invalid options: %s", b.String())
}

// MustValidate panics when Validate fails; used by module constructors at boot
func MustValidate(opts any) {
	if err := Validate(opts); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}
