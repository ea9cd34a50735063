package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/skekre98/edgeagent/logging"
)

// Binder decodes merged settings maps into structs and validates them.
//
// Fields are mapped with `config` tags and checked with `validate` tags.
// Decoding is weakly typed, so values from env and flags ("8080", "true",
// "30s", "a,b") convert to the field's type. Besides the validator's built-in
// rules, "loglevel" accepts any name logging.ParseLevel understands.
type Binder struct {
	validator *validator.Validate
}

// BindError reports which stage of Bind failed: "decode" or "validate".
type BindError struct {
	Stage string
	Err   error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("config %s error: %v", e.Stage, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// NewBinder returns a Binder with the agent's validation rules registered.
func NewBinder() *Binder {
	v := validator.New()
	_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := logging.ParseLevel(fl.Field().String())
		return err == nil
	})
	return &Binder{validator: v}
}

// Bind decodes source into target, a pointer to a struct, then validates it.
// target may be partially written when validation fails.
func (b *Binder) Bind(source map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		TagName: "config",
	})
	if err != nil {
		return &BindError{Stage: "decode", Err: err}
	}
	if err := decoder.Decode(source); err != nil {
		return &BindError{Stage: "decode", Err: err}
	}

	if err := b.validator.Struct(target); err != nil {
		return &BindError{Stage: "validate", Err: err}
	}
	return nil
}
