package phonoloop

import "errors"

// Errors returned by the pipeline stages. They are always wrapped with the
// offending token or parameter, so match them with errors.Is.
var (
	ErrMalformedChord     = errors.New("malformed chord")
	ErrUnknownNote        = errors.New("unknown note")
	ErrUnsupportedMeasure = errors.New("unsupported measure")
	ErrUnknownPolicy      = errors.New("unknown progression policy")
	ErrInvalidOffset      = errors.New("invalid offset")
	ErrInvalidMode        = errors.New("invalid alignment mode")
	ErrRateMismatch       = errors.New("sample rate mismatch")
	ErrDecode             = errors.New("cannot decode wave")
	ErrExternalTool       = errors.New("external tool failed")
	ErrInvalidConfig      = errors.New("invalid config")
	ErrUnknownPreset      = errors.New("unknown preset")
)
