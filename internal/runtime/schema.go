package runtime

import (
	"regexp"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Params is the resolved, read-only parameter mapping passed to a strategy.
type Params map[string]any

// Int returns the named parameter as an int, or fallback when absent.
func (p Params) Int(key string, fallback int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// Float returns the named parameter as a float64, or fallback when absent.
func (p Params) Float(key string, fallback float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

// Bool returns the named parameter as a bool, or fallback when absent.
func (p Params) Bool(key string, fallback bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}

	return fallback
}

// String returns the named parameter as a string, or fallback when absent.
func (p Params) String(key string, fallback string) string {
	if v, ok := p[key].(string); ok {
		return v
	}

	return fallback
}

type FieldType string

const (
	FieldTypeInt    FieldType = "int"
	FieldTypeFloat  FieldType = "float"
	FieldTypeBool   FieldType = "bool"
	FieldTypeSelect FieldType = "select"
)

// FieldSpec declares one strategy input.
type FieldSpec struct {
	Type    FieldType `yaml:"type" json:"type"`
	Default any       `yaml:"default" json:"default"`
	// Min and Max bound int and float inputs; out-of-range user values are
	// clamped, not rejected.
	Min *float64 `yaml:"min" json:"min"`
	Max *float64 `yaml:"max" json:"max"`
	// Options enumerate legal values for select inputs.
	Options []string `yaml:"options" json:"options"`
}

// ParamSchema declares a strategy's identity and inputs. Validated once at
// load time, independent of the simulation core.
type ParamSchema struct {
	ID     string               `yaml:"id" json:"id"`
	Name   string               `yaml:"name" json:"name"`
	Inputs map[string]FieldSpec `yaml:"inputs" json:"inputs"`
	// EngineVersion optionally pins the engine API version the strategy
	// requires, checked with semver major/minor equality.
	EngineVersion string `yaml:"engine_version" json:"engine_version"`
}

var schemaIDPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Validate checks the schema shape. Returns an InvalidParamSchema error
// naming the first offending field.
func (s ParamSchema) Validate() error {
	if s.ID == "" || !schemaIDPattern.MatchString(s.ID) {
		return errors.Newf(errors.ErrCodeInvalidParamSchema, "schema id must match [a-z0-9_]+: %q", s.ID)
	}

	if s.Name == "" {
		return errors.New(errors.ErrCodeInvalidParamSchema, "schema name is required")
	}

	for key, spec := range s.Inputs {
		switch spec.Type {
		case FieldTypeInt, FieldTypeFloat, FieldTypeBool, FieldTypeSelect:
		default:
			return errors.Newf(errors.ErrCodeInvalidParamSchema, "input %s has invalid type %q", key, spec.Type)
		}

		if spec.Default == nil {
			return errors.Newf(errors.ErrCodeInvalidParamSchema, "input %s missing default", key)
		}

		if spec.Type == FieldTypeInt || spec.Type == FieldTypeFloat {
			if spec.Min == nil || spec.Max == nil {
				return errors.Newf(errors.ErrCodeInvalidParamSchema, "input %s missing min/max", key)
			}
		}

		if spec.Type == FieldTypeSelect && len(spec.Options) == 0 {
			return errors.Newf(errors.ErrCodeInvalidParamSchema, "input %s missing options", key)
		}
	}

	return nil
}

// Resolve merges user values over schema defaults, coercing types and
// clamping numeric values into [min, max]. Unknown user keys are ignored;
// unusable values fall back to the default rather than erroring.
func (s ParamSchema) Resolve(userValues map[string]any) Params {
	resolved := make(Params, len(s.Inputs))

	for key, spec := range s.Inputs {
		value, ok := userValues[key]
		if !ok {
			value = spec.Default
		}

		switch spec.Type {
		case FieldTypeInt:
			n, ok := toFloat(value)
			if !ok {
				n, _ = toFloat(spec.Default)
			}

			n = clamp(n, spec.Min, spec.Max)
			resolved[key] = int(n)
		case FieldTypeFloat:
			n, ok := toFloat(value)
			if !ok {
				n, _ = toFloat(spec.Default)
			}

			resolved[key] = clamp(n, spec.Min, spec.Max)
		case FieldTypeBool:
			b, ok := value.(bool)
			if !ok {
				b, _ = spec.Default.(bool)
			}

			resolved[key] = b
		case FieldTypeSelect:
			str, _ := value.(string)
			if !containsString(spec.Options, str) {
				str = spec.Options[0]
			}

			resolved[key] = str
		}
	}

	return resolved
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func clamp(v float64, min, max *float64) float64 {
	if min != nil && v < *min {
		v = *min
	}

	if max != nil && v > *max {
		v = *max
	}

	return v
}

func containsString(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}

	return false
}
