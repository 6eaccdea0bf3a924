package schema

import (
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/validator"
)

type check[T any] struct {
	fn      func(T) bool
	code    string
	message string
}

// StringSchema validates strings.
type StringSchema struct {
	checks []check[string]
}

// String returns a string schema.
func String() *StringSchema { return &StringSchema{} }

// Min requires at least n characters.
func (s *StringSchema) Min(n int, message ...string) *StringSchema {
	s.checks = append(s.checks, check[string]{
		fn:      func(v string) bool { return utf8.RuneCountInString(v) >= n },
		code:    validator.CodeTooSmall,
		message: pick(message, fmt.Sprintf("String must contain at least %d character(s)", n)),
	})
	return s
}

// Max allows at most n characters.
func (s *StringSchema) Max(n int, message ...string) *StringSchema {
	s.checks = append(s.checks, check[string]{
		fn:      func(v string) bool { return utf8.RuneCountInString(v) <= n },
		code:    validator.CodeTooBig,
		message: pick(message, fmt.Sprintf("String must contain at most %d character(s)", n)),
	})
	return s
}

// NonEmpty requires a value that is not blank.
func (s *StringSchema) NonEmpty(message ...string) *StringSchema {
	s.checks = append(s.checks, check[string]{
		fn:      func(v string) bool { return strings.TrimSpace(v) != "" },
		code:    validator.CodeTooSmall,
		message: pick(message, "String must contain at least 1 character(s)"),
	})
	return s
}

// Pattern requires a regular expression match.
func (s *StringSchema) Pattern(re *regexp.Regexp, message ...string) *StringSchema {
	s.checks = append(s.checks, check[string]{
		fn:      re.MatchString,
		code:    validator.CodePattern,
		message: pick(message, "Invalid"),
	})
	return s
}

// Email requires an RFC 5322 address.
func (s *StringSchema) Email(message ...string) *StringSchema {
	s.checks = append(s.checks, check[string]{
		fn: func(v string) bool {
			addr, err := mail.ParseAddress(v)
			return err == nil && addr.Address == v
		},
		code:    validator.CodePattern,
		message: pick(message, "Invalid email"),
	})
	return s
}

// Check implements Node.
func (s *StringSchema) Check(value any, at path.Path) []validator.Issue {
	v, ok := value.(string)
	if !ok {
		return []validator.Issue{typeIssue(at, "string", value)}
	}
	return runChecks(s.checks, v, at)
}

// Child implements Node.
func (s *StringSchema) Child(seg path.Segment) (Node, error) { return nil, noChild("string", seg) }

// NumberSchema validates numbers of any Go numeric kind.
type NumberSchema struct {
	checks []check[float64]
}

// Number returns a number schema.
func Number() *NumberSchema { return &NumberSchema{} }

// Min requires value >= min.
func (s *NumberSchema) Min(min float64, message ...string) *NumberSchema {
	s.checks = append(s.checks, check[float64]{
		fn:      func(v float64) bool { return v >= min },
		code:    validator.CodeTooSmall,
		message: pick(message, fmt.Sprintf("Number must be greater than or equal to %v", min)),
	})
	return s
}

// Max requires value <= max.
func (s *NumberSchema) Max(max float64, message ...string) *NumberSchema {
	s.checks = append(s.checks, check[float64]{
		fn:      func(v float64) bool { return v <= max },
		code:    validator.CodeTooBig,
		message: pick(message, fmt.Sprintf("Number must be less than or equal to %v", max)),
	})
	return s
}

// Int requires an integral value.
func (s *NumberSchema) Int(message ...string) *NumberSchema {
	s.checks = append(s.checks, check[float64]{
		fn:      func(v float64) bool { return v == math.Trunc(v) },
		code:    validator.CodeInvalidType,
		message: pick(message, "Expected integer, received float"),
	})
	return s
}

// Check implements Node.
func (s *NumberSchema) Check(value any, at path.Path) []validator.Issue {
	v, ok := toFloat(value)
	if !ok || math.IsNaN(v) {
		return []validator.Issue{typeIssue(at, "number", value)}
	}
	return runChecks(s.checks, v, at)
}

// Child implements Node.
func (s *NumberSchema) Child(seg path.Segment) (Node, error) { return nil, noChild("number", seg) }

// BoolSchema validates booleans.
type BoolSchema struct{}

// Bool returns a boolean schema.
func Bool() BoolSchema { return BoolSchema{} }

// Check implements Node.
func (BoolSchema) Check(value any, at path.Path) []validator.Issue {
	if _, ok := value.(bool); !ok {
		return []validator.Issue{typeIssue(at, "boolean", value)}
	}
	return nil
}

// Child implements Node.
func (BoolSchema) Child(seg path.Segment) (Node, error) { return nil, noChild("boolean", seg) }

// EnumSchema accepts one of a fixed set of strings.
type EnumSchema struct {
	values []string
}

// Enum returns an enum schema.
func Enum(values ...string) EnumSchema {
	return EnumSchema{values: append([]string(nil), values...)}
}

// Values returns the accepted values in declared order.
func (s EnumSchema) Values() []string { return append([]string(nil), s.values...) }

// Check implements Node.
func (s EnumSchema) Check(value any, at path.Path) []validator.Issue {
	v, ok := value.(string)
	if !ok {
		return []validator.Issue{typeIssue(at, "string", value)}
	}
	for _, candidate := range s.values {
		if candidate == v {
			return nil
		}
	}
	quoted := make([]string, len(s.values))
	for i, candidate := range s.values {
		quoted[i] = "'" + candidate + "'"
	}
	msg := fmt.Sprintf("Invalid enum value. Expected %s, received '%s'", strings.Join(quoted, " | "), v)
	return []validator.Issue{issue(at, validator.CodeInvalidEnum, msg)}
}

// Child implements Node.
func (s EnumSchema) Child(seg path.Segment) (Node, error) { return nil, noChild("enum", seg) }

// AnySchema accepts every value, including absent ones.
type AnySchema struct{}

// Any returns a schema that accepts everything.
func Any() AnySchema { return AnySchema{} }

// Check implements Node.
func (AnySchema) Check(any, path.Path) []validator.Issue { return nil }

// Child implements Node.
func (AnySchema) Child(path.Segment) (Node, error) { return AnySchema{}, nil }

func runChecks[T any](checks []check[T], v T, at path.Path) []validator.Issue {
	var out []validator.Issue
	for _, c := range checks {
		if !c.fn(v) {
			out = append(out, issue(at, c.code, c.message))
		}
	}
	return out
}

func typeIssue(at path.Path, expected string, value any) validator.Issue {
	received := typeName(value)
	if received == "undefined" {
		return issue(at, validator.CodeRequired, "Required")
	}
	return issue(at, validator.CodeInvalidType, fmt.Sprintf("Expected %s, received %s", expected, received))
}

func typeName(value any) string {
	switch v := value.(type) {
	case nil:
		return "undefined"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		if f, ok := toFloat(v); ok {
			if math.IsNaN(f) {
				return "nan"
			}
			return "number"
		}
		return fmt.Sprintf("%T", v)
	}
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
