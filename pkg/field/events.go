package field

import (
	"errors"
	"html"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formstate/pkg/path"
	"github.com/goliatone/go-formstate/pkg/store"
)

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

// StrictSanitizer returns a shared policy that strips all markup.
func StrictSanitizer() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// ChangeEvent is the raw input of a change: the text of the control and, for
// checkboxes, its checked state.
type ChangeEvent struct {
	Value   string
	Checked bool
}

// Props is the write side of the boundary contract. Value is nil for boolean
// fields and Checked is only meaningful for them.
type Props struct {
	Name     string
	Value    any
	Checked  bool
	OnChange func(ChangeEvent) error
	OnBlur   func() error
}

// Props returns the current props for a widget.
func (a *Accessor) Props() (Props, error) {
	v, err := a.Value()
	if err != nil {
		return Props{}, err
	}
	props := Props{
		Name:     a.Name(),
		OnChange: a.OnChange,
		OnBlur:   a.OnBlur,
	}
	if a.typ == TypeBoolean {
		props.Checked, _ = v.(bool)
	} else {
		props.Value = v
	}
	return props, nil
}

// OnChange coerces ev by the declared type and stores it via SetValue.
func (a *Accessor) OnChange(ev ChangeEvent) error {
	return a.SetValue(a.coerce(ev))
}

// OnBlur re-validates the field and marks it touched.
func (a *Accessor) OnBlur() error {
	return a.reg.UpdateForm(a.formID, func(d *store.Draft) error {
		err := applyValidation(d, a.path)
		d.SetTouched(a.path, true)
		return err
	})
}

func (a *Accessor) coerce(ev ChangeEvent) any {
	switch a.typ {
	case TypeNumber:
		return ParseNumber(ev.Value)
	case TypeBoolean:
		return ev.Checked
	default:
		if a.sanitizer == nil {
			return ev.Value
		}
		return html.UnescapeString(a.sanitizer.Sanitize(ev.Value))
	}
}

// ParseNumber converts text the way a browser number conversion does: blank
// input is 0, 0x/0o/0b prefixes are integers in that base, "Infinity" is
// accepted with an optional sign, and anything unparsable is NaN.
func ParseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			n, err := strconv.ParseUint(s, 0, 64)
			if err != nil || strings.Contains(s, "_") {
				return math.NaN()
			}
			return float64(n)
		}
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if strings.ContainsAny(s, "_pPxXiInN") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

// ErrorInfo is the error display data of a path.
type ErrorInfo struct {
	Error   string
	Touched bool
}

// ErrorData reads the error and touched state at p without binding a field.
func ErrorData(reg *store.Registry, formID string, p path.Path) (ErrorInfo, error) {
	var info ErrorInfo
	err := reg.View(formID, func(s *store.State) {
		info = ErrorInfo{Error: s.ErrorAt(p), Touched: s.TouchedAt(p)}
	})
	return info, err
}

// HasNestedErrors reports whether any error is recorded at p or below it,
// which lets a collapsed section show that something inside needs attention.
func HasNestedErrors(reg *store.Registry, formID string, p path.Path) (bool, error) {
	return reg.HasNestedErrors(formID, p)
}
