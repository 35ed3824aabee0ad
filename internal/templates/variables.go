package templates

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"whatsapp-console/internal/models"
)

// ErrUnknownVariable is returned when setting a key the template does not declare.
var ErrUnknownVariable = errors.New("unknown template variable")

var placeholderPattern = regexp.MustCompile(`\{\{([1-9][0-9]*)\}\}`)

// Variables maps placeholder tokens ("{{1}}", "{{2}}", ...) to user-entered values.
// Keys keep ascending numeric order. Not safe for concurrent use.
type Variables struct {
	keys   []string
	values map[string]string
}

// ExtractVariables finds the distinct placeholders of a BODY text and maps each
// to an empty value.
func ExtractVariables(body string) Variables {
	seen := make(map[string]bool)
	var digits []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		digits = append(digits, m[1])
	}
	// No leading zeros, so a shorter number is smaller and equal lengths
	// compare lexically. Placeholders of any size keep their key.
	sort.Slice(digits, func(i, j int) bool {
		if len(digits[i]) != len(digits[j]) {
			return len(digits[i]) < len(digits[j])
		}
		return digits[i] < digits[j]
	})

	v := Variables{keys: make([]string, 0, len(digits)), values: make(map[string]string, len(digits))}
	for _, d := range digits {
		key := "{{" + d + "}}"
		v.keys = append(v.keys, key)
		v.values[key] = ""
	}
	return v
}

// ForTemplate extracts the variables of a template's BODY component.
func ForTemplate(t models.Template) Variables {
	body, _ := t.Body()
	return ExtractVariables(body.Text)
}

// Placeholder returns the token for position n, e.g. "{{3}}".
func Placeholder(n int) string {
	return "{{" + strconv.Itoa(n) + "}}"
}

func (v Variables) Len() int {
	return len(v.keys)
}

// Keys returns the placeholder tokens in order.
func (v Variables) Keys() []string {
	keys := make([]string, len(v.keys))
	copy(keys, v.keys)
	return keys
}

func (v Variables) Get(key string) (string, bool) {
	val, ok := v.values[key]
	return val, ok
}

// Set assigns a value to an existing placeholder.
func (v *Variables) Set(key, value string) error {
	if _, ok := v.values[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVariable, key)
	}
	v.values[key] = value
	return nil
}

// SetAll assigns every entry of values; it stops at the first unknown key.
func (v *Variables) SetAll(values map[string]string) error {
	for key, value := range values {
		if err := v.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Values returns the values in placeholder order.
func (v Variables) Values() []string {
	out := make([]string, 0, len(v.keys))
	for _, key := range v.keys {
		out = append(out, v.values[key])
	}
	return out
}

// MarshalJSON writes the mapping as a JSON object in placeholder order.
func (v Variables) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range v.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RequiresImage reports whether the template declares an IMAGE header, in which
// case the campaign form asks for a media upload.
func RequiresImage(t models.Template) bool {
	h, ok := t.Header()
	return ok && h.Format == models.HeaderImage
}

// Preview substitutes the variable values into the BODY text.
func Preview(t models.Template, vars Variables) string {
	body, _ := t.Body()
	return placeholderPattern.ReplaceAllStringFunc(body.Text, func(match string) string {
		if val, ok := vars.Get(match); ok {
			return val
		}
		return match
	})
}
