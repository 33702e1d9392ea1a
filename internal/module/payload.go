package module

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	dErrors "civitas/pkg/domain-errors"
)

// Decode converts a free-form payload into the handler's typed input and
// returns the payload fields dst does not declare, so nothing the citizen
// sent is silently dropped.
func Decode(data map[string]any, dst any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "payload is not serializable")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, dErrors.Newf(dErrors.CodeValidation, "field %s has an invalid value", typeErr.Field)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "payload has invalid values")
	}

	known := jsonFields(reflect.TypeOf(dst))
	var ext map[string]any
	for k, v := range data {
		if _, ok := known[k]; ok {
			continue
		}
		if ext == nil {
			ext = make(map[string]any)
		}
		ext[k] = v
	}
	return ext, nil
}

var fieldCache sync.Map // reflect.Type -> map[string]struct{}

func jsonFields(t reflect.Type) map[string]struct{} {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(map[string]struct{})
	}
	fields := make(map[string]struct{})
	collectFields(t, fields)
	fieldCache.Store(t, fields)
	return fields
}

func collectFields(t reflect.Type, into map[string]struct{}) {
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			collectFields(f.Type, into)
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		into[name] = struct{}{}
	}
}

// Required fails with a validation error naming the first empty field.
// Pairs are (field name, value).
func Required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return dErrors.Newf(dErrors.CodeValidation, "field %s is required", pairs[i])
		}
	}
	return nil
}

// Flag is a boolean that also accepts the string and numeric forms HTML
// forms produce ("true", "sim", "on", 1).
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = false
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*f = Flag(t)
	case float64:
		*f = t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "sim", "s", "on":
			*f = true
		case "", "false", "0", "no", "nao", "não", "n", "off":
			*f = false
		default:
			return fmt.Errorf("invalid boolean %q", t)
		}
	default:
		return fmt.Errorf("invalid boolean %s", string(b))
	}
	return nil
}

// OptionalFlag distinguishes "absent" from "false"; used for fields whose
// default is true, such as isAnonymous.
type OptionalFlag struct {
	Set   bool
	Value bool
}

func (o *OptionalFlag) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var f Flag
	if err := f.UnmarshalJSON(b); err != nil {
		return err
	}
	o.Set, o.Value = true, bool(f)
	return nil
}

// Or returns the value when set, def otherwise.
func (o OptionalFlag) Or(def bool) bool {
	if o.Set {
		return o.Value
	}
	return def
}

// JSONText compacts a nested sub-object (coordinates, witness lists,
// evidence descriptors) into a JSON string column. Empty input yields "".
func JSONText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ""
	}
	return buf.String()
}

// EncodeText serializes an already-decoded value into a JSON string column.
func EncodeText(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return ""
	}
	return string(b)
}

// Attributes flattens a typed record detail into the generic attribute map.
func Attributes(detail any) (map[string]any, error) {
	b, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("marshal record detail: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal record detail: %w", err)
	}
	return out, nil
}
