package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AnswerValue is either a single string or an ordered set of strings.
// Client payloads may carry strings, numbers, booleans or arrays of them;
// they are normalized to strings once, at decode time.
type AnswerValue struct {
	values []string
	multi  bool
}

// SingleAnswer wraps one value.
func SingleAnswer(v string) AnswerValue {
	return AnswerValue{values: []string{v}}
}

// MultiAnswer wraps an ordered set of values; duplicates are dropped. A set
// holding exactly one value collapses to SingleAnswer, so ["A"] and "A" are
// the same answer.
func MultiAnswer(vs ...string) AnswerValue {
	seen := make(map[string]struct{}, len(vs))
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 1 {
		return SingleAnswer(out[0])
	}
	return AnswerValue{values: out, multi: true}
}

// IsZero reports whether no value was supplied.
func (v AnswerValue) IsZero() bool {
	return !v.multi && len(v.values) == 0
}

// IsMulti reports whether the value is a set.
func (v AnswerValue) IsMulti() bool {
	return v.multi
}

// Single returns the value when it is single-valued.
func (v AnswerValue) Single() (string, bool) {
	if v.multi || len(v.values) != 1 {
		return "", false
	}
	return v.values[0], true
}

// Values returns a copy of the underlying values.
func (v AnswerValue) Values() []string {
	out := make([]string, len(v.values))
	copy(out, v.values)
	return out
}

// Equal reports structural equality, order included.
func (v AnswerValue) Equal(other AnswerValue) bool {
	if v.multi != other.multi || len(v.values) != len(other.values) {
		return false
	}
	for i := range v.values {
		if v.values[i] != other.values[i] {
			return false
		}
	}
	return true
}

func (v AnswerValue) String() string {
	if s, ok := v.Single(); ok {
		return s
	}
	return fmt.Sprint(v.values)
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return []byte("null"), nil
	}
	if s, ok := v.Single(); ok {
		return json.Marshal(s)
	}
	return json.Marshal(v.values)
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = AnswerValue{}
		return nil
	}
	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		vs := make([]string, 0, len(raw))
		for _, item := range raw {
			s, ok, err := scalarString(item)
			if err != nil {
				return err
			}
			if ok {
				vs = append(vs, s)
			}
		}
		*v = MultiAnswer(vs...)
		return nil
	}
	s, ok, err := scalarString(data)
	if err != nil {
		return err
	}
	if !ok {
		*v = AnswerValue{}
		return nil
	}
	*v = SingleAnswer(s)
	return nil
}

// scalarString renders a JSON scalar as a string. Numbers keep their
// literal text so "4" and 4 compare equal.
func scalarString(data []byte) (string, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", false, nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return "", false, err
		}
		return strconv.FormatBool(b), true, nil
	case '{', '[':
		return "", false, fmt.Errorf("answer value: nested %s not supported", string(data[:1]))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", false, err
		}
		return n.String(), true, nil
	}
}
