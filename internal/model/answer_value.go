package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AnswerValue is either a single scalar answer or a list of answers.
// JSON strings, numbers and booleans decode as scalars; arrays decode as lists.
type AnswerValue struct {
	Scalar string
	List   []string
	IsList bool
}

func ScalarAnswer(s string) AnswerValue {
	return AnswerValue{Scalar: s}
}

func ListAnswer(items ...string) AnswerValue {
	return AnswerValue{List: items, IsList: true}
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	if a.IsList {
		if a.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.List)
	}
	return json.Marshal(a.Scalar)
}

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = AnswerValue{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode answer list: %w", err)
		}
		a.IsList = true
		a.List = make([]string, 0, len(raw))
		for _, item := range raw {
			s, err := scalarString(item)
			if err != nil {
				return err
			}
			a.List = append(a.List, s)
		}
		return nil
	}
	s, err := scalarString(data)
	if err != nil {
		return err
	}
	a.Scalar = s
	return nil
}

func scalarString(data json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", fmt.Errorf("decode answer: %w", err)
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("unsupported answer value %s", string(data))
	}
}
