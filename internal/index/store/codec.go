package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func EncodeFields(fields map[string]any) ([]byte, error) {
	return json.Marshal(JSONFields(fields))
}

// JSONFields returns fields with every nested map keyed by strings. Header
// values arrive from yaml.v3, which may produce map[any]any.
func JSONFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = jsonValue(v)
	}
	return out
}

func jsonValue(v any) any {
	switch tv := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(tv))
		for k, val := range tv {
			out[fmt.Sprint(k)] = jsonValue(val)
		}
		return out
	case map[string]any:
		return JSONFields(tv)
	case []any:
		out := make([]any, len(tv))
		for i, val := range tv {
			out[i] = jsonValue(val)
		}
		return out
	default:
		return v
	}
}

func DecodeFields(data []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PrepareMove fills in the id and timestamp of a new journal entry.
func PrepareMove(m Move) Move {
	if strings.TrimSpace(m.ID) == "" {
		m.ID = uuid.NewString()
	}
	if m.At == 0 {
		m.At = time.Now().Unix()
	}
	if strings.TrimSpace(m.Reason) == "" {
		m.Reason = ReasonClassify
	}
	return m
}
