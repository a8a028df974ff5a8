package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ChoiceKind tags the shape a vote's choice arrived in.
type ChoiceKind uint8

const (
	ChoiceEmpty     ChoiceKind = iota // null or []
	ChoiceSingle                      // 2, 2.0 or "2"
	ChoiceRanked                      // [2, 1] or "[2,1]"
	ChoiceMalformed                   // anything else, e.g. weighted {"1": 3}
)

func (k ChoiceKind) String() string {
	switch k {
	case ChoiceEmpty:
		return "empty"
	case ChoiceSingle:
		return "single"
	case ChoiceRanked:
		return "ranked"
	default:
		return "malformed"
	}
}

// Choice is a vote's choice decoded once at the JSON boundary. The hub
// returns an int for single-choice votes, a list for ranked/approval votes,
// and occasionally a string or object; all of those collapse into one of
// the four kinds here.
type Choice struct {
	kind   ChoiceKind
	ranked []int
	raw    json.RawMessage
}

// EmptyChoice returns a choice carrying no preference.
func EmptyChoice() Choice { return Choice{kind: ChoiceEmpty} }

// SingleChoice returns a single 1-based choice index.
func SingleChoice(index int) Choice {
	return Choice{kind: ChoiceSingle, ranked: []int{index}, raw: json.RawMessage(strconv.Itoa(index))}
}

// RankedChoice returns an ordered preference list of 1-based indexes.
func RankedChoice(indexes ...int) Choice {
	if len(indexes) == 0 {
		return Choice{kind: ChoiceEmpty, raw: json.RawMessage("[]")}
	}
	raw, _ := json.Marshal(indexes)
	return Choice{kind: ChoiceRanked, ranked: append([]int(nil), indexes...), raw: raw}
}

// Kind reports which variant the choice holds.
func (c Choice) Kind() ChoiceKind { return c.kind }

// First returns the first-preference index. Ranked votes are treated as
// single-choice by their first preference.
func (c Choice) First() (int, bool) {
	if (c.kind == ChoiceSingle || c.kind == ChoiceRanked) && len(c.ranked) > 0 {
		return c.ranked[0], true
	}
	return 0, false
}

// Ranked returns a copy of the preference list (one element for single choices).
func (c Choice) Ranked() []int {
	return append([]int(nil), c.ranked...)
}

// Text returns the choice as it arrived, for export. JSON strings are
// unquoted; null becomes "".
func (c Choice) Text() string {
	if len(c.raw) == 0 || string(c.raw) == "null" {
		return ""
	}
	if c.raw[0] == '"' {
		var s string
		if err := json.Unmarshal(c.raw, &s); err == nil {
			return s
		}
	}
	return string(c.raw)
}

// MarshalJSON re-emits the original JSON value.
func (c Choice) MarshalJSON() ([]byte, error) {
	if len(c.raw) == 0 {
		return []byte("null"), nil
	}
	return c.raw, nil
}

// UnmarshalJSON classifies the raw JSON value. It never fails: anything
// unrecognised becomes ChoiceMalformed.
func (c *Choice) UnmarshalJSON(data []byte) error {
	*c = ParseChoice(data)
	return nil
}

// ParseChoice classifies a raw JSON choice value.
func ParseChoice(data []byte) Choice {
	trimmed := bytes.TrimSpace(data)
	raw := json.RawMessage(append([]byte(nil), trimmed...))
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return Choice{kind: ChoiceEmpty}
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Choice{kind: ChoiceMalformed, raw: raw}
		}
		if len(items) == 0 {
			return Choice{kind: ChoiceEmpty, raw: raw}
		}
		// Only the head decides the kind; later entries are kept when numeric.
		first, ok := elementIndex(items[0])
		if !ok {
			return Choice{kind: ChoiceMalformed, raw: raw}
		}
		ranked := []int{first}
		for _, item := range items[1:] {
			if idx, ok := elementIndex(item); ok {
				ranked = append(ranked, idx)
			}
		}
		return Choice{kind: ChoiceRanked, ranked: ranked, raw: raw}
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Choice{kind: ChoiceMalformed, raw: raw}
		}
		return parseChoiceString(s, raw)
	case '{', 't', 'f':
		return Choice{kind: ChoiceMalformed, raw: raw}
	default:
		idx, ok := numberToIndex(string(trimmed))
		if !ok {
			return Choice{kind: ChoiceMalformed, raw: raw}
		}
		return Choice{kind: ChoiceSingle, ranked: []int{idx}, raw: raw}
	}
}

// parseChoiceString handles choices that were stringified upstream.
// A bracketed list collapses to its first comma-separated token.
func parseChoiceString(s string, raw json.RawMessage) Choice {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "[") {
		inner := strings.Trim(s, "][")
		if strings.TrimSpace(inner) == "" {
			return Choice{kind: ChoiceEmpty, raw: raw}
		}
		token := strings.TrimSpace(strings.Split(inner, ",")[0])
		idx, err := strconv.Atoi(token)
		if err != nil {
			return Choice{kind: ChoiceMalformed, raw: raw}
		}
		return Choice{kind: ChoiceRanked, ranked: []int{idx}, raw: raw}
	}
	idx, ok := numberToIndex(s)
	if !ok {
		return Choice{kind: ChoiceMalformed, raw: raw}
	}
	return Choice{kind: ChoiceSingle, ranked: []int{idx}, raw: raw}
}

// elementIndex classifies one list entry the same way a top-level scalar
// or string choice is classified.
func elementIndex(item json.RawMessage) (int, bool) {
	item = bytes.TrimSpace(item)
	if len(item) == 0 {
		return 0, false
	}
	switch item[0] {
	case '"':
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return 0, false
		}
		return parseChoiceString(s, nil).First()
	case '[':
		return parseChoiceString(string(item), nil).First()
	case '{', 't', 'f', 'n':
		return 0, false
	default:
		return numberToIndex(string(item))
	}
}

func numberToIndex(s string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}
