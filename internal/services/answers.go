package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AnswerInput is one submitted answer after its value was coerced to a string.
// HasValue is false when the value was absent or null.
type AnswerInput struct {
	QuestionID string
	Value      string
	HasValue   bool
}

// decodeAnswers is the single place where inbound answer values are coerced.
// answers must be a JSON array of {questionId: string, value: string|number|boolean};
// anything else is a malformed-answers failure.
func decodeAnswers(raw json.RawMessage) ([]AnswerInput, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, NewValidationError(ReasonMalformedAnswers, "answers must be provided as an array")
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, NewValidationError(ReasonMalformedAnswers, "answers must be provided as an array")
	}
	out := make([]AnswerInput, 0, len(elems))
	for i, el := range elems {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(el, &fields); err != nil || fields == nil {
			return nil, NewValidationError(ReasonMalformedAnswers, fmt.Sprintf("answer %d must be an object", i))
		}
		var ans AnswerInput
		if qid, ok := fields["questionId"]; ok && !isJSONNull(qid) {
			if err := json.Unmarshal(qid, &ans.QuestionID); err != nil {
				return nil, NewValidationError(ReasonMalformedAnswers, fmt.Sprintf("answer %d: questionId must be a string", i))
			}
		}
		if v, ok := fields["value"]; ok && !isJSONNull(v) {
			s, err := coerceValue(v)
			if err != nil {
				return nil, NewValidationError(ReasonMalformedAnswers, fmt.Sprintf("answer %d: %v", i, err))
			}
			ans.Value = s
			ans.HasValue = true
		}
		out = append(out, ans)
	}
	return out, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func coerceValue(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case '{', '[':
		return "", fmt.Errorf("value must be a string, number or boolean")
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		f, err := n.Float64()
		if err != nil {
			return n.String(), nil
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
}
