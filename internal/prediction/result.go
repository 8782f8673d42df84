package prediction

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

var similarJobKeys = []string{
	"job_title",
	"company",
	"sector",
	"industry",
	"location",
	"country",
	"salary_range",
	"qualifications",
	"cosine",
}

// ParseResult decodes a result object. Every key the renderer reads must be
// present, otherwise a *MalformedResultError is returned.
func ParseResult(data []byte) (*PredictionResult, error) {
	if !gjson.ValidBytes(data) {
		return nil, &MalformedResultError{Reason: "result is not valid JSON"}
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &MalformedResultError{Reason: "result is not a JSON object"}
	}

	if !root.Get("predicted_title").Exists() {
		return nil, &MalformedResultError{Reason: `missing key "predicted_title"`}
	}

	topSimilar := root.Get("top_similar")
	if !topSimilar.Exists() {
		return nil, &MalformedResultError{Reason: `missing key "top_similar"`}
	}
	if !topSimilar.IsArray() {
		return nil, &MalformedResultError{Reason: `"top_similar" is not an array`}
	}

	for i, item := range topSimilar.Array() {
		for _, key := range similarJobKeys {
			if !item.Get(key).Exists() {
				return nil, &MalformedResultError{Reason: fmt.Sprintf("top_similar[%d]: missing key %q", i, key)}
			}
		}
	}

	var result PredictionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &MalformedResultError{Reason: "unexpected value type", Err: err}
	}

	return &result, nil
}
