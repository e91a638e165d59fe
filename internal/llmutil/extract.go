// Package llmutil holds the JSON-extraction helper shared by
// internal/oracle and internal/planner: both need to pull a single JSON
// object out of an untrusted LLM completion that may be wrapped in a
// markdown code fence, prefixed with commentary, or otherwise not raw JSON.
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var fastJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonBlockRegex matches a ```json ... ``` or ``` ... ``` fenced block.
var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON finds the most likely JSON object in response: a fenced code
// block first, then the span between the first '{' and the last '}', then
// the whole trimmed string as a last resort.
func ExtractJSON(response string) (string, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return "", fmt.Errorf("empty LLM response")
	}

	if matches := jsonBlockRegex.FindStringSubmatch(response); len(matches) > 1 {
		if candidate := strings.TrimSpace(matches[1]); candidate != "" {
			return candidate, nil
		}
	}

	if first := strings.Index(response, "{"); first != -1 {
		if last := strings.LastIndex(response, "}"); last > first {
			return response[first : last+1], nil
		}
	}

	return response, nil
}

// UnmarshalJSON extracts and decodes response into v using the faster
// json-iterator codec, which every untrusted-LLM-output parse path uses in
// place of encoding/json.
func UnmarshalJSON(response string, v interface{}) error {
	candidate, err := ExtractJSON(response)
	if err != nil {
		return err
	}
	if err := fastJSON.Unmarshal([]byte(candidate), v); err != nil {
		return fmt.Errorf("unmarshal extracted JSON: %w", err)
	}
	return nil
}
