package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Assessment is the model's verdict on one candidate item.
type Assessment struct {
	Confidence       string `json:"confidence"`
	RelationshipType string `json:"relationship_type"`
	Reasoning        string `json:"reasoning"`
	ID               int    `json:"id"`
}

// parseAssessments decodes the JSON array the prompt asks for.
// Models occasionally wrap the array in a markdown fence or an object; both are tolerated.
func parseAssessments(content string) ([]Assessment, error) {
	content = stripCodeFence(content)
	if content == "" {
		return nil, fmt.Errorf("empty response")
	}

	var assessments []Assessment
	if strings.HasPrefix(content, "{") {
		var wrapped struct {
			Items []Assessment `json:"items"`
		}
		if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse JSON response: %w", err)
		}
		return wrapped.Items, nil
	}

	if err := json.Unmarshal([]byte(content), &assessments); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return assessments, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		// drop the language tag line
		content = content[nl+1:]
	} else {
		content = ""
	}
	content = strings.TrimSpace(content)
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
