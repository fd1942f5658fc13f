package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/workitem-scout/internal/model"
)

const systemPrompt = `You assess whether Azure DevOps work items are related to a source work item.
You MUST respond with ONLY a JSON array. Do not include explanatory text or markdown.
Each element must be {"id": <int>, "confidence": "high"|"medium"|"low", "relationship_type": "related"|"dependency"|"blocking"|"duplicate"|"hierarchy", "reasoning": "<one sentence>"}.
Include one element per candidate and use only the candidate ids you were given.`

// maxDescriptionRunes bounds how much of each description is sent.
const maxDescriptionRunes = 400

// buildPrompt renders the source item and candidates for the model.
func buildPrompt(source model.WorkItemRef, candidates []model.RelationshipResult) string {
	var b strings.Builder

	b.WriteString("SOURCE WORK ITEM:\n")
	writeItem(&b, source)

	b.WriteString("\nCANDIDATES:\n")
	for _, c := range candidates {
		writeItem(&b, c.Item)
		fmt.Fprintf(&b, "  heuristic: %s / %s\n", c.Confidence, c.RelationshipType)
	}

	return b.String()
}

func writeItem(b *strings.Builder, item model.WorkItemRef) {
	fmt.Fprintf(b, "- id: %d\n  type: %s\n  title: %s\n  state: %s\n  area: %s\n",
		item.ID, item.Type, item.Title, item.State, item.AreaPath)
	if tags := item.TagList(); len(tags) > 0 {
		fmt.Fprintf(b, "  tags: %s\n", strings.Join(tags, ", "))
	}
	if item.Description != "" {
		fmt.Fprintf(b, "  description: %s\n", truncate(item.Description, maxDescriptionRunes))
	}
}

func truncate(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
