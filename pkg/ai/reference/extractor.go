package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"crm-assistant-be/pkg/llm"
	"crm-assistant-be/pkg/store"
)

// extractEntities performs one structured-extraction call. Any failure
// (transport, malformed JSON, unknown types) degrades to an empty or
// partial list; the resolver never propagates extraction errors.
func (r *Resolver) extractEntities(ctx context.Context, userID, message string, snapshot []store.Record) []Entity {
	prompt := buildExtractionPrompt(message, snapshot)

	completion, err := r.llmProvider.Generate(ctx, prompt,
		llm.WithTemperature(0.0),
		llm.WithMaxTokens(400),
		llm.WithUser(userID),
		llm.WithOperation("entity_extraction"),
	)
	if err != nil {
		r.logger.Printf("[REFERENCE] Entity extraction failed: %v", err)
		return []Entity{}
	}

	entities, err := parseEntityResponse(completion.Text)
	if err != nil {
		r.logger.Printf("[REFERENCE] Entity parsing failed: %v", err)
		return []Entity{}
	}

	r.logger.Printf("[REFERENCE] Extracted %d entities (tokens in=%d out=%d)",
		len(entities), completion.Usage.InputTokens, completion.Usage.OutputTokens)
	return entities
}

func buildExtractionPrompt(message string, snapshot []store.Record) string {
	var prompt strings.Builder

	prompt.WriteString("You extract typed entities from CRM assistant messages.\n")
	prompt.WriteString("Entity types: contact, account, deal, activity, date, amount, email, phone, company.\n\n")

	// Ground matching with names only; full records never enter the prompt
	if len(snapshot) > 0 {
		prompt.WriteString("Known record names:\n")
		limit := len(snapshot)
		if limit > 50 {
			limit = 50
		}
		for _, record := range snapshot[:limit] {
			prompt.WriteString(fmt.Sprintf("- %s (%s)\n", record.Name, record.Kind))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("Message:\n")
	prompt.WriteString(message)
	prompt.WriteString("\n\nRespond with ONLY a JSON array:\n")
	prompt.WriteString(`[{"type": "contact", "value": "John Smith", "confidence": 0.95}]`)
	prompt.WriteString("\nUse an empty array if no entities are present.")

	return prompt.String()
}

// parseEntityResponse extracts the first JSON array from the response
// and keeps only well-formed entities with known types
func parseEntityResponse(response string) ([]Entity, error) {
	jsonContent := extractJSONArray(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var raw []Entity
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	entities := make([]Entity, 0, len(raw))
	for _, e := range raw {
		if e.Value == "" || !knownEntityType(e.Type) {
			continue
		}
		if e.Confidence < 0 {
			e.Confidence = 0
		}
		if e.Confidence > 1 {
			e.Confidence = 1
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func knownEntityType(t EntityType) bool {
	switch t {
	case EntityContact, EntityAccount, EntityDeal, EntityActivity,
		EntityDate, EntityAmount, EntityEmail, EntityPhone, EntityCompany:
		return true
	}
	return false
}

func extractJSONArray(response string) string {
	startIdx := strings.Index(response, "[")
	endIdx := strings.LastIndex(response, "]")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}
	return response[startIdx : endIdx+1]
}
