package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/eino-contrib/jsonschema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

type MessagePair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TurnRequest is what model-backed collaborators see of a turn.
type TurnRequest struct {
	Service       string
	Facts         Facts
	MessagePair   MessagePair
	RecentHistory []*schema.Message
	MissingFields []FieldInfo
	HasEstimate   bool
	FactsSchema   string
}

// FactsSchema renders the JSON schema of the fact set.
func FactsSchema() (string, error) {
	s := jsonschema.Reflect(&FactSheet{})
	s.Title = "Project facts"
	s.Description = "Facts collected from the customer to compute a price estimate."
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal facts schema: %w", err)
	}
	return string(b), nil
}

func formatMissingFieldsSection(fields []FieldInfo) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Missing required fields:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Name", "Description")
	for _, field := range fields {
		_ = table.Append(field.DisplayName, field.Name, field.Description)
	}
	_ = table.Render()
	return buf.String()
}

func formatHistorySection(history []*schema.Message) string {
	if len(history) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("# Recent conversation:\n")
	for _, m := range history {
		if m == nil {
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s\n", m.Role, m.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func FormatTurnRequest(req *TurnRequest) (string, error) {
	factsJSON, err := json.Marshal(req.Facts)
	if err != nil {
		return "", err
	}
	sections := []string{
		fmt.Sprintf("# Current Date: \n %s", time.Now().Format(time.RFC3339)),
	}
	if req.Service != "" {
		sections = append(sections, fmt.Sprintf("# Service:\n%s", req.Service))
	}
	sections = append(sections, fmt.Sprintf("# Known facts JSON:\n```json\n%s\n```", string(factsJSON)))
	if req.FactsSchema != "" {
		sections = append(sections, fmt.Sprintf("# Facts schema JSON:\n```json\n%s\n```", req.FactsSchema))
	}
	if s := formatHistorySection(req.RecentHistory); s != "" {
		sections = append(sections, s)
	}
	if req.MessagePair.Question != "" || req.MessagePair.Answer != "" {
		sections = append(sections, "# Latest Dialogue:")
		if req.MessagePair.Question != "" {
			sections = append(sections, fmt.Sprintf("## Assistant Question:\n%s", req.MessagePair.Question))
		}
		if req.MessagePair.Answer != "" {
			sections = append(sections, fmt.Sprintf("## User Answer:\n%s", req.MessagePair.Answer))
		}
	}
	if s := formatMissingFieldsSection(req.MissingFields); s != "" {
		sections = append(sections, s)
	}
	if req.HasEstimate {
		sections = append(sections, "# Estimate:\nAn estimate has already been given to the user.")
	}
	return strings.Join(sections, "\n\n"), nil
}
