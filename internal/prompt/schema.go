package prompt

import (
	"strings"

	"github.com/Iron-Ham/triad/internal/workflow"
)

// outputSchema renders the Expected Output Format layer for a role. The
// auditor's layer opens with the verdict-line contract that the review
// parser keys on.
func outputSchema(role workflow.AgentRole) string {
	var sb strings.Builder
	switch role {
	case workflow.RoleArchitect:
		writeSchemaHeader(&sb)
		sb.WriteString("{\n")
		sb.WriteString("  \"task_id\": \"TASK-NNN\",\n")
		sb.WriteString("  \"title\": \"string\",\n")
		sb.WriteString("  \"description\": \"string\",\n")
		sb.WriteString("  \"acceptance_criteria\": [\"string\", ...],\n")
		sb.WriteString("  \"constraints\": [\"string\", ...],\n")
		sb.WriteString("  \"affected_files\": [\"string\", ...],\n")
		sb.WriteString("  \"priority\": \"low|medium|high|critical\",\n")
		sb.WriteString("  \"depends_on\": [\"TASK-NNN\", ...]\n")
		sb.WriteString("}\n")
		sb.WriteString("```")

	case workflow.RoleImplementer:
		writeSchemaHeader(&sb)
		sb.WriteString("{\n")
		sb.WriteString("  \"task_id\": \"TASK-NNN\",\n")
		sb.WriteString("  \"status\": \"completed\",\n")
		sb.WriteString("  \"files_changed\": [\n")
		sb.WriteString("    {\"path\": \"string\", \"action\": \"created|modified|deleted\", \"summary\": \"string\"}\n")
		sb.WriteString("  ],\n")
		sb.WriteString("  \"tests\": {\"total\": N, \"passed\": N, \"failed\": N, \"coverage\": N.N},\n")
		sb.WriteString("  \"deviations\": [\"string\", ...],\n")
		sb.WriteString("  \"notes\": \"string\"\n")
		sb.WriteString("}\n")
		sb.WriteString("```")

	case workflow.RoleAuditor:
		writeVerdictContract(&sb)
		sb.WriteString("{\n")
		sb.WriteString("  \"task_id\": \"TASK-NNN\",\n")
		sb.WriteString("  \"verdict\": \"approved|rejected\",\n")
		sb.WriteString("  \"review_items\": [\n")
		sb.WriteString("    {\"file\": \"string\", \"line\": N, \"severity\": \"info|minor|major|critical\", \"message\": \"string\"}\n")
		sb.WriteString("  ],\n")
		sb.WriteString("  \"prd_compliance\": {\n")
		sb.WriteString("    \"requirements_met\": [\"REQ-NNN\", ...],\n")
		sb.WriteString("    \"requirements_missing\": [\"REQ-NNN\", ...]\n")
		sb.WriteString("  },\n")
		sb.WriteString("  \"security_findings\": [\"string\", ...],\n")
		sb.WriteString("  \"changelog_entry\": \"string\"\n")
		sb.WriteString("}\n")
		sb.WriteString("```")

	default:
		return ""
	}
	return sb.String()
}

func writeSchemaHeader(sb *strings.Builder) {
	sb.WriteString("## Expected Output Format\n")
	sb.WriteString("You MUST output a valid JSON object matching this schema:\n")
	sb.WriteString("```json\n")
}

// writeVerdictContract opens the auditor's format layer. The verdict line
// comes first so it survives even when the JSON body does not.
func writeVerdictContract(sb *strings.Builder) {
	sb.WriteString("## Expected Output Format\n")
	sb.WriteString("The FIRST line of your response MUST be a verdict line:\n\n")
	sb.WriteString("VERDICT: APPROVED\n")
	sb.WriteString("or\n")
	sb.WriteString("VERDICT: REJECTED\n\n")
	sb.WriteString("After the verdict line, output a valid JSON object matching this schema:\n")
	sb.WriteString("```json\n")
}
