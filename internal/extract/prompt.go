package extract

import (
	"strings"
)

const extractionPrompt = `You are analysing a Request for Proposal (RFP). Extract its structure and return it as a single JSON object with exactly these keys:

- "metadata": object with
  - "title": document title (string)
  - "issuer": issuing organisation (string or null)
  - "issue_date": date the RFP was issued (string or null)
  - "due_date": proposal submission deadline (string or null)
  - "contact_info": object with "name", "email", "phone" (each string or null)
  - "submission_requirements": list of strings describing how and what to submit
- "sections": list of objects with
  - "id": unique section id (string)
  - "title": section heading (string)
  - "parent_id": id of the enclosing section, or null for top-level sections
  - "content": the section text (string)
  - "level": nesting depth starting at 1 (integer)
- "questions": list of objects {"id", "text", "section_id"} for questions the bidder must answer
- "requirements": list of objects {"id", "text", "section_id"} for mandatory requirements

Rules:
- Use null for unknown values and [] for empty lists
- Keep section order as it appears in the document
- Do not invent content that is not in the document

Respond with ONLY the JSON object inside a ` + "```json" + ` code block.`

// buildPrompt combines the instructions with the document text.
func buildPrompt(documentText string) string {
	var sb strings.Builder
	sb.Grow(len(extractionPrompt) + len(documentText) + 32)
	sb.WriteString(extractionPrompt)
	sb.WriteString("\n\n---\nDocument:\n")
	sb.WriteString(documentText)
	return sb.String()
}

// truncateRunes cuts s to at most n runes. It reports whether s was cut.
func truncateRunes(s string, n int) (string, bool) {
	if n <= 0 || len(s) <= n {
		return s, false
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}
