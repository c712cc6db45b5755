package backend

import (
	"fmt"
	"strings"

	"github.com/ahrav/go-questionnaire/internal/domain"
)

// answeringRules are the standing instructions every hosted backend sends.
const answeringRules = `You are a questionnaire answering system that provides factual answers grounded in web search.

Requirements:
- Write in the third person. Never use "you", "your" or "yours".
- Never ask follow-up questions or offer more information.
- Answer only the question asked, as if writing reference documentation.
- Write plain text without markdown formatting.
- Include the full source URLs in the text where information is used. Do not use citation markers such as [1], (1) or 【source】.
- Use complete sentences and end the answer with a period.
- Do not end with closing phrases such as "Learn more:" or "References:".`

// SystemPrompt returns the standing instructions with the length bound.
func SystemPrompt(charLimit int) string {
	return fmt.Sprintf("%s\n- Keep the whole answer under %d characters.", answeringRules, charLimit)
}

// UserPrompt renders the question, its context and any corrective feedback
// from earlier attempts of the same run.
func UserPrompt(q domain.Query) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s", strings.TrimSpace(q.Question))
	if c := strings.TrimSpace(q.Context); c != "" {
		fmt.Fprintf(&b, "\nContext: %s", c)
	}
	if fb := q.History.Feedback(); fb != "" {
		b.WriteString("\n\n")
		b.WriteString(fb)
	}
	return b.String()
}

// CheckPrompt asks a model to validate a candidate answer.
func CheckPrompt(question, answer string) string {
	return fmt.Sprintf(`Validate this answer to the given question.

Question: %s

Answer: %s

Check that the answer:
1. Is factually correct and complete.
2. Uses only the third person.
3. Contains no follow-up questions or offers.

Respond with either VALID or INVALID: [specific reasons].`, question, answer)
}
