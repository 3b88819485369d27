package coach

import (
	"fmt"
	"strings"

	"finance-coach-backend/internal/finance"
	"finance-coach-backend/internal/models"
)

const persona = "You are a friendly, practical personal finance coach. " +
	"Answer using the user's own numbers when they are relevant, keep answers short, " +
	"and never recommend specific securities. If the data is missing, say so instead of guessing."

const advicePrompt = "Based on my finances, give me three concrete, prioritised suggestions " +
	"for the next month. Use a numbered list and one or two sentences per item."

// SystemPrompt renders the persona and the user's financial snapshot.
func SystemPrompt(s finance.Snapshot, recent []models.Transaction) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nFinancial snapshot:\n")
	b.WriteString(s.Describe())

	if len(recent) > 0 {
		b.WriteString("\n\nRecent transactions:\n")
		n := min(len(recent), promptTransactionLimit)
		for _, t := range recent[:n] {
			fmt.Fprintf(&b, "- %s %s %s %s", t.Date.Format("2006-01-02"), t.Type, finance.FormatAmount(t.Amount.Abs(), s.Currency), t.Description)
			if t.Category != "" {
				fmt.Fprintf(&b, " (%s)", t.Category)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
