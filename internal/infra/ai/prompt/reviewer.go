package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/quality-gate/internal/domain/ai"
)

// MaxCodeChars is how many characters of the snippet are sent to the model.
const MaxCodeChars = 3000

// GetSystemPrompt provides strict directions for JSON output.
func GetSystemPrompt() string {
	return `You are a Business Intelligence and data engineering code quality expert. You must produce one valid JSON object only (no markdown, no commentary, no code fences).`
}

// GetUserPrompt builds the review request around the submitted snippet.
func GetUserPrompt(language, description, code string) string {
	if strings.TrimSpace(description) == "" {
		description = "Not provided"
	}
	if r := []rune(code); len(r) > MaxCodeChars {
		code = string(r[:MaxCodeChars])
	}
	return fmt.Sprintf(`Review the following %[1]s code and identify potential problems.

CODE DESCRIPTION:
%[2]s

CODE TO REVIEW:
`+"```"+`%[3]s
%[4]s
`+"```"+`

Answer ONLY with valid JSON using exactly this schema:
{
  "problems": [
    {
      "severity": "critical" | "warning" | "info",
      "category": "performance" | "security" | "data_quality" | "readability",
      "message": "clear description of the problem",
      "suggestion": "how to fix it",
      "line": null
    }
  ]
}

Focus on:
1. Business logic (does the code do what it should?)
2. BI and data engineering good practices
3. Dashboard performance
4. Maintainability

Return at most %[5]d problems, the most important ones.
If the code is good, return an empty list.`, language, description, strings.ToLower(language), code, ai.MaxProblems)
}
