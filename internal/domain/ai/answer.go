package ai

// MaxProblems is the number of findings kept from one answer.
const MaxProblems = 5

// SimulatedCode tags findings produced without calling a model.
const SimulatedCode = "AI-SIM"

// Answer is the JSON document a reviewer answers with.
type Answer struct {
	Problems []AnswerProblem `json:"problems"`
}

// AnswerProblem is one finding as written by the reviewer.
type AnswerProblem struct {
	Severity   string `json:"severity"`
	Category   string `json:"category"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
	Line       *int   `json:"line"`
	// Code is only set by the offline simulator.
	Code string `json:"code,omitempty"`
}
