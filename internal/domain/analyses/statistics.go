package analyses

import "math"

// LanguageStats is the per-language breakdown of the statistics.
type LanguageStats struct {
	Language     Language `json:"language"`
	Count        int      `json:"count"`
	AverageScore float64  `json:"average_score"`
}

// FrequentProblem is one (code, message) pair and how often it was seen.
type FrequentProblem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// Statistics aggregates every stored analysis.
type Statistics struct {
	TotalAnalyses    int                        `json:"total_analyses"`
	AverageScore     float64                    `json:"average_score"`
	ApprovalRate     float64                    `json:"approval_rate"`
	TotalProblems    int                        `json:"total_problems"`
	ByLanguage       map[Language]LanguageStats `json:"by_language"`
	FrequentProblems []FrequentProblem          `json:"frequent_problems"`
}

// FrequentProblemsLimit caps Statistics.FrequentProblems.
const FrequentProblemsLimit = 10

// EmptyStatistics is returned when nothing has been analysed yet.
func EmptyStatistics() Statistics {
	return Statistics{
		ByLanguage:       map[Language]LanguageStats{},
		FrequentProblems: []FrequentProblem{},
	}
}

// ApprovalRateOf returns approved/total as a percentage rounded to one decimal.
func ApprovalRateOf(approved, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round1(float64(approved) / float64(total) * 100)
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
