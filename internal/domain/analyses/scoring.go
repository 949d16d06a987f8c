package analyses

import "sort"

// Penalties are the points removed per problem of each severity.
type Penalties struct {
	Critical int `yaml:"critical" json:"critical"`
	Warning  int `yaml:"warning" json:"warning"`
	Info     int `yaml:"info" json:"info"`
}

// Gate holds the scoring and approval policy.
type Gate struct {
	MinScore  int
	Penalties Penalties
}

// DefaultGate mirrors the stock quality gate settings.
func DefaultGate() Gate {
	return Gate{
		MinScore:  70,
		Penalties: Penalties{Critical: 30, Warning: 10, Info: 2},
	}
}

// Score starts at 100 and subtracts one penalty per problem, floored at 0.
// Severities other than critical and warning cost the info penalty.
func (g Gate) Score(problems []Problem) int {
	score := 100
	for _, p := range problems {
		switch p.Severity {
		case SeverityCritical:
			score -= g.Penalties.Critical
		case SeverityWarning:
			score -= g.Penalties.Warning
		default:
			score -= g.Penalties.Info
		}
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Approve requires zero critical problems and a score at or above MinScore.
func (g Gate) Approve(score int, c Counts) bool {
	return c.Critical == 0 && score >= g.MinScore
}

// Tally derives the counters stored on an analysis from its problems.
func Tally(problems []Problem) Counts {
	c := Counts{Total: len(problems)}
	for _, p := range problems {
		switch p.Severity {
		case SeverityCritical:
			c.Critical++
		case SeverityWarning:
			c.Warning++
		case SeverityInfo:
			c.Info++
		}
		switch p.Source {
		case SourceFlake8:
			c.Flake8++
		case SourceBandit:
			c.Bandit++
		case SourceOpenAI:
			c.OpenAI++
		case SourceManual:
			c.Manual++
		}
	}
	return c
}

// SortProblems orders by severity, then line (problems without a line first).
func SortProblems(problems []Problem) {
	sort.SliceStable(problems, func(i, j int) bool {
		ri, rj := problems[i].Severity.Rank(), problems[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return problems[i].LineNumber() < problems[j].LineNumber()
	})
}
