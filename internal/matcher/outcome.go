package matcher

// Outcome is the tri-state verdict of a comparison
type Outcome int

const (
	// Indeterminate means the comparison could not be evaluated (provider or vector failure)
	Indeterminate Outcome = iota
	NoMatch
	Match
)

func (o Outcome) String() string {
	switch o {
	case Match:
		return "match"
	case NoMatch:
		return "no_match"
	default:
		return "indeterminate"
	}
}

// MarshalText renders the outcome name in JSON output
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result carries the verdict, the score in [0,1] and, when Indeterminate, the cause
type Result struct {
	Outcome Outcome `json:"outcome"`
	Score   float64 `json:"score"`
	Err     error   `json:"-"`
}

// Matched reports whether the outcome is Match
func (r Result) Matched() bool {
	return r.Outcome == Match
}

func decide(score, threshold float64) Result {
	if score >= threshold {
		return Result{Outcome: Match, Score: score}
	}
	return Result{Outcome: NoMatch, Score: score}
}

func indeterminate(err error) Result {
	return Result{Outcome: Indeterminate, Err: err}
}
