package analyzer

// Verdict is one stage's judgement about a website's age
type Verdict string

const (
	VerdictDefinitelyOld  Verdict = "definitely_old"
	VerdictProbablyOld    Verdict = "probably_old"
	VerdictBuilder        Verdict = "builder"
	VerdictProbablyModern Verdict = "probably_modern"
	VerdictUnknown        Verdict = "unknown"
)

// StageResult is the output of one analysis stage. Signals are bare names;
// the classifier prefixes them with the stage that produced them.
type StageResult struct {
	Verdict    Verdict
	Confidence float64
	Signals    []string
}

// IsOld reports whether the verdict points at an outdated site
func (r StageResult) IsOld() bool {
	return r.Verdict == VerdictDefinitelyOld || r.Verdict == VerdictProbablyOld
}

// IsModern reports whether the verdict points at a current site
func (r StageResult) IsModern() bool {
	return r.Verdict == VerdictProbablyModern
}
