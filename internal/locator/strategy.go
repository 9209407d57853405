package locator

// Phase identifies a resolution phase
type Phase string

const (
	PhaseStructural Phase = "structural"
	PhaseHeuristic  Phase = "heuristic"
	PhaseVision     Phase = "vision"
)

// Strategy is one way of finding an element. The Kind decides which of
// the remaining fields are meaningful.
type Strategy struct {
	Kind Phase

	// Selector is the CSS selector tried in the structural phase
	Selector string

	// Scope limits the heuristic scan to elements matching this selector
	Scope string

	// Keywords are matched against element text and attributes in the
	// heuristic phase
	Keywords []string

	// MaxScan caps how many elements the heuristic phase examines
	MaxScan int

	// NoiseLimit rejects a heuristic hit when more than this many
	// elements matched the keywords. An ambiguous page should escalate
	// to vision rather than guess among lookalikes.
	NoiseLimit int
}

// Structural returns a strategy trying an exact CSS selector
func Structural(selector string) Strategy {
	return Strategy{Kind: PhaseStructural, Selector: selector}
}

// Heuristic returns a strategy scanning scoped elements for keyword matches
func Heuristic(scope string, keywords ...string) Strategy {
	return Strategy{Kind: PhaseHeuristic, Scope: scope, Keywords: keywords}
}

// Vision returns a strategy that locates the element in a screenshot
func Vision() Strategy {
	return Strategy{Kind: PhaseVision}
}

// Intent describes the element to find and how to try finding it.
// Strategies run in order; the first hit wins.
type Intent struct {
	// Description is human-readable and doubles as the vision prompt
	Description string

	Strategies []Strategy
}
