// Package nlp classifies message text into an intent plus extracted slots.
// The production deployment points at an external engine over HTTP; the
// built-in keyword classifier serves dev runs and as a grounding for tests.
package nlp

import "context"

// Well-known intents. The dispatcher routes on these names; anything it
// does not recognize gets the generic fallback.
const (
	IntentGreeting     = "greeting"
	IntentHelp         = "help"
	IntentVaccineInfo  = "vaccine_info"
	IntentOutbreakInfo = "outbreak_info"
	IntentUnknown      = "unknown"
)

type Result struct {
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Slots      map[string]string `json:"slots"`
}

// Classifier resolves (text, prior context slots) into an intent. Calls may
// block on the network and must respect ctx; the router treats any error,
// including timeouts, as "use the fallback reply".
type Classifier interface {
	Classify(ctx context.Context, text string, contextSlots map[string]string) (Result, error)
}
