package nlp

import (
	"context"
	"regexp"
	"strings"
)

var (
	greetingRe = regexp.MustCompile(`(?i)\b(hi|hello|hey|hola|namaste|good\s+(morning|afternoon|evening)|start|begin)\b`)
	ageRe      = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(years?\s*old|yrs?|yo|months?)?\b`)
)

var states = []string{
	"odisha", "andhra pradesh", "bihar", "chhattisgarh", "jharkhand",
	"kerala", "maharashtra", "tamil nadu", "telangana", "west bengal",
}

// KeywordClassifier is the built-in rules engine: greeting regex first,
// then topic keywords, with simple age/state slot extraction.
type KeywordClassifier struct{}

var _ Classifier = (*KeywordClassifier)(nil)

func NewKeywordClassifier() *KeywordClassifier { return &KeywordClassifier{} }

func (k *KeywordClassifier) Classify(_ context.Context, text string, contextSlots map[string]string) (Result, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	slots := extractSlots(lower)

	switch {
	case lower == "":
		return Result{Intent: IntentUnknown, Confidence: 1, Slots: slots}, nil
	case greetingRe.MatchString(lower):
		return Result{Intent: IntentGreeting, Confidence: 0.9, Slots: slots}, nil
	case containsAny(lower, "help", "support", "assist", "what can you"):
		return Result{Intent: IntentHelp, Confidence: 0.9, Slots: slots}, nil
	case containsAny(lower, "vaccin", "immuni", "dose", "booster"):
		return Result{Intent: IntentVaccineInfo, Confidence: 0.8, Slots: slots}, nil
	case containsAny(lower, "outbreak", "epidemic", "dengue", "malaria", "cholera", "flu cases"):
		return Result{Intent: IntentOutbreakInfo, Confidence: 0.8, Slots: slots}, nil
	default:
		// A bare slot answer ("5 years", "odisha") continues the last
		// topic instead of falling through to unknown.
		if len(slots) > 0 && contextSlots != nil {
			if last := contextSlots["_last_intent"]; last == IntentVaccineInfo || last == IntentOutbreakInfo {
				return Result{Intent: last, Confidence: 0.6, Slots: slots}, nil
			}
		}
		return Result{Intent: IntentUnknown, Confidence: 0.5, Slots: slots}, nil
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func extractSlots(lower string) map[string]string {
	slots := map[string]string{}
	for _, st := range states {
		if strings.Contains(lower, st) {
			slots["state"] = st
			break
		}
	}
	if m := ageRe.FindStringSubmatch(lower); m != nil {
		slots["age"] = m[1]
	}
	return slots
}
