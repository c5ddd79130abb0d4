package dispatch

import (
	"context"
	"strconv"

	"github.com/arogyabot/health-gateway/internal/nlp"
)

// VaccinationHandler answers vaccination-schedule questions. It needs the
// child's age and the state to pick the right immunization calendar.
type VaccinationHandler struct{}

var _ Handler = (*VaccinationHandler)(nil)

func NewVaccinationHandler() *VaccinationHandler { return &VaccinationHandler{} }

func (h *VaccinationHandler) Intent() string { return nlp.IntentVaccineInfo }

func (h *VaccinationHandler) Handle(_ context.Context, slots map[string]string) (ReplyPayload, error) {
	age, ok := slots["age"]
	if !ok || age == "" {
		return ReplyPayload{}, &MissingSlotError{
			Slot:   "age",
			Prompt: "To look up the vaccination schedule, please tell me the child's age (for example: 5 years).",
		}
	}
	state, ok := slots["state"]
	if !ok || state == "" {
		return ReplyPayload{}, &MissingSlotError{
			Slot:   "state",
			Prompt: "Which state are you in? Vaccination schedules vary by state.",
		}
	}

	years, err := strconv.Atoi(age)
	if err != nil || years < 0 || years > 120 {
		return ReplyPayload{}, &MissingSlotError{
			Slot:   "age",
			Prompt: "I didn't catch the age. Please send it as a number of years (for example: 5).",
		}
	}

	return ReplyPayload{Text: scheduleFor(years, state)}, nil
}

func scheduleFor(years int, state string) string {
	var due string
	switch {
	case years < 1:
		due = "BCG, OPV (birth/6/10/14 weeks), Pentavalent (6/10/14 weeks), Measles-Rubella at 9 months"
	case years < 2:
		due = "MR 2nd dose, DPT booster and OPV booster at 16-24 months"
	case years < 6:
		due = "DPT 2nd booster at 5-6 years"
	case years < 17:
		due = "Td at 10 and 16 years"
	default:
		due = "Td booster every 10 years; annual flu shot recommended for at-risk groups"
	}
	return "Vaccination schedule for age " + strconv.Itoa(years) + " (" + state + "): " + due +
		". Visit your nearest health centre for exact dates."
}
