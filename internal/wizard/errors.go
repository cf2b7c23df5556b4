package wizard

import (
	"errors"
	"fmt"

	"seo-offers/internal/models"
)

// User-facing messages for step guards.
const (
	MsgSelectKeyword   = "Välj minst ett sökord"
	MsgSelectPackage   = "Välj ett paket"
	MsgInvalidPackage  = "Ogiltigt paket"
	MsgUnknownKeyword  = "Okänt sökord"
	MsgSubmissionFails = "Kunde inte skicka offertförfrågan"
)

// ErrSubmissionInFlight is returned while a submission for the session is outstanding.
var ErrSubmissionInFlight = errors.New("submission already in flight")

// ValidationError is shown inline at the step that produced it.
type ValidationError struct {
	Step    models.WizardStep
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StepError rejects an operation that the current step does not allow.
type StepError struct {
	Op   string
	Step models.WizardStep
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s is not allowed at step %d (%s)", e.Op, e.Step, StepName(e.Step))
}

func invalid(step models.WizardStep, field, msg string) error {
	return &ValidationError{Step: step, Field: field, Message: msg}
}
