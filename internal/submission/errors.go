package submission

import "fmt"

// PartialWriteError reports a project that was stored without its offer.
// The project is not rolled back; ProjectID identifies it for follow-up.
type PartialWriteError struct {
	ProjectID string
	Cause     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("project %s stored but offer insert failed: %v", e.ProjectID, e.Cause)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Cause
}

// OrphanedProjectID returns the id of the project left without an offer.
func (e *PartialWriteError) OrphanedProjectID() string {
	return e.ProjectID
}
