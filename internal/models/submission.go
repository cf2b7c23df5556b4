// internal/models/submission.go
package models

// SubmissionResult identifies the records created by one submission.
type SubmissionResult struct {
	ProjectID          string `json:"project_id"`
	OfferID            string `json:"offer_id"`
	NotificationQueued bool   `json:"notification_queued"`
}
