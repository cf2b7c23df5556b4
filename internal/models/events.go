// internal/models/events.go
package models

import (
	"encoding/json"
	"time"
)

// OfferSubmitted is published after a project and its offer have been stored.
// Field names double as Zeebe process variables.
type OfferSubmitted struct {
	ProjectID       string      `json:"projectId"`
	OfferID         string      `json:"offerId"`
	OwnerID         string      `json:"ownerId"`
	CustomerEmail   string      `json:"customerEmail"`
	CustomerPhone   string      `json:"customerPhone"`
	CustomerMessage string      `json:"customerMessage,omitempty"`
	Domain          string      `json:"domain"`
	Industry        string      `json:"industry"`
	Cities          []string    `json:"cities"`
	Keywords        []string    `json:"keywords"`
	Package         PackageTier `json:"package"`
	Estimate        Estimate    `json:"estimate"`
	SubmittedAt     time.Time   `json:"submittedAt"`
}

// ToVariables flattens the event into a process variable map.
func (e OfferSubmitted) ToVariables() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var vars map[string]interface{}
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, err
	}
	return vars, nil
}
