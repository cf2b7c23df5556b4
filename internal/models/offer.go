// internal/models/offer.go
package models

import (
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
)

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

func (s OfferStatus) IsValid() bool {
	switch s {
	case OfferPending, OfferAccepted, OfferRejected:
		return true
	}
	return false
}

// Estimate is the effort and price derived from a keyword selection.
type Estimate struct {
	PagesNeeded     int `json:"pages_needed"`
	BacklinksNeeded int `json:"backlinks_needed"`
	MonthsNeeded    int `json:"months_needed"`
	MonthlyPrice    int `json:"monthly_price"`
}

// Validate rejects negative figures.
func (e Estimate) Validate() error {
	return ozzo.ValidateStruct(&e,
		ozzo.Field(&e.PagesNeeded, ozzo.Min(0)),
		ozzo.Field(&e.BacklinksNeeded, ozzo.Min(0)),
		ozzo.Field(&e.MonthsNeeded, ozzo.Min(0)),
		ozzo.Field(&e.MonthlyPrice, ozzo.Min(0)),
	)
}

// Offer is the persisted estimate for a project, reviewed by staff.
type Offer struct {
	ID              string      `json:"id"`
	ProjectID       string      `json:"project_id"`
	CustomerEmail   string      `json:"customer_email"`
	CustomerPhone   string      `json:"customer_phone"`
	CustomerMessage string      `json:"customer_message,omitempty"`
	EstimatedPages  int         `json:"estimated_pages"`
	EstimatedLinks  int         `json:"estimated_links"`
	EstimatedMonths int         `json:"estimated_months"`
	MonthlyPrice    int         `json:"monthly_price"`
	Package         PackageTier `json:"package"`
	Status          OfferStatus `json:"status"`
	AdminNotes      string      `json:"admin_notes,omitempty"`
	SentAt          *time.Time  `json:"sent_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Estimate returns the figures stored on the offer.
func (o Offer) Estimate() Estimate {
	return Estimate{
		PagesNeeded:     o.EstimatedPages,
		BacklinksNeeded: o.EstimatedLinks,
		MonthsNeeded:    o.EstimatedMonths,
		MonthlyPrice:    o.MonthlyPrice,
	}
}

// OfferWithProject is an offer enriched with its project for the admin list.
type OfferWithProject struct {
	Offer
	Project *Project `json:"project,omitempty"`
}

// OfferFilter narrows the admin list. Empty fields match everything.
type OfferFilter struct {
	Search string      `json:"search,omitempty"`
	Status OfferStatus `json:"status,omitempty"`
}

type OfferStats struct {
	TotalOffers    int `json:"total_offers"`
	PendingOffers  int `json:"pending_offers"`
	TotalValue     int `json:"total_value"`
	ConversionRate int `json:"conversion_rate"`
}
