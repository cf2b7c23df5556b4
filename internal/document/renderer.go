// Package document renders offers as HTML and exports them to PDF.
package document

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"seo-offers/internal/models"
	"seo-offers/internal/offer"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/offer.html.tmpl
var templates embed.FS

// OfferData is everything printed on an offer. Date is part of the input so
// that identical data renders identical bytes.
type OfferData struct {
	Domain          string   `json:"domain"`
	Industry        string   `json:"industry"`
	Cities          []string `json:"cities"`
	Keywords        []string `json:"keywords"`
	Package         string   `json:"package"`
	EstimatedPages  int      `json:"estimatedPages"`
	EstimatedLinks  int      `json:"estimatedLinks"`
	EstimatedMonths int      `json:"estimatedMonths"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone"`
	Date            string   `json:"date"`
}

// DateLayout is the date format printed in the footer and file name.
const DateLayout = "2006-01-02"

// FromOffer builds document data for a stored offer.
func FromOffer(owp models.OfferWithProject, date time.Time) OfferData {
	d := OfferData{
		Package:         string(owp.Package),
		EstimatedPages:  owp.EstimatedPages,
		EstimatedLinks:  owp.EstimatedLinks,
		EstimatedMonths: owp.EstimatedMonths,
		Email:           owp.CustomerEmail,
		Phone:           owp.CustomerPhone,
		Date:            date.Format(DateLayout),
		Cities:          []string{},
		Keywords:        []string{},
	}
	if owp.Project != nil {
		d.Domain = owp.Project.DomainURL
		d.Industry = owp.Project.Industry
		d.Cities = owp.Project.Cities
		d.Keywords = owp.Project.SelectedKeywords
	}
	return d
}

type view struct {
	OfferData
	PackageLabel string
	Price        string
	Features     []string
}

// Renderer expands the offer template. It is safe for concurrent use.
type Renderer struct {
	tmpl    *template.Template
	printer *message.Printer
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templates, "templates/offer.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse offer template: %w", err)
	}
	return &Renderer{tmpl: tmpl, printer: message.NewPrinter(language.Swedish)}, nil
}

// Render returns the offer HTML. An unknown package prints its label but no
// price or features.
func (r *Renderer) Render(data OfferData) ([]byte, error) {
	v := view{
		OfferData:    data,
		PackageLabel: strings.ToUpper(data.Package),
	}
	if p, ok := offer.Lookup(models.PackageTier(strings.ToLower(data.Package))); ok {
		v.Price = r.FormatPrice(p.MonthlyPrice)
		v.Features = p.Features()
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("execute offer template: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatPrice groups thousands the Swedish way.
func (r *Renderer) FormatPrice(kr int) string {
	return r.printer.Sprintf("%d", kr)
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// FileName returns offert-<domain>-<date>.pdf with every character outside
// ASCII letters and digits in the domain replaced by a dash.
func FileName(domain, date string) string {
	return fmt.Sprintf("offert-%s-%s.pdf", nonAlnum.ReplaceAllString(domain, "-"), date)
}
