package submission

import (
	"strings"

	"seo-offers/internal/common/validation"
	"seo-offers/internal/models"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Request is a project creation submitted directly over REST. Unlike the
// wizard path the caller supplies the effort figures of the estimate; the
// monthly price always comes from the catalog.
type Request struct {
	DomainURL        string             `json:"domain_url"`
	Industry         string             `json:"industry"`
	Cities           []string           `json:"cities"`
	SelectedKeywords []string           `json:"selected_keywords"`
	SelectedPackage  models.PackageTier `json:"selected_package"`
	CustomerEmail    string             `json:"customer_email"`
	CustomerPhone    string             `json:"customer_phone"`
	CustomerMessage  string             `json:"customer_message"`
	Estimate         models.Estimate    `json:"estimate"`
}

// Validate checks the request fields.
func (r *Request) Validate() error {
	r.DomainURL = strings.TrimSpace(r.DomainURL)
	r.CustomerEmail = strings.TrimSpace(r.CustomerEmail)
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)

	err := ozzo.ValidateStruct(r,
		ozzo.Field(&r.DomainURL, ozzo.By(func(v interface{}) error {
			return validation.CheckURL(v.(string))
		})),
		ozzo.Field(&r.SelectedKeywords, ozzo.Required),
		ozzo.Field(&r.SelectedPackage, ozzo.Required, ozzo.By(func(v interface{}) error {
			if !v.(models.PackageTier).IsValid() {
				return ozzo.NewError("validation_package", "unknown package tier")
			}
			return nil
		})),
		ozzo.Field(&r.CustomerEmail, ozzo.Required.Error(validation.MsgContactRequired), is.EmailFormat.Error(validation.MsgEmailInvalid)),
		ozzo.Field(&r.CustomerPhone, ozzo.Required.Error(validation.MsgContactRequired)),
		ozzo.Field(&r.Estimate, ozzo.By(func(v interface{}) error {
			if v.(models.Estimate).MonthsNeeded < 1 {
				return ozzo.NewError("validation_estimate_required", "estimate must include months_needed >= 1")
			}
			return nil
		})),
	)
	return err
}

// FromWizard builds a request from a reviewed wizard session.
func FromWizard(st models.WizardState) Request {
	req := Request{
		DomainURL:        st.URL,
		Industry:         st.Industry,
		Cities:           st.Cities,
		SelectedKeywords: st.SelectedKeywordTexts(),
		SelectedPackage:  st.SelectedPackage,
		CustomerEmail:    st.CustomerEmail,
		CustomerPhone:    st.CustomerPhone,
		CustomerMessage:  st.CustomerMessage,
	}
	if st.Estimate != nil {
		req.Estimate = *st.Estimate
	}
	return req
}
