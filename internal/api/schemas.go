package api

import (
	"seo-offers/internal/common/validation"
	"seo-offers/internal/models"
)

var (
	strProp     = validation.Property{Type: "string"}
	strListProp = validation.Property{Type: "array", Items: &validation.Property{Type: "string"}}
	intProp     = validation.Property{Type: "integer", Minimum: validation.Min(0)}
)

func tierEnum() []interface{} {
	out := make([]interface{}, len(models.PackageTiers))
	for i, p := range models.PackageTiers {
		out[i] = string(p)
	}
	return out
}

func signUpSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"email":    {Type: "string", Format: "email"},
			"password": {Type: "string", MinLength: validation.Len(6)},
		},
		Required: []string{"email", "password"},
	}
}

func loginSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"email":    {Type: "string", MinLength: validation.Len(1)},
			"password": {Type: "string", MinLength: validation.Len(1)},
		},
		Required: []string{"email", "password"},
	}
}

func logoutSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"refresh_token": {Type: "string", MinLength: validation.Len(1)},
		},
		Required: []string{"refresh_token"},
	}
}

// projectRequestSchema checks shapes only; field rules run in the gateway so
// that direct and wizard submissions report the same messages.
func projectRequestSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"domain_url":        strProp,
			"industry":          strProp,
			"cities":            strListProp,
			"selected_keywords": strListProp,
			"selected_package":  strProp,
			"customer_email":    strProp,
			"customer_phone":    strProp,
			"customer_message":  strProp,
			"estimate": {
				Type: "object",
				Properties: map[string]validation.Property{
					"pages_needed":     intProp,
					"backlinks_needed": intProp,
					"months_needed":    intProp,
					"monthly_price":    intProp,
				},
			},
		},
	}
}

func projectPatchSchema() validation.JSONSchema {
	statuses := []interface{}{
		string(models.ProjectDraft), string(models.ProjectSubmitted), string(models.ProjectActive),
		string(models.ProjectPaused), string(models.ProjectCompleted),
	}
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"domain_url":        strProp,
			"industry":          strProp,
			"cities":            strListProp,
			"selected_keywords": strListProp,
			"selected_package":  {Type: "string", Enum: tierEnum()},
			"status":            {Type: "string", Enum: statuses},
		},
	}
}

func wizardURLSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:       "object",
		Properties: map[string]validation.Property{"url": strProp},
		Required:   []string{"url"},
	}
}

func wizardPackageSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:       "object",
		Properties: map[string]validation.Property{"package": strProp},
		Required:   []string{"package"},
	}
}

func wizardContactSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"email":   strProp,
			"phone":   strProp,
			"message": strProp,
		},
	}
}

func sendEmailSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"type":    {Type: "string", Enum: []interface{}{"offer", "reminder"}},
			"to":      {Type: "string", Format: "email"},
			"domain":  {Type: "string", MinLength: validation.Len(1)},
			"package": {Type: "string", MinLength: validation.Len(1)},
		},
		Required: []string{"to", "domain", "package"},
	}
}

func offerDataSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"domain":          {Type: "string", MinLength: validation.Len(1)},
			"industry":        strProp,
			"cities":          strListProp,
			"keywords":        strListProp,
			"package":         {Type: "string", MinLength: validation.Len(1)},
			"estimatedPages":  intProp,
			"estimatedLinks":  intProp,
			"estimatedMonths": intProp,
			"email":           strProp,
			"phone":           strProp,
			"date":            strProp,
		},
		Required: []string{"domain", "package"},
	}
}

func offerStatusSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"status": {Type: "string", Enum: []interface{}{
				string(models.OfferPending), string(models.OfferAccepted), string(models.OfferRejected),
			}},
			"notes": strProp,
		},
		Required: []string{"status"},
	}
}
