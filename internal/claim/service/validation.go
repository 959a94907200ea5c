package service

import (
	"strings"
	"time"

	"github.com/smallbiznis/sanad/internal/claim/domain"
)

var (
	dateLayouts     = []string{"2006-01-02", time.RFC3339}
	dateTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}
)

func (s *Service) buildClaim(req domain.CreateClaimRequest) (domain.Claim, error) {
	var errs domain.ValidationErrors

	category := domain.Category(strings.ToLower(strings.TrimSpace(req.Category)))
	if !category.Valid() {
		errs.Add("category", "must be flight or delivery")
	}

	claim := domain.Claim{
		Category:        category,
		IssueType:       strings.ToLower(strings.TrimSpace(req.IssueType)),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		Phone:           strings.TrimSpace(req.Phone),
		Email:           strings.TrimSpace(req.Email),
		CompanyName:     strings.TrimSpace(req.CompanyName),
		ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
		Description:     strings.TrimSpace(req.Description),
	}

	required(&errs, "issue_type", claim.IssueType)
	required(&errs, "customer_name", claim.CustomerName)
	required(&errs, "company_name", claim.CompanyName)
	required(&errs, "reference_number", claim.ReferenceNumber)
	required(&errs, "description", claim.Description)
	validatePhone(&errs, claim.Phone)
	validateEmail(&errs, claim.Email)

	if incident, ok := parseTime(&errs, "incident_date", req.IncidentDate, dateLayouts, true); ok {
		claim.IncidentDate = *incident
	}

	claim.FlightFrom = optionalString(req.FlightFrom)
	claim.FlightTo = optionalString(req.FlightTo)
	claim.ScheduledTime, _ = parseTime(&errs, "scheduled_time", req.ScheduledTime, dateTimeLayouts, false)
	if req.DelayHours != nil {
		if *req.DelayHours < 0 {
			errs.Add("delay_hours", "must not be negative")
		} else {
			hours := *req.DelayHours
			claim.DelayHours = &hours
		}
	}

	claim.DeliveryCity = optionalString(req.DeliveryCity)
	claim.OrderTime, _ = parseTime(&errs, "order_time", req.OrderTime, dateTimeLayouts, false)
	claim.DeliveryTime, _ = parseTime(&errs, "delivery_time", req.DeliveryTime, dateTimeLayouts, false)

	if err := errs.Err(); err != nil {
		return domain.Claim{}, err
	}
	return claim, nil
}

// applyUpdate merges req into claim and reports whether any field feeding the quote changed.
func applyUpdate(claim *domain.Claim, req domain.UpdateClaimRequest) (bool, error) {
	var errs domain.ValidationErrors
	quoteInputs := false

	setRequired := func(field string, v *string, dst *string) {
		if v == nil {
			return
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			errs.Add(field, "is required")
			return
		}
		*dst = trimmed
	}

	if req.IssueType != nil {
		before := claim.IssueType
		setRequired("issue_type", req.IssueType, &claim.IssueType)
		claim.IssueType = strings.ToLower(claim.IssueType)
		quoteInputs = quoteInputs || before != claim.IssueType
	}
	setRequired("customer_name", req.CustomerName, &claim.CustomerName)
	setRequired("company_name", req.CompanyName, &claim.CompanyName)
	setRequired("reference_number", req.ReferenceNumber, &claim.ReferenceNumber)
	setRequired("description", req.Description, &claim.Description)

	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		validatePhone(&errs, phone)
		claim.Phone = phone
	}
	if req.Email != nil {
		mail := strings.TrimSpace(*req.Email)
		validateEmail(&errs, mail)
		claim.Email = mail
	}
	if req.IncidentDate != nil {
		if incident, ok := parseTime(&errs, "incident_date", *req.IncidentDate, dateLayouts, true); ok {
			claim.IncidentDate = *incident
		}
	}
	if req.FlightFrom != nil {
		claim.FlightFrom = optionalString(*req.FlightFrom)
	}
	if req.FlightTo != nil {
		claim.FlightTo = optionalString(*req.FlightTo)
	}
	if req.ScheduledTime != nil {
		claim.ScheduledTime, _ = parseTime(&errs, "scheduled_time", *req.ScheduledTime, dateTimeLayouts, false)
	}
	if req.DelayHours != nil {
		if *req.DelayHours < 0 {
			errs.Add("delay_hours", "must not be negative")
		} else {
			hours := *req.DelayHours
			claim.DelayHours = &hours
			quoteInputs = true
		}
	}
	if req.InternalNotes != nil {
		claim.InternalNotes = strings.TrimSpace(*req.InternalNotes)
	}
	if req.DraftText != nil {
		claim.DraftText = *req.DraftText
	}

	if err := errs.Err(); err != nil {
		return false, err
	}
	return quoteInputs, nil
}

func updatedFields(req domain.UpdateClaimRequest) []string {
	fields := []string{}
	add := func(name string, set bool) {
		if set {
			fields = append(fields, name)
		}
	}
	add("issue_type", req.IssueType != nil)
	add("customer_name", req.CustomerName != nil)
	add("phone", req.Phone != nil)
	add("email", req.Email != nil)
	add("company_name", req.CompanyName != nil)
	add("reference_number", req.ReferenceNumber != nil)
	add("incident_date", req.IncidentDate != nil)
	add("description", req.Description != nil)
	add("flight_from", req.FlightFrom != nil)
	add("flight_to", req.FlightTo != nil)
	add("scheduled_time", req.ScheduledTime != nil)
	add("delay_hours", req.DelayHours != nil)
	add("internal_notes", req.InternalNotes != nil)
	add("draft_text", req.DraftText != nil)
	return fields
}

func required(errs *domain.ValidationErrors, field, value string) {
	if value == "" {
		errs.Add(field, "is required")
	}
}

func validatePhone(errs *domain.ValidationErrors, phone string) {
	if len(phone) < domain.MinPhoneLength {
		errs.Add("phone", "must be at least 10 characters")
	}
}

func validateEmail(errs *domain.ValidationErrors, mail string) {
	if mail != "" && !strings.Contains(mail, "@") {
		errs.Add("email", "is not a valid address")
	}
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func parseTime(errs *domain.ValidationErrors, field, raw string, layouts []string, mandatory bool) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if mandatory {
			errs.Add(field, "is required")
		}
		return nil, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	errs.Add(field, "is not a valid date")
	return nil, false
}
