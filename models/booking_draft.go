package models

// BookingDraft is the unsubmitted, client-local booking form.
type BookingDraft struct {
	CustomerName       string `json:"customerName" validate:"required,min=2,max=100"`
	CustomerPhone      string `json:"customerPhone" validate:"required,phone"`
	CustomerEmail      string `json:"customerEmail,omitempty" validate:"omitempty,email,max=100"`
	ServiceCode        string `json:"serviceCode" validate:"required,service"`
	Date               string `json:"date" validate:"required,datetime=2006-01-02"`
	Time               string `json:"time" validate:"required,datetime=15:04"`
	Notes              string `json:"notes,omitempty"`
	RequiresPrepayment bool   `json:"requiresPrepayment"`
}

// DraftPatch carries the fields a voice utterance managed to extract.
// Nil fields leave the draft untouched.
type DraftPatch struct {
	CustomerName *string `json:"customerName,omitempty"`
	ServiceCode  *string `json:"serviceCode,omitempty"`
	Date         *string `json:"date,omitempty"`
	Time         *string `json:"time,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// Apply returns a copy of d with the patch fields set.
func (p DraftPatch) Apply(d BookingDraft) BookingDraft {
	if p.CustomerName != nil {
		d.CustomerName = *p.CustomerName
	}
	if p.ServiceCode != nil {
		d.ServiceCode = *p.ServiceCode
	}
	if p.Date != nil {
		d.Date = *p.Date
	}
	if p.Time != nil {
		d.Time = *p.Time
	}
	if p.Notes != nil {
		d.Notes = *p.Notes
	}
	return d
}

// Empty reports whether the patch carries nothing.
func (p DraftPatch) Empty() bool {
	return p.CustomerName == nil && p.ServiceCode == nil && p.Date == nil && p.Time == nil && p.Notes == nil
}
