package models

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/justsurfingit/Placement-Tracker/internal/common"
)

const (
	MaxTestRounds      = 5
	MaxInterviewRounds = 3
)

// RoundSlot is one test or interview instance. A slot without a description
// is unset, whatever its date, time or result say.
type RoundSlot struct {
	Description string      `json:"description"`
	Date        Date        `json:"date"`
	Time        string      `json:"time"`
	Result      RoundResult `json:"result"`
}

func (s RoundSlot) IsSet() bool {
	return strings.TrimSpace(s.Description) != ""
}

type Placement struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	OwnerID   string    `gorm:"column:user_id;type:uuid;index;not null" json:"user_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`

	CompanyName              string   `gorm:"not null" json:"company_name" validate:"required"`
	Role                     string   `json:"role"`
	CTC                      *float64 `gorm:"column:ctc" json:"ctc" validate:"omitempty,gte=0"`
	Location                 string   `json:"location"`
	EligibilityCriteria      string   `gorm:"column:eligibility;type:text" json:"eligibility"`
	RegistrationDeadline     Date     `json:"registration_deadline"`
	RegistrationDeadlineTime string   `json:"registration_deadline_time"`
	RegistrationLink         string   `json:"registration_link"`

	Eligible Eligibility `gorm:"column:are_you_eligible" json:"are_you_eligible"`
	Status   Status      `gorm:"not null;default:'Applied'" json:"status"`

	Tests      [MaxTestRounds]RoundSlot      `gorm:"serializer:json;type:jsonb" json:"tests"`
	Interviews [MaxInterviewRounds]RoundSlot `gorm:"serializer:json;type:jsonb" json:"interviews"`
}

// NewPlacement returns a record carrying the documented defaults.
func NewPlacement() Placement {
	p := Placement{Status: StatusApplied, Eligible: EligibilityUnknown}
	p.Normalize()
	return p
}

// Normalize trims the company name and gives every round a defined result.
func (p *Placement) Normalize() {
	p.CompanyName = strings.TrimSpace(p.CompanyName)
	if p.Status == "" {
		p.Status = StatusApplied
	}
	for i := range p.Tests {
		if p.Tests[i].Result == "" {
			p.Tests[i].Result = ResultPending
		}
	}
	for i := range p.Interviews {
		if p.Interviews[i].Result == "" {
			p.Interviews[i].Result = ResultPending
		}
	}
}

func (p Placement) HasDeadline() bool {
	return !p.RegistrationDeadline.IsZero()
}

func (p Placement) HasTest() bool {
	for _, slot := range p.Tests {
		if slot.IsSet() {
			return true
		}
	}
	return false
}

func (p Placement) HasInterview() bool {
	for _, slot := range p.Interviews {
		if slot.IsSet() {
			return true
		}
	}
	return false
}

// HasEligibilityConflict flags legacy records that were saved as not
// eligible with a status other than Not Eligible. They are shown, not repaired.
func (p Placement) HasEligibilityConflict() bool {
	return p.Eligible == EligibilityNo && p.Status != StatusNotEligible
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the field-level invariants of a record about to be persisted.
func (p Placement) Validate() error {
	fields := map[string]string{}
	if err := validate.Struct(p); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		} else {
			return common.NewError(common.CodeValidation, "invalid placement", err)
		}
	}
	if strings.TrimSpace(p.CompanyName) == "" {
		fields["company_name"] = "required"
	}
	if !p.Status.Valid() {
		fields["status"] = "unknown status"
	}
	for i, slot := range p.Tests {
		if !slot.Result.ValidFor(RoundTest) {
			fields[roundField("tests", i)] = "invalid test result"
		}
	}
	for i, slot := range p.Interviews {
		if !slot.Result.ValidFor(RoundInterview) {
			fields[roundField("interviews", i)] = "invalid interview result"
		}
	}
	if len(fields) > 0 {
		return common.NewValidationError("invalid placement", fields)
	}
	return nil
}

func roundField(group string, i int) string {
	return fmt.Sprintf("%s[%d].result", group, i+1)
}

// ProcessedEmail remembers inbox messages a user's sync already handled.
// The same message id may be processed once per user.
type ProcessedEmail struct {
	ID        string `gorm:"primaryKey"`
	OwnerID   string `gorm:"column:user_id;primaryKey"`
	CreatedAt time.Time
}

// InboxCursor is the per-user Gmail history bookmark.
type InboxCursor struct {
	OwnerID       string `gorm:"column:user_id;primaryKey"`
	LastHistoryID uint64 `json:"last_history_id"`
	UpdatedAt     time.Time
}
