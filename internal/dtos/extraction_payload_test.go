package dtos

import (
	"testing"

	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeExtractionPayload(t *testing.T) {
	raw := `{
		"company_name": "Acme",
		"role": "SDE Intern",
		"ctc": 12.5,
		"location": null,
		"are_you_eligible": true,
		"registration_deadline": "2025-06-10",
		"registration_deadline_time": "11:59 PM",
		"test_1": "Coding Test",
		"test_1_date": "2025-07-01",
		"test_1_time": "10:00",
		"result_1": "Passed",
		"interview_2": "HR",
		"interview_2_date": "15/07/2025",
		"interview_result_2": "Selected",
		"tags": ["ignored"]
	}`
	payload, err := DecodeExtractionPayload([]byte(raw))
	require.NoError(t, err)

	c := payload.ToCandidate()
	assert.Equal(t, "Acme", c.CompanyName)
	assert.Equal(t, "SDE Intern", c.Role)
	require.NotNil(t, c.CTC)
	assert.Equal(t, 12.5, *c.CTC)
	assert.Equal(t, "", c.Location)
	assert.Equal(t, models.EligibilityYes, c.Eligible)
	assert.Equal(t, "2025-06-10", c.RegistrationDeadline.String())
	assert.Equal(t, "23:59", c.RegistrationDeadlineTime)

	assert.Equal(t, models.RoundSlot{
		Description: "Coding Test",
		Date:        models.NewDate(2025, 7, 1),
		Time:        "10:00",
		Result:      models.ResultPassed,
	}, c.Tests[0])
	assert.False(t, c.Tests[1].IsSet())
	assert.Equal(t, "HR", c.Interviews[1].Description)
	assert.Equal(t, "2025-07-15", c.Interviews[1].Date.String())
	assert.Equal(t, models.ResultSelected, c.Interviews[1].Result)
}

func TestDecodeExtractionPayloadRejectsNonObjects(t *testing.T) {
	_, err := DecodeExtractionPayload([]byte(`["not", "an", "object"]`))
	assert.Error(t, err)
	_, err = DecodeExtractionPayload([]byte(`null`))
	assert.Error(t, err)
	_, err = DecodeExtractionPayload([]byte(`{"company_name": `))
	assert.Error(t, err)
}

func TestParseCTC(t *testing.T) {
	cases := map[string]float64{
		"12 LPA":       12,
		"8.5":          8.5,
		"₹ 8,5 lakh":   8.5,
		"12,00,000":    12,
		"INR 1500000":  15,
		"10-12 LPA":    10,
		"CTC: 20.25 L": 20.25,
	}
	for in, want := range cases {
		got := ParseCTC(in)
		if assert.NotNil(t, got, in) {
			assert.InDelta(t, want, *got, 1e-9, in)
		}
	}
	assert.Nil(t, ParseCTC("Not specified"))
	assert.Nil(t, ParseCTC(""))
}

func TestParseLooseDate(t *testing.T) {
	assert.Equal(t, "2025-07-01", ParseLooseDate("2025-07-01").String())
	assert.Equal(t, "2025-07-01", ParseLooseDate("01/07/2025").String())
	assert.Equal(t, "2025-07-01", ParseLooseDate("1 July 2025").String())
	assert.Equal(t, "2025-07-01", ParseLooseDate("Jul 1, 2025").String())
	assert.True(t, ParseLooseDate("next week").IsZero())
}

func TestNormalizeTime(t *testing.T) {
	assert.Equal(t, "09:30", NormalizeTime("9:30 am"))
	assert.Equal(t, "15:00", NormalizeTime("3 PM"))
	assert.Equal(t, "23:59", NormalizeTime("23:59"))
	assert.Equal(t, "", NormalizeTime("Not specified"))
	assert.Equal(t, "", NormalizeTime(""))
}

func TestPlacementFormApplyTo(t *testing.T) {
	p := models.NewPlacement()
	p.ID = "keep"
	p.Eligible = models.EligibilityNo
	old := 3.0
	p.CTC = &old

	form := PlacementForm{CompanyName: "Acme", Location: "Pune", Eligible: models.EligibilityYes}
	form.Tests[0].Description = "OA"
	form.ApplyTo(&p)

	assert.Equal(t, "keep", p.ID)
	assert.Equal(t, "Acme", p.CompanyName)
	assert.Nil(t, p.CTC)
	assert.Equal(t, "OA", p.Tests[0].Description)
	assert.Equal(t, models.EligibilityNo, p.Eligible)
}
