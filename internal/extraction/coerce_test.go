package extraction

import (
	"errors"
	"reflect"
	"testing"

	"github.com/pillwise/go-reminder-backend/internal/domain"
)

func TestToStringSlice(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want []string
	}{
		{"nil", nil, []string{}},
		{"string slice", []string{"a", "b"}, []string{"a", "b"}},
		{"any slice", []any{"a", " b ", ""}, []string{"a", "b"}},
		{"mixed any slice", []any{"a", 7}, []string{"a", "7"}},
		{"comma string", "07:30, 18:30", []string{"07:30", "18:30"}},
		{"newline string", "careful\nno alcohol", []string{"careful", "no alcohol"}},
		{"blank string", "  ", []string{}},
		{"number", 42, []string{}},
		{"object", map[string]any{"x": 1}, []string{}},
	}
	for _, tc := range cases {
		if got := ToStringSlice(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: ToStringSlice(%v) = %v; want %v", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestParsePrescription_FencedJSON(t *testing.T) {
	text := "```json\n{\"patient_name\":\"Alex\",\"medications\":[{\"drug_name\":\"D\",\"drug_name_simple\":\"d\",\"alert_times\":[\"07:30\"]}],\"general_warnings\":\"no alcohol\"}\n```"

	res, err := ParsePrescription(text)
	if err != nil {
		t.Fatalf("ParsePrescription: %v", err)
	}
	if res.PatientName != "Alex" {
		t.Errorf("PatientName = %q", res.PatientName)
	}
	if !reflect.DeepEqual(res.GeneralWarnings, []string{"no alcohol"}) {
		t.Errorf("GeneralWarnings = %v", res.GeneralWarnings)
	}
	if len(res.Medications) != 1 || !reflect.DeepEqual(res.Medications[0].AlertTimes, []string{"07:30"}) {
		t.Errorf("Medications = %+v", res.Medications)
	}
}

func TestParsePrescription_SurroundingProse(t *testing.T) {
	text := `Here is the result: {"medications":[],"general_warnings":null} hope it helps`
	res, err := ParsePrescription(text)
	if err != nil {
		t.Fatalf("ParsePrescription: %v", err)
	}
	if len(res.Medications) != 0 || len(res.GeneralWarnings) != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestParsePrescription_AlertTimesAsString(t *testing.T) {
	text := `{"medications":[{"drug_name_simple":"d","alert_times":"07:30, 18:30"}]}`
	res, err := ParsePrescription(text)
	if err != nil {
		t.Fatalf("ParsePrescription: %v", err)
	}
	if !reflect.DeepEqual(res.Medications[0].AlertTimes, []string{"07:30", "18:30"}) {
		t.Errorf("AlertTimes = %v", res.Medications[0].AlertTimes)
	}
}

func TestParsePrescription_ErrorField(t *testing.T) {
	_, err := ParsePrescription(`{"error":"not a prescription image"}`)
	if !errors.Is(err, ErrNotPrescription) {
		t.Fatalf("expected ErrNotPrescription, got %v", err)
	}
}

func TestParsePrescription_Garbage(t *testing.T) {
	for _, text := range []string{"", "no json here", "{broken"} {
		if _, err := ParsePrescription(text); !errors.Is(err, ErrUnreadable) {
			t.Errorf("ParsePrescription(%q): expected ErrUnreadable, got %v", text, err)
		}
	}
}

func TestDedupeSimpleNames(t *testing.T) {
	meds := []domain.Medication{
		{DrugNameSimple: "diabetes pill"},
		{DrugNameSimple: "diabetes pill"},
		{DrugNameSimple: "diabetes pill"},
		{DrugNameSimple: "cholesterol pill"},
	}
	DedupeSimpleNames(meds)

	got := []string{meds[0].DrugNameSimple, meds[1].DrugNameSimple, meds[2].DrugNameSimple, meds[3].DrugNameSimple}
	want := []string{"diabetes pill", "diabetes pill 2", "diabetes pill 3", "cholesterol pill"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DedupeSimpleNames = %v; want %v", got, want)
	}
}
