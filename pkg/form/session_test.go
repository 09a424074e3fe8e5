package form

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/cascade"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

func registrationSchema() schema.FormSchema {
	return schema.FormSchema{Categories: []schema.ParamCategory{
		{
			Name: "basic",
			Params: []schema.Param{
				{Name: "email", Type: schema.ParamTextField, Description: "Email", Required: true, Content: &schema.StringContent{}},
				{Name: "age", Type: schema.ParamNumberField, Description: "Age", Content: &schema.NumberContent{Kind: schema.ContentInteger}},
				{Name: "newsletter", Type: schema.ParamSwitch, Description: "Newsletter", Content: &schema.BooleanContent{}},
				{
					Name:        "frequency",
					Type:        schema.ParamRadio,
					Description: "Frequency",
					Content: &schema.EnumContent{Values: []schema.EnumValue{
						{Label: "Weekly", Value: "weekly"},
						{Label: "Daily", Value: "daily", Disabled: true},
					}},
					Visibility: &schema.VisibilityCondition{Condition: "newsletter"},
				},
				{Name: "avatar", Type: schema.ParamFileUpload, Description: "Avatar", Content: &schema.StringContent{}},
			},
		},
		{
			Name: "location",
			Params: []schema.Param{
				{
					Name:        "country",
					Type:        schema.ParamList,
					Description: "Country",
					Content: &schema.EnumContent{Values: []schema.EnumValue{
						{Label: "France", Value: "FR"},
						{Label: "Germany", Value: "DE"},
					}},
				},
				{
					Name:        "city",
					Type:        schema.ParamSubList,
					Description: "City",
					Content: &schema.DependentEnumContent{
						DependsOn: schema.StringList{"country"},
						Mapping:   map[string][]schema.EnumValue{"FR": {{Label: "Paris", Value: "paris"}}},
					},
				},
				{
					Name:        "brands",
					Type:        schema.ParamMultiSelect,
					Description: "Brands",
					Content: &schema.EnumContent{Multiple: true, MaxSelections: 2, Values: []schema.EnumValue{
						{Label: "A", Value: "a"}, {Label: "B", Value: "b"}, {Label: "C", Value: "c"},
					}},
				},
				{Name: "birth", Type: schema.ParamDateField, Description: "Birth", Content: &schema.DateContent{}},
				{Name: "budget", Type: schema.ParamRange, Description: "Budget", Content: &schema.RangeContent{Min: 0, Max: 100, Step: 10}},
			},
		},
	}}
}

// newsletterEvaluator treats the rule as the name of a boolean field.
var newsletterEvaluator = visibility.EvaluatorFunc(func(_ string, rule string, ctx visibility.Context) (bool, error) {
	v, _ := ctx.Values[rule].(bool)
	return v, nil
})

func mustEdit(t *testing.T, s *Session, name string, value any) []Effect {
	t.Helper()
	effects, err := s.Edit(name, value)
	if err != nil {
		t.Fatalf("edit %s=%v: %v", name, value, err)
	}
	return effects
}

func TestSession_CountryCityScenario(t *testing.T) {
	s := NewSession(registrationSchema())
	s.Start()

	if _, err := s.Edit("city", "paris"); !errors.Is(err, ErrNotInteractive) {
		t.Fatalf("expected city locked before country, got %v", err)
	}

	mustEdit(t, s, "country", "FR")
	city, _ := s.Snapshot().Field("city")
	if diff := cmp.Diff([]schema.EnumValue{{Label: "Paris", Value: "paris"}}, city.Options); diff != "" {
		t.Fatalf("city options mismatch (-want +got):\n%s", diff)
	}
	mustEdit(t, s, "city", "paris")

	mustEdit(t, s, "country", "DE")
	snap := s.Snapshot()
	city, _ = snap.Field("city")
	if len(city.Options) != 0 {
		t.Fatalf("expected no city options for DE, got %#v", city.Options)
	}
	if _, present := snap.Data["city"]; present {
		t.Fatalf("expected prior city value cleared, got %#v", snap.Data)
	}
}

func TestSession_EditValidation(t *testing.T) {
	cases := []struct {
		name  string
		field string
		value any
		want  error
	}{
		{name: "unknown field", field: "nope", value: "x", want: ErrUnknownField},
		{name: "unsupported field", field: "avatar", value: "x", want: ErrUnsupported},
		{name: "wrong type for text", field: "email", value: 42, want: ErrInvalidValue},
		{name: "fractional integer", field: "age", value: 3.5, want: ErrInvalidValue},
		{name: "unknown option", field: "country", value: "XX", want: ErrUnknownOption},
		{name: "disabled option", field: "frequency", value: "daily", want: ErrUnknownOption},
		{name: "bad date", field: "birth", value: "31/12/2000", want: ErrInvalidValue},
		{name: "range out of bounds", field: "budget", value: 101.0, want: ErrInvalidValue},
		{name: "too many selections", field: "brands", value: []string{"a", "b", "c"}, want: ErrMaxSelections},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession(registrationSchema())
			s.Start()
			if _, err := s.Edit(tc.field, tc.value); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(s.Snapshot().Data) != 0 {
				t.Fatalf("rejected edit must not change data")
			}
		})
	}
}

func TestSession_EditNormalises(t *testing.T) {
	s := NewSession(registrationSchema())
	s.Start()
	mustEdit(t, s, "age", "42")
	mustEdit(t, s, "budget", []any{10.0, 50})
	mustEdit(t, s, "birth", "2000-12-31")
	mustEdit(t, s, "email", "a@b.c")
	mustEdit(t, s, "email", "")

	want := api.FormData{"age": 42.0, "budget": []float64{10, 50}, "birth": "2000-12-31"}
	if diff := cmp.Diff(want, s.Snapshot().Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_LargeWholeNumbers(t *testing.T) {
	for _, value := range []float64{1e19, -1e19, 9.3e18} {
		s := NewSession(registrationSchema())
		s.Start()
		mustEdit(t, s, "age", value)
		if got := s.Snapshot().Data["age"]; got != value {
			t.Fatalf("expected %v stored, got %#v", value, got)
		}
	}
}

func TestSession_ToggleRespectsMaxSelections(t *testing.T) {
	s := NewSession(registrationSchema())
	s.Start()
	if _, err := s.Toggle("brands", "a"); err != nil {
		t.Fatalf("toggle a: %v", err)
	}
	if _, err := s.Toggle("brands", "b"); err != nil {
		t.Fatalf("toggle b: %v", err)
	}
	if _, err := s.Toggle("brands", "c"); !errors.Is(err, ErrMaxSelections) {
		t.Fatalf("expected max selections error, got %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, s.Snapshot().Data["brands"]); diff != "" {
		t.Fatalf("selection must be unchanged (-want +got):\n%s", diff)
	}
	if _, err := s.Toggle("brands", "a"); err != nil {
		t.Fatalf("untoggle a: %v", err)
	}
	if diff := cmp.Diff([]string{"b"}, s.Snapshot().Data["brands"]); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_InvalidSubmission(t *testing.T) {
	s := NewSession(registrationSchema(), WithFormID("user_registration"))
	s.Start()
	mustEdit(t, s, "email", "not-an-email")
	before := s.Snapshot().Data

	effects := s.SubmitIntent()
	if len(effects) != 1 || effects[0].Kind != Validate {
		t.Fatalf("expected validate effect, got %#v", effects)
	}
	if effects[0].Submission.FormID != "user_registration" {
		t.Fatalf("expected form id on submission, got %#v", effects[0].Submission)
	}
	if s.State() != Validating {
		t.Fatalf("expected Validating, got %s", s.State())
	}

	next := s.ValidateResolved(effects[0].Cycle, api.ValidationResponse{
		Valid:  false,
		Errors: []api.ValidationError{{Field: "email", Message: "invalid", Code: "E1"}},
	}, nil)
	if len(next) != 0 {
		t.Fatalf("invalid response must not submit, got %#v", next)
	}

	snap := s.Snapshot()
	if snap.State != Idle {
		t.Fatalf("expected Idle, got %s", snap.State)
	}
	if diff := cmp.Diff(before, snap.Data); diff != "" {
		t.Fatalf("data must be unchanged (-want +got):\n%s", diff)
	}
	email, _ := snap.Field("email")
	if email.Error == nil || email.Error.Code != "E1" {
		t.Fatalf("expected email error, got %#v", email.Error)
	}
	if snap.Message != MessageCorrectErrors {
		t.Fatalf("unexpected message %q", snap.Message)
	}

	mustEdit(t, s, "email", "a@b.c")
	if _, ok := s.Snapshot().Errors["email"]; ok {
		t.Fatalf("edit must clear the field error")
	}
}

func TestSession_SuccessfulSubmission(t *testing.T) {
	s := NewSession(registrationSchema())
	s.Start()
	mustEdit(t, s, "email", "a@b.c")
	mustEdit(t, s, "country", "FR")
	mustEdit(t, s, "city", "paris")

	validate := s.SubmitIntent()[0]
	submit := s.ValidateResolved(validate.Cycle, api.ValidationResponse{Valid: true}, nil)
	if len(submit) != 1 || submit[0].Kind != Submit {
		t.Fatalf("expected submit effect, got %#v", submit)
	}
	if diff := cmp.Diff(validate.Submission, submit[0].Submission); diff != "" {
		t.Fatalf("submit must send the validated payload (-want +got):\n%s", diff)
	}
	if s.State() != Submitting {
		t.Fatalf("expected Submitting, got %s", s.State())
	}

	s.SubmitResolved(submit[0].Cycle, api.SubmissionResponse{Success: true, Message: "ok", Data: map[string]any{"submissionId": "42"}}, nil)
	snap := s.Snapshot()
	if snap.State != Success || snap.Message != "ok" {
		t.Fatalf("expected Success with message, got %s %q", snap.State, snap.Message)
	}
	if len(snap.Data) != 0 {
		t.Fatalf("expected data reset, got %#v", snap.Data)
	}
	if diff := cmp.Diff(map[string]any{"submissionId": "42"}, snap.Result); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	city, _ := snap.Field("city")
	if city.Status != cascade.Empty || city.Interactive {
		t.Fatalf("expected city reset to Empty, got %#v", city)
	}

	mustEdit(t, s, "email", "x@y.z")
	if s.State() != Idle || s.Snapshot().Message != "" {
		t.Fatalf("edit after success must clear message and return to Idle")
	}
}

func TestSession_ReportedFailureKeepsData(t *testing.T) {
	s := NewSession(registrationSchema())
	s.Start()
	mustEdit(t, s, "email", "a@b.c")

	validate := s.SubmitIntent()[0]
	submit := s.ValidateResolved(validate.Cycle, api.ValidationResponse{Valid: true}, nil)[0]
	s.SubmitResolved(submit.Cycle, api.SubmissionResponse{
		Success: false,
		Message: "Form validation failed",
		Data:    map[string]any{"errors": []any{map[string]any{"field": "email", "message": "taken", "code": "unique"}}},
	}, nil)

	snap := s.Snapshot()
	if snap.State != Failed || snap.Message != "Form validation failed" {
		t.Fatalf("expected Failed with server message, got %s %q", snap.State, snap.Message)
	}
	if snap.Data["email"] != "a@b.c" {
		t.Fatalf("expected data kept, got %#v", snap.Data)
	}
	if snap.Failure == nil || !snap.Failure.Reported {
		t.Fatalf("expected reported failure, got %#v", snap.Failure)
	}
	if snap.Errors["email"].Code != "unique" {
		t.Fatalf("expected field errors from rejected payload, got %#v", snap.Errors)
	}
	if len(s.SubmitIntent()) != 1 {
		t.Fatalf("failed state must accept a new submit")
	}
}

func TestSession_TransportFailure(t *testing.T) {
	s := NewSession(registrationSchema())
	s.Start()
	mustEdit(t, s, "email", "a@b.c")

	boom := errors.New("connection refused")
	validate := s.SubmitIntent()[0]
	submit := s.ValidateResolved(validate.Cycle, api.ValidationResponse{Valid: true}, nil)[0]
	s.SubmitResolved(submit.Cycle, api.SubmissionResponse{}, boom)

	snap := s.Snapshot()
	if snap.State == Submitting {
		t.Fatalf("transport failure must not leave the session submitting")
	}
	if snap.Message != MessageSubmitError {
		t.Fatalf("expected generic message, got %q", snap.Message)
	}
	if snap.Failure == nil || !errors.Is(snap.Failure, boom) {
		t.Fatalf("expected failure wrapping cause, got %#v", snap.Failure)
	}
	if snap.Data["email"] != "a@b.c" {
		t.Fatalf("expected data kept")
	}
}

func TestSession_SubmitIgnoredWhileInFlight(t *testing.T) {
	s := NewSession(registrationSchema())
	s.Start()
	first := s.SubmitIntent()
	if len(first) != 1 {
		t.Fatalf("expected first intent accepted")
	}
	if again := s.SubmitIntent(); again != nil {
		t.Fatalf("expected intent ignored while validating, got %#v", again)
	}
	s.ValidateResolved(first[0].Cycle, api.ValidationResponse{Valid: true}, nil)
	if again := s.SubmitIntent(); again != nil {
		t.Fatalf("expected intent ignored while submitting, got %#v", again)
	}
}

func TestSession_StaleCycleDropped(t *testing.T) {
	s := NewSession(registrationSchema())
	s.Start()
	validate := s.SubmitIntent()[0]
	s.Reset()
	if effects := s.ValidateResolved(validate.Cycle, api.ValidationResponse{Valid: true}, nil); effects != nil {
		t.Fatalf("result for abandoned cycle must be dropped, got %#v", effects)
	}
	if s.State() != Idle {
		t.Fatalf("expected Idle after reset, got %s", s.State())
	}
}

func TestSession_HiddenFieldsExcludedFromPayload(t *testing.T) {
	s := NewSession(registrationSchema(), WithEvaluator(newsletterEvaluator))
	s.Start()

	frequency, _ := s.Snapshot().Field("frequency")
	if frequency.Visible {
		t.Fatalf("expected frequency hidden while newsletter is off")
	}

	mustEdit(t, s, "newsletter", true)
	mustEdit(t, s, "frequency", "weekly")
	mustEdit(t, s, "newsletter", false)

	effects := s.SubmitIntent()
	if _, present := effects[0].Submission.Data["frequency"]; present {
		t.Fatalf("hidden field must not be submitted, got %#v", effects[0].Submission.Data)
	}
	if s.Snapshot().Data["frequency"] != "weekly" {
		t.Fatalf("hidden field keeps its value in form data")
	}
}

func TestSession_VisibilityErrorKeepsFieldVisible(t *testing.T) {
	failing := visibility.EvaluatorFunc(func(string, string, visibility.Context) (bool, error) {
		return false, errors.New("bad rule")
	})
	s := NewSession(registrationSchema(), WithEvaluator(failing))
	s.Start()
	frequency, _ := s.Snapshot().Field("frequency")
	if !frequency.Visible || frequency.VisibilityErr == nil {
		t.Fatalf("expected visible field with recorded error, got %#v", frequency)
	}
}

func TestSession_RemoteDependentOptions(t *testing.T) {
	s := NewSession(schema.FormSchema{Categories: []schema.ParamCategory{{
		Name: "main",
		Params: []schema.Param{
			{Name: "country", Type: schema.ParamList, Content: &schema.EnumContent{Values: []schema.EnumValue{{Label: "UK", Value: "GB"}}}},
			{Name: "city", Type: schema.ParamSubList, Content: &schema.DependentEnumContent{
				DependsOn: schema.StringList{"country"},
				Source:    "/api/cities?country={country}",
			}},
		},
	}}})
	s.Start()

	effects := mustEdit(t, s, "country", "GB")
	if len(effects) != 1 || effects[0].Kind != FetchOptions {
		t.Fatalf("expected fetch effect, got %#v", effects)
	}
	if _, err := s.Edit("city", "london"); !errors.Is(err, ErrNotInteractive) {
		t.Fatalf("expected city locked while loading, got %v", err)
	}
	if !s.OptionsResolved(effects[0].Fetch, []schema.EnumValue{{Label: "London", Value: "london"}}, nil) {
		t.Fatalf("expected options applied")
	}
	mustEdit(t, s, "city", "london")
}
