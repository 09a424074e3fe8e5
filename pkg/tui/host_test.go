package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/cascade"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
)

type scriptDriver struct {
	inputs    []string
	selects   []int
	multi     [][]int
	confirms  []bool
	infos     []string
	labels    []string
	inputPos  int
	selectPos int
	multiPos  int
	confPos   int
}

func (s *scriptDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.labels = append(s.labels, cfg.Message)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *scriptDriver) Password(ctx context.Context, cfg InputConfig) (string, error) {
	return s.Input(ctx, cfg)
}

func (s *scriptDriver) TextArea(ctx context.Context, cfg TextAreaConfig) (string, error) {
	return s.Input(ctx, InputConfig{Message: cfg.Message})
}

func (s *scriptDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.labels = append(s.labels, cfg.Message)
	if s.confPos >= len(s.confirms) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirms[s.confPos]
	s.confPos++
	return val, nil
}

func (s *scriptDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.labels = append(s.labels, cfg.Message)
	if s.selectPos >= len(s.selects) {
		return -1, errors.New("no select scripted")
	}
	val := s.selects[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *scriptDriver) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	s.labels = append(s.labels, cfg.Message)
	if s.multiPos >= len(s.multi) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multi[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *scriptDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

func (s *scriptDriver) saw(fragment string) bool {
	for _, info := range s.infos {
		if strings.Contains(info, fragment) {
			return true
		}
	}
	return false
}

type backend struct {
	mu        sync.Mutex
	validate  []api.ValidationResponse
	submit    func() (api.SubmissionResponse, error)
	submitted []api.FormSubmission
}

func (b *backend) Validate(context.Context, api.FormSubmission) (api.ValidationResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.validate) == 0 {
		return api.ValidationResponse{Valid: true}, nil
	}
	resp := b.validate[0]
	b.validate = b.validate[1:]
	return resp, nil
}

func (b *backend) Submit(_ context.Context, sub api.FormSubmission) (api.SubmissionResponse, error) {
	b.mu.Lock()
	b.submitted = append(b.submitted, sub)
	b.mu.Unlock()
	if b.submit == nil {
		return api.SubmissionResponse{Success: true, Message: "Thanks <b>!</b>"}, nil
	}
	return b.submit()
}

func profileSchema() schema.FormSchema {
	return schema.FormSchema{Categories: []schema.ParamCategory{{
		Name: "profile",
		Params: []schema.Param{
			{Name: "name", Type: schema.ParamTextField, Description: "Full <b>Name</b>", Required: true, Content: &schema.StringContent{}},
			{Name: "age", Type: schema.ParamNumberField, Description: "Age", Content: &schema.NumberContent{Kind: schema.ContentInteger}},
			{Name: "country", Type: schema.ParamList, Description: "Country", Required: true, Content: &schema.EnumContent{
				Values: []schema.EnumValue{{Label: "France", Value: "FR"}, {Label: "Germany", Value: "DE"}},
			}},
			{Name: "city", Type: schema.ParamSubList, Description: "City", Required: true, Content: &schema.DependentEnumContent{
				DependsOn: schema.StringList{"country"},
				Mapping: map[string][]schema.EnumValue{
					"FR": {{Label: "Paris", Value: "paris"}},
					"DE": {{Label: "Berlin", Value: "berlin"}},
				},
			}},
			{Name: "newsletter", Type: schema.ParamSwitch, Description: "Newsletter", Content: &schema.BooleanContent{}},
			{Name: "tags", Type: schema.ParamMultiSelect, Description: "Tags", Content: &schema.EnumContent{
				Multiple: true, MaxSelections: 2,
				Values: []schema.EnumValue{{Label: "A", Value: "a"}, {Label: "B", Value: "b"}, {Label: "C", Value: "c"}},
			}},
			{Name: "avatar", Type: schema.ParamFileUpload, Description: "Avatar"},
		},
	}}}
}

func run(t *testing.T, s schema.FormSchema, b form.Backend, source cascade.OptionSource) (*form.Runner, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	runner := form.NewRunner(form.NewSession(s, form.WithFormID("profile")), b, source)
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- runner.Run(runCtx) }()
	t.Cleanup(func() {
		stop()
		<-done
		cancel()
	})
	return runner, ctx
}

func TestFill_PromptsEveryFieldAndRetriesRejected(t *testing.T) {
	b := &backend{validate: []api.ValidationResponse{{
		Errors: []api.ValidationError{{Field: "name", Message: "Name is taken", Code: "taken"}},
	}}}
	runner, ctx := run(t, profileSchema(), b, nil)
	driver := &scriptDriver{
		inputs:   []string{"Ann", "abc", "30", "Bob"},
		selects:  []int{0, 0},
		confirms: []bool{true},
		multi:    [][]int{{0, 1}},
	}

	snap, err := New(WithPromptDriver(driver)).Fill(ctx, runner)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if snap.State != form.Success {
		t.Fatalf("expected success, got %s %q", snap.State, snap.Message)
	}
	if len(b.submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(b.submitted))
	}
	want := api.FormData{
		"name":       "Bob",
		"age":        float64(30),
		"country":    "FR",
		"city":       "paris",
		"newsletter": true,
		"tags":       []string{"a", "b"},
	}
	if diff := cmp.Diff(want, b.submitted[0].Data); diff != "" {
		t.Fatalf("submitted data mismatch (-want +got):\n%s", diff)
	}

	if driver.labels[0] != "Full Name *" {
		t.Fatalf("expected sanitised required label, got %q", driver.labels[0])
	}
	for _, fragment := range []string{"Skipping Avatar", "Invalid Age", "Name is taken", "Thanks !"} {
		if !driver.saw(fragment) {
			t.Fatalf("expected info containing %q, got %#v", fragment, driver.infos)
		}
	}
}

func TestFill_DeclinedRetryReturnsFailure(t *testing.T) {
	b := &backend{submit: func() (api.SubmissionResponse, error) {
		return api.SubmissionResponse{}, errors.New("connection refused")
	}}
	s := schema.FormSchema{Categories: []schema.ParamCategory{{
		Name:   "only",
		Params: []schema.Param{{Name: "email", Type: schema.ParamTextField, Content: &schema.StringContent{}}},
	}}}
	runner, ctx := run(t, s, b, nil)
	driver := &scriptDriver{inputs: []string{"a@b.c"}, confirms: []bool{true, false}}

	snap, err := New(WithPromptDriver(driver)).Fill(ctx, runner)
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}
	if snap.State != form.Failed || snap.Data["email"] != "a@b.c" {
		t.Fatalf("expected failed state with data kept, got %s %#v", snap.State, snap.Data)
	}
	if len(b.submitted) != 2 {
		t.Fatalf("expected a retried submission, got %d", len(b.submitted))
	}
	if driver.inputPos != 1 {
		t.Fatalf("retry must not re-prompt fields without errors")
	}
}

func TestFill_RetriesFailedOptionLoad(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	source := cascade.OptionSourceFunc(func(context.Context, cascade.Fetch) ([]schema.EnumValue, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return nil, errors.New("503")
		}
		return []schema.EnumValue{{Label: "Spain", Value: "ES"}}, nil
	})
	s := schema.FormSchema{Categories: []schema.ParamCategory{{
		Name: "only",
		Params: []schema.Param{{Name: "country", Type: schema.ParamList, Required: true, Content: &schema.EnumContent{
			Source: "/api/countries",
		}}},
	}}}
	b := &backend{}
	runner, ctx := run(t, s, b, source)
	driver := &scriptDriver{confirms: []bool{true}, selects: []int{0}}

	snap, err := New(WithPromptDriver(driver)).Fill(ctx, runner)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if snap.State != form.Success || b.submitted[0].Data["country"] != "ES" {
		t.Fatalf("unexpected outcome %s %#v", snap.State, b.submitted)
	}
}

func TestFill_EmptyDependentOptionsReturnToParent(t *testing.T) {
	s := schema.FormSchema{Categories: []schema.ParamCategory{{
		Name: "location",
		Params: []schema.Param{
			{Name: "country", Type: schema.ParamList, Description: "Country", Required: true, Content: &schema.EnumContent{
				Values: []schema.EnumValue{{Label: "France", Value: "FR"}, {Label: "Spain", Value: "ES"}},
			}},
			{Name: "city", Type: schema.ParamSubList, Description: "City", Required: true, Content: &schema.DependentEnumContent{
				DependsOn: schema.StringList{"country"},
				Mapping:   map[string][]schema.EnumValue{"FR": {{Label: "Paris", Value: "paris"}}},
			}},
		},
	}}}
	b := &backend{validate: []api.ValidationResponse{{
		Errors: []api.ValidationError{{Field: "city", Message: "City is required", Code: "required"}},
	}}}
	runner, ctx := run(t, s, b, nil)
	driver := &scriptDriver{selects: []int{1, 0, 0}}

	snap, err := New(WithPromptDriver(driver)).Fill(ctx, runner)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if snap.State != form.Success {
		t.Fatalf("expected success, got %s %q", snap.State, snap.Message)
	}
	if diff := cmp.Diff(api.FormData{"country": "FR", "city": "paris"}, b.submitted[0].Data); diff != "" {
		t.Fatalf("submitted data mismatch (-want +got):\n%s", diff)
	}
	if !driver.saw("No options available for City") {
		t.Fatalf("expected empty options notice, got %#v", driver.infos)
	}
	if diff := cmp.Diff([]string{"Country *", "Country *", "City *"}, driver.labels); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
}

func TestFill_GivesUpAfterRepeatedInvalidAnswers(t *testing.T) {
	runner, ctx := run(t, profileSchema(), &backend{}, nil)
	driver := &scriptDriver{inputs: []string{"Ann", "x", "y"}}

	_, err := New(WithPromptDriver(driver), WithMaxAttempts(2)).Fill(ctx, runner)
	if !errors.Is(err, ErrGaveUp) {
		t.Fatalf("expected ErrGaveUp, got %v", err)
	}
}

func TestPlainText(t *testing.T) {
	cases := map[string]string{
		"":                              "",
		"  Plain  ":                     "Plain",
		"<script>x()</script>Hi":        "Hi",
		"Terms &amp; <i>Conditions</i>": "Terms & Conditions",
		"a\n\n b":                       "a b",
	}
	for in, want := range cases {
		if got := plainText(in); got != want {
			t.Errorf("plainText(%q) = %q, want %q", in, got, want)
		}
	}
}
