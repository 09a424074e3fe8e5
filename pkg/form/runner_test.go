package form

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/cascade"
	"github.com/goliatone/go-formflow/pkg/schema"
)

type fakeBackend struct {
	mu        sync.Mutex
	validate  func(api.FormSubmission) (api.ValidationResponse, error)
	submit    func(api.FormSubmission) (api.SubmissionResponse, error)
	validated []api.FormSubmission
	submitted []api.FormSubmission
}

func (b *fakeBackend) Validate(_ context.Context, sub api.FormSubmission) (api.ValidationResponse, error) {
	b.mu.Lock()
	b.validated = append(b.validated, sub)
	b.mu.Unlock()
	if b.validate == nil {
		return api.ValidationResponse{Valid: true}, nil
	}
	return b.validate(sub)
}

func (b *fakeBackend) Submit(_ context.Context, sub api.FormSubmission) (api.SubmissionResponse, error) {
	b.mu.Lock()
	b.submitted = append(b.submitted, sub)
	b.mu.Unlock()
	if b.submit == nil {
		return api.SubmissionResponse{Success: true}, nil
	}
	return b.submit(sub)
}

func remoteCitySchema() schema.FormSchema {
	return schema.FormSchema{Categories: []schema.ParamCategory{{
		Name: "location",
		Params: []schema.Param{
			{Name: "email", Type: schema.ParamTextField, Content: &schema.StringContent{}},
			{Name: "country", Type: schema.ParamList, Content: &schema.EnumContent{
				Source: "/api/countries",
				Values: []schema.EnumValue{{Label: "Fallback", Value: "XX"}},
			}},
			{Name: "city", Type: schema.ParamSubList, Content: &schema.DependentEnumContent{
				DependsOn: schema.StringList{"country"},
				Source:    "/api/cities?country={country}",
			}},
		},
	}}}
}

var citySource = cascade.StaticSource{
	"/api/countries":         {{Label: "France", Value: "FR"}, {Label: "Germany", Value: "DE"}},
	"/api/cities?country=FR": {{Label: "Paris", Value: "paris"}},
	"/api/cities?country=DE": {{Label: "Berlin", Value: "berlin"}},
}

func startRunner(t *testing.T, backend Backend, source cascade.OptionSource, opts ...RunnerOption) *Runner {
	t.Helper()
	runner := NewRunner(NewSession(remoteCitySchema(), WithFormID("location_selector")), backend, source, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected run error: %v", err)
		}
	})
	return runner
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunner_LoadsRemoteAndDependentOptions(t *testing.T) {
	ctx := testContext(t)
	runner := startRunner(t, &fakeBackend{}, citySource)

	if err := runner.Settle(ctx); err != nil {
		t.Fatalf("settle: %v", err)
	}
	snap, _ := runner.Snapshot(ctx)
	country, _ := snap.Field("country")
	if country.Status != cascade.Ready || len(country.Options) != 2 {
		t.Fatalf("expected remote countries loaded, got %#v", country)
	}

	if err := runner.Edit(ctx, "country", "FR"); err != nil {
		t.Fatalf("edit country: %v", err)
	}
	if err := runner.Settle(ctx); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if err := runner.Edit(ctx, "city", "paris"); err != nil {
		t.Fatalf("edit city: %v", err)
	}

	if err := runner.Edit(ctx, "country", "DE"); err != nil {
		t.Fatalf("edit country: %v", err)
	}
	if err := runner.Settle(ctx); err != nil {
		t.Fatalf("settle: %v", err)
	}
	snap, _ = runner.Snapshot(ctx)
	city, _ := snap.Field("city")
	if _, present := snap.Data["city"]; present {
		t.Fatalf("expected city cleared after parent change")
	}
	if len(city.Options) != 1 || city.Options[0].Value != "berlin" {
		t.Fatalf("expected Berlin options, got %#v", city.Options)
	}
}

func TestRunner_FailedLoadIsRetryable(t *testing.T) {
	ctx := testContext(t)
	var (
		mu    sync.Mutex
		calls int
	)
	flaky := cascade.OptionSourceFunc(func(ctx context.Context, fetch cascade.Fetch) ([]schema.EnumValue, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return nil, errors.New("503")
		}
		return citySource.FetchOptions(ctx, fetch)
	})
	runner := startRunner(t, &fakeBackend{}, flaky)
	if err := runner.Settle(ctx); err != nil {
		t.Fatalf("settle: %v", err)
	}

	snap, _ := runner.Snapshot(ctx)
	country, _ := snap.Field("country")
	if country.Status != cascade.Failed || country.LoadErr == nil {
		t.Fatalf("expected failed load, got %#v", country)
	}
	if len(country.Options) != 1 || country.Options[0].Value != "XX" {
		t.Fatalf("expected fallback options, got %#v", country.Options)
	}

	if err := runner.RetryOptions(ctx, "country"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if err := runner.Settle(ctx); err != nil {
		t.Fatalf("settle: %v", err)
	}
	snap, _ = runner.Snapshot(ctx)
	country, _ = snap.Field("country")
	if country.Status != cascade.Ready || len(country.Options) != 2 {
		t.Fatalf("expected retried load ready, got %#v", country)
	}
}

func TestRunner_SubmitSuccess(t *testing.T) {
	ctx := testContext(t)
	backend := &fakeBackend{
		submit: func(api.FormSubmission) (api.SubmissionResponse, error) {
			return api.SubmissionResponse{Success: true, Message: "ok", Data: map[string]any{"submissionId": "1"}}, nil
		},
	}
	results := make(chan any, 1)
	runner := startRunner(t, backend, citySource, WithHooks(Hooks{
		OnSuccess: func(result any) { results <- result },
	}))
	if err := runner.Settle(ctx); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if err := runner.Edit(ctx, "email", "a@b.c"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	accepted, err := runner.Submit(ctx)
	if err != nil || !accepted {
		t.Fatalf("expected submit accepted, got %v %v", accepted, err)
	}
	if err := runner.Settle(ctx); err != nil {
		t.Fatalf("settle: %v", err)
	}

	select {
	case result := <-results:
		if result.(map[string]any)["submissionId"] != "1" {
			t.Fatalf("unexpected result %#v", result)
		}
	default:
		t.Fatalf("expected OnSuccess hook")
	}

	snap, _ := runner.Snapshot(ctx)
	if snap.State != Success || snap.Message != "ok" || len(snap.Data) != 0 {
		t.Fatalf("unexpected snapshot %s %q %#v", snap.State, snap.Message, snap.Data)
	}
	if len(backend.validated) != 1 || len(backend.submitted) != 1 {
		t.Fatalf("expected one validate and one submit, got %d/%d", len(backend.validated), len(backend.submitted))
	}
	if backend.submitted[0].FormID != "location_selector" || backend.submitted[0].Data["email"] != "a@b.c" {
		t.Fatalf("unexpected submission %#v", backend.submitted[0])
	}
}

func TestRunner_InvalidDoesNotSubmit(t *testing.T) {
	ctx := testContext(t)
	backend := &fakeBackend{
		validate: func(api.FormSubmission) (api.ValidationResponse, error) {
			return api.ValidationResponse{Errors: []api.ValidationError{{Field: "email", Message: "invalid", Code: "E1"}}}, nil
		},
	}
	runner := startRunner(t, backend, citySource)
	if _, err := runner.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := runner.Settle(ctx); err != nil {
		t.Fatalf("settle: %v", err)
	}
	snap, _ := runner.Snapshot(ctx)
	if snap.State != Idle || snap.Errors["email"].Code != "E1" {
		t.Fatalf("expected Idle with email error, got %s %#v", snap.State, snap.Errors)
	}
	if len(backend.submitted) != 0 {
		t.Fatalf("submit must not be called after invalid validation")
	}
}

func TestRunner_TransportErrorHook(t *testing.T) {
	ctx := testContext(t)
	boom := errors.New("dial tcp: refused")
	backend := &fakeBackend{
		validate: func(api.FormSubmission) (api.ValidationResponse, error) {
			return api.ValidationResponse{}, boom
		},
	}
	failures := make(chan *SubmissionError, 1)
	runner := startRunner(t, backend, citySource, WithHooks(Hooks{
		OnError: func(err *SubmissionError) { failures <- err },
	}))
	if _, err := runner.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := runner.Settle(ctx); err != nil {
		t.Fatalf("settle: %v", err)
	}
	select {
	case failure := <-failures:
		if failure.Reported || !errors.Is(failure, boom) {
			t.Fatalf("unexpected failure %#v", failure)
		}
	default:
		t.Fatalf("expected OnError hook")
	}
	snap, _ := runner.Snapshot(ctx)
	if snap.Message != MessageSubmitError {
		t.Fatalf("expected generic message, got %q", snap.Message)
	}
}

func TestRunner_StoppedRunnerRejectsCalls(t *testing.T) {
	runner := NewRunner(NewSession(remoteCitySchema()), &fakeBackend{}, citySource)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := runner.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled run, got %v", err)
	}
	if err := runner.Edit(context.Background(), "email", "x"); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
