package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/internal/catalog"
	"github.com/goliatone/go-formflow/internal/store"
	"github.com/goliatone/go-formflow/pkg/cascade"
	"github.com/goliatone/go-formflow/pkg/client"
	"github.com/goliatone/go-formflow/pkg/form"
)

func TestClientRunnerRoundTrip(t *testing.T) {
	registry, err := catalog.Examples()
	require.NoError(t, err)
	st := store.NewMemory()
	router, err := NewRouter(RouterConfig{Catalog: registry, Store: st})
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	c, err := client.New(srv.URL)
	require.NoError(t, err)
	s, err := c.GetSchema(ctx, "delivery_options")
	require.NoError(t, err)

	runner := form.NewRunner(form.NewSession(s, form.WithFormID("delivery_options")), c, c)
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- runner.Run(runCtx) }()
	t.Cleanup(func() {
		stop()
		assert.True(t, errors.Is(<-done, context.Canceled))
	})

	require.NoError(t, runner.Settle(ctx))
	snap, err := runner.Snapshot(ctx)
	require.NoError(t, err)
	country, _ := snap.Field("country")
	require.Equal(t, cascade.Ready, country.Status)
	require.Len(t, country.Options, 6)

	require.NoError(t, runner.Edit(ctx, "country", "GB"))
	require.NoError(t, runner.Settle(ctx))
	snap, err = runner.Snapshot(ctx)
	require.NoError(t, err)
	city, _ := snap.Field("city")
	require.Equal(t, cascade.Ready, city.Status)
	require.Len(t, city.Options, 4)

	require.NoError(t, runner.Edit(ctx, "city", "london"))
	accepted, err := runner.Submit(ctx)
	require.NoError(t, err)
	require.True(t, accepted)
	require.NoError(t, runner.Settle(ctx))

	snap, err = runner.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, form.Success, snap.State, snap.Message)
	assert.Empty(t, snap.Data)

	records, err := st.List(ctx, "delivery_options")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "london", records[0].Data["city"])
}

func TestClientRunnerServerRejects(t *testing.T) {
	registry, err := catalog.Examples()
	require.NoError(t, err)
	router, err := NewRouter(RouterConfig{Catalog: registry, Store: store.NewMemory()})
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	c, err := client.New(srv.URL)
	require.NoError(t, err)
	s, err := c.GetSchema(ctx, "delivery_options")
	require.NoError(t, err)

	session := form.NewSession(s, form.WithFormID("delivery_options"))
	runner := form.NewRunner(session, c, c)
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- runner.Run(runCtx) }()
	t.Cleanup(func() {
		stop()
		<-done
	})

	require.NoError(t, runner.Settle(ctx))
	_, err = runner.Submit(ctx)
	require.NoError(t, err)
	require.NoError(t, runner.Settle(ctx))

	snap, err := runner.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, form.Idle, snap.State)
	assert.Equal(t, CodeRequired, snap.Errors["country"].Code)
	assert.Equal(t, CodeRequired, snap.Errors["city"].Code)
}
