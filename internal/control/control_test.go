package control_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/powerhald/internal/codec"
	"codeberg.org/mutker/powerhald/internal/control"
	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/hint"
	"codeberg.org/mutker/powerhald/internal/logger"
	"codeberg.org/mutker/powerhald/internal/power"
	"codeberg.org/mutker/powerhald/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	Name    string
	Kind    hint.Kind
	Payload int32
	On      bool
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (d *fakeDispatcher) record(c call) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, c)
}

func (d *fakeDispatcher) recorded() []call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]call(nil), d.calls...)
}

func (d *fakeDispatcher) SetInteractive(_ context.Context, on bool) {
	d.record(call{Name: "interactive", On: on})
}

func (d *fakeDispatcher) PowerHint(_ context.Context, kind hint.Kind, payload int32) error {
	d.record(call{Name: "hint", Kind: kind, Payload: payload})
	return d.err
}

func (d *fakeDispatcher) GetFeature(f power.Feature) int32 {
	if f == power.FeatureSupportedProfiles {
		return int32(profile.Max)
	}
	return power.FeatureUnsupported
}

func (d *fakeDispatcher) SetFeature(_ context.Context, f power.Feature, _ int32) error {
	return errors.New().WithData(errors.ErrUnsupported, f.String())
}

func (d *fakeDispatcher) Status() power.Status {
	return power.Status{
		Profile:       "balanced",
		ProfileID:     1,
		Interactive:   true,
		HintIntervals: map[string]string{"interaction": "90ms"},
	}
}

// socketPath returns a path short enough for sun_path.
func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "phd")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s")
}

func serve(t *testing.T, d control.Dispatcher) (*control.Client, string) {
	t.Helper()

	path := socketPath(t)
	server := control.NewSocketServer(path, logger.Nop())
	control.Register(server, d)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	return control.NewClient(path, 5*time.Second), path
}

func TestActionsReachDispatcher(t *testing.T) {
	d := &fakeDispatcher{}
	client, _ := serve(t, d)
	ctx := context.Background()

	require.NoError(t, client.Hint(ctx, hint.Launch, 0))
	require.NoError(t, client.SetInteractive(ctx, false))
	require.NoError(t, client.SetProfile(ctx, profile.HighPerformance))

	assert.Equal(t, []call{
		{Name: "hint", Kind: hint.Launch},
		{Name: "interactive", On: false},
		{Name: "hint", Kind: hint.SetProfile, Payload: int32(profile.HighPerformance)},
	}, d.recorded())
}

func TestStatusRoundTrip(t *testing.T) {
	client, _ := serve(t, &fakeDispatcher{})

	status, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "balanced", status.Profile)
	assert.True(t, status.Interactive)
	assert.Equal(t, map[string]string{"interaction": "90ms"}, status.HintIntervals)
}

func TestFeatures(t *testing.T) {
	client, _ := serve(t, &fakeDispatcher{})
	ctx := context.Background()

	value, err := client.GetFeature(ctx, power.FeatureSupportedProfiles)
	require.NoError(t, err)
	assert.Equal(t, int32(profile.Max), value)

	err = client.SetFeature(ctx, power.FeatureDoubleTapToWake, 1)
	assert.True(t, errors.HasCode(err, errors.ErrUnsupported))
}

func TestErrorCodesCrossTheWire(t *testing.T) {
	d := &fakeDispatcher{err: errors.New().WithData(hint.ErrInvalidHint, "hint(0x200)")}
	client, _ := serve(t, d)

	err := client.Hint(context.Background(), 0x200, 0)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, hint.ErrInvalidHint))
	assert.Contains(t, err.Error(), "hint(0x200)")
}

func TestMissingInteractiveFlag(t *testing.T) {
	client, _ := serve(t, &fakeDispatcher{})

	err := client.Call(context.Background(), control.ActionInteractive, nil, nil)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}

func TestMissingProfileField(t *testing.T) {
	d := &fakeDispatcher{}
	client, _ := serve(t, d)
	ctx := context.Background()

	err := client.Call(ctx, control.ActionProfile, nil, nil)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))

	err = client.Call(ctx, control.ActionHint, map[string]any{"kind": uint32(hint.SetProfile)}, nil)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))

	assert.Empty(t, d.recorded(), "nothing reaches the dispatcher")
}

func TestPayloadDefaultsToZero(t *testing.T) {
	d := &fakeDispatcher{}
	client, _ := serve(t, d)

	err := client.Call(context.Background(), control.ActionHint, map[string]any{"kind": uint32(hint.Interaction)}, nil)
	require.NoError(t, err)

	calls := d.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, hint.Interaction, calls[0].Kind)
	assert.Zero(t, calls[0].Payload)
}

func TestUnknownAction(t *testing.T) {
	client, _ := serve(t, &fakeDispatcher{})

	err := client.Call(context.Background(), "reboot", nil, nil)
	assert.True(t, errors.HasCode(err, errors.ErrNotImplemented))
}

func TestMalformedRequest(t *testing.T) {
	_, path := serve(t, &fakeDispatcher{})

	var conn net.Conn
	require.Eventually(t, func() bool {
		var err error
		conn, err = net.Dial("unix", path)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	defer conn.Close()

	_, err := conn.Write([]byte{0xff})
	require.NoError(t, err)
	conn.(*net.UnixConn).CloseWrite()

	var response control.Response
	require.NoError(t, codec.NewDecoder(conn).Decode(&response))
	assert.False(t, response.OK)
	assert.Equal(t, string(errors.ErrInvalidArgument), response.Code)
}

func TestClientWithoutServer(t *testing.T) {
	client := control.NewClient(socketPath(t), 0)

	err := client.Hint(context.Background(), hint.Launch, 0)
	assert.True(t, errors.HasCode(err, errors.ErrControlRequest))
}

func TestClientWaitsForSocket(t *testing.T) {
	path := socketPath(t)
	client := control.NewClient(path, 5*time.Second)
	d := &fakeDispatcher{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		time.Sleep(100 * time.Millisecond)
		server := control.NewSocketServer(path, logger.Nop())
		control.Register(server, d)
		server.Serve(ctx)
	}()

	require.NoError(t, client.SetInteractive(context.Background(), true))
	assert.Len(t, d.recorded(), 1)
}

func TestServeRemovesSocketOnShutdown(t *testing.T) {
	path := socketPath(t)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	server := control.NewSocketServer(path, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	require.Eventually(t, func() bool {
		info, err := os.Stat(path)
		return err == nil && info.Mode()&os.ModeSocket != 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
