package script

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirasaad/awgen/internal/fixtures/mocks"
	"github.com/amirasaad/awgen/pkg/domain/events"
	"github.com/amirasaad/awgen/pkg/domain/packet"
	"github.com/amirasaad/awgen/pkg/eventbus"
	"github.com/amirasaad/awgen/pkg/socket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObservePacket(direction, packetType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[string]int{}
	}
	o.counts[direction+":"+packetType]++
}

func (o *countingObserver) get(k string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[k]
}

func setup(t *testing.T) (*Engine, *socket.Client, *eventbus.Bus, *mocks.MockStore) {
	t.Helper()
	sockEngine, client := socket.NewPair(8, nil)
	bus := eventbus.New()
	store := mocks.NewMockStore(t)
	return NewEngine(sockEngine, bus, store), client, bus, store
}

func waitDone(t *testing.T, e *Engine) error {
	t.Helper()
	select {
	case <-e.Done():
		return e.Wait()
	case <-time.After(2 * time.Second):
		t.Fatal("script did not finish")
		return nil
	}
}

func TestRun_InitEmitsReadyWithSettings(t *testing.T) {
	engine, client, bus, store := setup(t)
	store.On("All", mock.Anything).Return(map[string]string{"theme": "dark"}, nil).Once()

	var (
		order []string
		ready events.Ready
	)
	bus.OnFunc(events.KeyPacket, func(_ context.Context, e eventbus.Event) error {
		order = append(order, "packet:"+e.(events.PacketReceived).Packet.Type().String())
		return nil
	})
	eventbus.Subscribe(bus, func(_ context.Context, r events.Ready) error {
		order = append(order, "ready")
		ready = r
		return nil
	})
	eventbus.Subscribe(bus, func(_ context.Context, s events.Shutdown) error {
		order = append(order, "shutdown")
		return nil
	})

	require.NoError(t, engine.Start(context.Background(), Pump))
	require.NoError(t, client.Send(packet.Init{ProjectFolder: "/games/demo"}))
	require.NoError(t, client.Shutdown())

	require.NoError(t, waitDone(t, engine))
	assert.Equal(t, []string{"packet:init", "ready", "packet:shutdown", "shutdown"}, order)
	assert.Equal(t, "/games/demo", ready.ProjectFolder)
	v, ok := ready.Setting("theme")
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestRun_EventPacketEmitsCustom(t *testing.T) {
	engine, client, bus, _ := setup(t)

	got := make(chan events.Custom, 1)
	bus.OnFunc("level.loaded", func(_ context.Context, e eventbus.Event) error {
		got <- e.(events.Custom)
		return nil
	})

	require.NoError(t, engine.Start(context.Background(), Pump))
	require.NoError(t, client.Send(packet.Event{Name: "level.loaded", Args: []any{"forest", 2}}))
	client.Close()

	require.NoError(t, waitDone(t, engine))
	c := <-got
	assert.Equal(t, "forest", c.Arg(0))
	assert.Equal(t, 2, c.Arg(1))
}

func TestRun_EventWithReservedNameIsDropped(t *testing.T) {
	engine, client, bus, store := setup(t)
	store.On("All", mock.Anything).Return(map[string]string{}, nil).Once()

	var readies, shutdowns, packets int
	eventbus.Subscribe(bus, func(context.Context, events.Ready) error {
		readies++
		return nil
	})
	eventbus.Subscribe(bus, func(context.Context, events.Shutdown) error {
		shutdowns++
		return nil
	})
	eventbus.Subscribe(bus, func(context.Context, events.PacketReceived) error {
		packets++
		return nil
	})

	require.NoError(t, engine.Start(context.Background(), Pump))
	for _, name := range []string{"ready", "shutdown", "packet"} {
		require.NoError(t, client.Send(packet.Event{Name: name}))
	}
	require.NoError(t, client.Send(packet.Init{ProjectFolder: "/p"}))
	client.Close()

	require.NoError(t, waitDone(t, engine))
	assert.Equal(t, 1, readies)
	assert.Zero(t, shutdowns)
	assert.Equal(t, 4, packets)
}

func TestRun_HandlerErrorDoesNotStopLoop(t *testing.T) {
	engine, client, bus, _ := setup(t)

	var calls int
	bus.OnFunc("boom", func(context.Context, eventbus.Event) error {
		calls++
		return errors.New("handler failed")
	})

	require.NoError(t, engine.Start(context.Background(), Pump))
	require.NoError(t, client.Send(packet.Event{Name: "boom"}))
	require.NoError(t, client.Send(packet.Event{Name: "boom"}))
	require.NoError(t, client.Shutdown())

	require.NoError(t, waitDone(t, engine))
	assert.Equal(t, 2, calls)
}

func TestStart_ScriptErrorSendsCrashed(t *testing.T) {
	engine, client, _, _ := setup(t)
	boom := errors.New("syntax error in main")

	require.NoError(t, engine.Start(context.Background(), func(context.Context, *Runtime) error {
		return boom
	}))

	err := waitDone(t, engine)
	assert.ErrorIs(t, err, boom)

	var got []packet.In
	for p := range client.Packets() {
		got = append(got, p)
	}
	assert.Equal(t, []packet.In{packet.Crashed{Error: "syntax error in main"}}, got)
}

func TestStart_ScriptPanicSendsCrashed(t *testing.T) {
	engine, client, _, _ := setup(t)

	require.NoError(t, engine.Start(context.Background(), func(context.Context, *Runtime) error {
		panic("nil map")
	}))

	err := waitDone(t, engine)
	assert.ErrorIs(t, err, ErrScriptPanic)

	p, ok := <-client.Packets()
	require.True(t, ok)
	crashed, isCrashed := p.(packet.Crashed)
	require.True(t, isCrashed)
	assert.Contains(t, crashed.Error, "nil map")
}

func TestStart_Twice(t *testing.T) {
	engine, client, _, _ := setup(t)
	require.NoError(t, engine.Start(context.Background(), Pump))
	assert.ErrorIs(t, engine.Start(context.Background(), Pump), ErrAlreadyStarted)
	client.Close()
	require.NoError(t, waitDone(t, engine))
}

func TestRun_ContextCancelled(t *testing.T) {
	engine, client, _, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, engine.Start(ctx, Pump))
	cancel()

	assert.ErrorIs(t, waitDone(t, engine), context.Canceled)
	_, open := <-client.Packets()
	assert.False(t, open, "cancellation is not reported as a crash")
}

func TestRuntime_SendPacketsAndSettings(t *testing.T) {
	sockEngine, client := socket.NewPair(8, nil)
	store := mocks.NewMockStore(t)
	obs := &countingObserver{}
	engine := NewEngine(sockEngine, eventbus.New(), store, WithObserver(obs))

	value := "7"
	store.On("GetSetting", mock.Anything, "volume").Return(&value, nil).Once()
	store.On("SetSetting", mock.Anything, "volume", (*string)(nil)).Return(nil).Once()

	require.NoError(t, engine.Start(context.Background(), func(ctx context.Context, rt *Runtime) error {
		v, err := rt.GetSetting(ctx, "volume")
		if err != nil {
			return err
		}
		if err := rt.SetSetting(ctx, "volume", nil); err != nil {
			return err
		}
		return rt.SendPackets(
			packet.ImportAsset{File: "/tmp/a.png", AssetPath: "game://a.png"},
			packet.Crashed{Error: *v},
		)
	}))
	require.NoError(t, waitDone(t, engine))

	p, ok := <-client.Packets()
	require.True(t, ok)
	set, isSet := p.(packet.Set)
	require.True(t, isSet)
	assert.Len(t, set.Packets, 2)
	assert.Equal(t, 1, obs.get("in:importAsset"))
	assert.Equal(t, 1, obs.get("in:crashed"))
}

func TestRuntime_ReadyFailsWhenSettingsUnavailable(t *testing.T) {
	engine, client, _, store := setup(t)
	store.On("All", mock.Anything).Return(nil, errors.New("db locked")).Once()

	require.NoError(t, engine.Start(context.Background(), Pump))
	require.NoError(t, client.Send(packet.Init{ProjectFolder: "/p"}))

	err := waitDone(t, engine)
	assert.ErrorContains(t, err, "load settings")
}

func TestRuntime_WaitForReadyInsideScript(t *testing.T) {
	engine, client, _, store := setup(t)
	store.On("All", mock.Anything).Return(map[string]string{}, nil).Once()

	folder := make(chan string, 1)
	require.NoError(t, engine.Start(context.Background(), func(ctx context.Context, rt *Runtime) error {
		go func() {
			r, err := eventbus.WaitForEvent[events.Ready](ctx, rt.Bus())
			if err == nil {
				folder <- r.ProjectFolder
			}
		}()
		return rt.Run(ctx)
	}))

	// Give the waiter time to register before init is sent.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, client.Send(packet.Init{ProjectFolder: "/p"}))

	select {
	case f := <-folder:
		assert.Equal(t, "/p", f)
	case <-time.After(2 * time.Second):
		t.Fatal("ready was not observed")
	}
	require.NoError(t, client.Shutdown())
	require.NoError(t, waitDone(t, engine))
}
