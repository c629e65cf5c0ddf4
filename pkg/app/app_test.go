package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amirasaad/awgen/internal/fixtures/mocks"
	"github.com/amirasaad/awgen/pkg/config"
	"github.com/amirasaad/awgen/pkg/domain"
	"github.com/amirasaad/awgen/pkg/domain/events"
	"github.com/amirasaad/awgen/pkg/domain/packet"
	"github.com/amirasaad/awgen/pkg/eventbus"
	"github.com/amirasaad/awgen/pkg/handler"
	"github.com/amirasaad/awgen/pkg/script"
	"github.com/amirasaad/awgen/pkg/socket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sinkMock struct {
	mock.Mock
}

func (m *sinkMock) CreateTileset(ctx context.Context, tileFiles []string, outputFile string) error {
	return m.Called(ctx, tileFiles, outputFile).Error(0)
}

func (m *sinkMock) SetTilesets(ctx context.Context, opaqueTilesetPath string) error {
	return m.Called(ctx, opaqueTilesetPath).Error(0)
}

func (m *sinkMock) SetBlock(ctx context.Context, pos [3]int32, model json.RawMessage) error {
	return m.Called(ctx, pos, model).Error(0)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newTestApp(t *testing.T, store *mocks.MockStore, opts ...Option) *App {
	t.Helper()
	cfg := &config.App{
		Env:     "test",
		Scripts: &config.Scripts{ProjectFolder: t.TempDir(), SocketBuffer: 8},
	}
	deps := &Deps{
		Settings: store,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return New(deps, cfg, opts...)
}

func serve(t *testing.T, a *App) handler.ExitStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	status, err := a.Serve(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Shutdown(ctx))
	return status
}

func TestApp_ReadyRestoresTilesetAndShutsDown(t *testing.T) {
	store := mocks.NewMockStore(t)
	store.On("All", mock.Anything).
		Return(map[string]string{SettingOpaqueTileset: "game://opaque.tiles"}, nil).Once()
	sink := &sinkMock{}
	sink.On("SetTilesets", mock.Anything, "game://opaque.tiles").Return(nil).Once()

	a := newTestApp(t, store, WithWorldSink(sink))
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.RequestShutdown())

	status := serve(t, a)
	assert.Equal(t, 0, status.Code)
	assert.Equal(t, "script requested shutdown", status.Reason)
	sink.AssertExpectations(t)
}

func TestApp_ImportAssetEvent(t *testing.T) {
	store := mocks.NewMockStore(t)
	store.On("All", mock.Anything).Return(map[string]string{}, nil).Once()
	a := newTestApp(t, store)

	src := filepath.Join(t.TempDir(), "grass.png")
	require.NoError(t, os.WriteFile(src, []byte("png"), 0o600))

	// Arguments arrive decoded from a JSON request body.
	var body struct {
		Args []any `json:"args"`
	}
	raw, err := json.Marshal(map[string]any{"args": []string{"game://tiles/grass.png", src}})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &body))

	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.SendEvent(string(EventImportAsset), body.Args))
	require.NoError(t, a.Host.Shutdown())

	serve(t, a)
	assert.FileExists(t, filepath.Join(a.Config.Scripts.ProjectFolder, "assets", "tiles", "grass.png"))
}

func TestApp_ImportAssetListenerPacketShape(t *testing.T) {
	store := mocks.NewMockStore(t)
	a := newTestApp(t, store)

	engineSock, client := socket.NewPair(4, nil)
	engine := script.NewEngine(engineSock, eventbus.New(), store)
	require.NoError(t, engine.Start(context.Background(), func(ctx context.Context, rt *script.Runtime) error {
		a.setupEventBus(rt)
		return rt.Bus().Emit(ctx, events.Custom{
			Name: EventImportAsset,
			Args: []any{"game://a.png", "/tmp/a.png"},
		})
	}))
	require.NoError(t, engine.Wait())

	p, ok, err := client.Recv()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, packet.ImportAsset{File: "/tmp/a.png", AssetPath: "game://a.png"}, p)
}

func TestApp_SendEventRejectsReservedNames(t *testing.T) {
	store := mocks.NewMockStore(t)
	a := newTestApp(t, store)
	for _, name := range []string{"", "ready", "shutdown", "packet"} {
		err := a.SendEvent(name, nil)
		assert.ErrorIs(t, err, domain.ErrValidation, name)
		assert.ErrorIs(t, err, events.ErrReservedKey, name)
	}
}

func TestApp_SetSettingEvent(t *testing.T) {
	store := mocks.NewMockStore(t)
	store.On("All", mock.Anything).Return(map[string]string{}, nil).Once()
	store.On("SetSetting", mock.Anything, "volume", mock.MatchedBy(func(v *string) bool {
		return v != nil && *v == "7"
	})).Return(nil).Once()
	store.On("SetSetting", mock.Anything, "theme", (*string)(nil)).Return(nil).Once()
	a := newTestApp(t, store)

	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.SendEvent(string(EventSetSetting), []any{"volume", float64(7)}))
	require.NoError(t, a.SendEvent(string(EventSetSetting), []any{"theme", nil}))
	// Bad arguments are logged by the runtime and do not stop it.
	require.NoError(t, a.SendEvent(string(EventSetSetting), []any{42}))
	require.NoError(t, a.Host.Shutdown())

	assert.Equal(t, 0, serve(t, a).Code)
}

func TestApp_CustomScriptCrash(t *testing.T) {
	store := mocks.NewMockStore(t)
	a := newTestApp(t, store, WithScript(func(context.Context, *script.Runtime) error {
		return errors.New("script failed to load")
	}))

	require.NoError(t, a.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	status, err := a.Serve(ctx)
	require.NoError(t, err)
	assert.Equal(t, handler.ExitStatus{Code: 1, Reason: "script failed to load"}, status)

	assert.EqualError(t, a.Shutdown(ctx), "script failed to load")
	assert.ErrorIs(t, a.SendEvent("late", nil), domain.ErrUnavailable)
	assert.ErrorIs(t, a.RequestShutdown(), domain.ErrUnavailable)
}

func TestApp_Close(t *testing.T) {
	store := mocks.NewMockStore(t)
	a := newTestApp(t, store)
	a.Deps.Closers = []io.Closer{
		closerFunc(func() error { return errors.New("db") }),
		closerFunc(func() error { return nil }),
		closerFunc(func() error { return errors.New("redis") }),
	}

	err := a.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
	assert.Contains(t, err.Error(), "redis")
}
