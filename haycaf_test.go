package haycaf

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SethEden/Hay-CAF/sockets"
	"github.com/SethEden/Hay-CAF/types"
)

type mockServer struct {
	mock.Mock
}

func (m *mockServer) Connect(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *mockServer) GetTestResult(ctx context.Context, timeout time.Duration) (types.TestResult, error) {
	args := m.Called(timeout)
	return args.Get(0).(types.TestResult), args.Error(1)
}

func (m *mockServer) ServerHasEndedCallback(ctx context.Context, cb func(failed bool), timeout time.Duration) error {
	args := m.Called(timeout)
	ended := args.Bool(0)
	cb(!ended)
	return args.Error(1)
}

func (m *mockServer) SessionID() string {
	return m.Called().String(0)
}

func (m *mockServer) Terminate() {
	m.Called()
}

func (m *mockServer) Quit() {
	m.Called()
}

func testConfig() *Config {
	socket := sockets.DefaultConfig()
	socket.Port = 0
	socket.Prompt = nil
	return &Config{
		Socket:        socket,
		ResultTimeout: time.Second,
		RunOnce:       true,
		Log:           log.NewLogger(log.DiscardHandler()),
	}
}

func newMockServer(result types.TestResult, resultErr error, ended bool) *mockServer {
	m := &mockServer{}
	m.On("Connect").Return(nil)
	m.On("GetTestResult", time.Second).Return(result, resultErr)
	m.On("SessionID").Return("session-1")
	m.On("ServerHasEndedCallback", sockets.DefaultServerEndedTimeout).Return(ended, nil).Maybe()
	m.On("Terminate").Return().Maybe()
	m.On("Quit").Return().Maybe()
	return m
}

func TestHayCAF_RunOnceExitCodes(t *testing.T) {
	testCases := []struct {
		name        string
		result      types.TestResult
		resultErr   error
		wantFailure bool
		wantRuntime bool
	}{
		{name: "pass", result: types.TestResultPass},
		{name: "warning", result: types.TestResultWarning},
		{name: "fail", result: types.TestResultFail, wantFailure: true},
		{name: "timeout", resultErr: sockets.ErrResultTimeout, wantRuntime: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := newMockServer(tc.result, tc.resultErr, true)
			shutdown := make(chan error, 1)
			h := newHayCAF(testConfig(), "test", server, func(err error) { shutdown <- err })

			err := h.Start(context.Background())
			assert.Equal(t, tc.wantFailure, IsTestFailureError(err))
			assert.Equal(t, tc.wantRuntime, IsRuntimeError(err))

			if !tc.wantFailure && !tc.wantRuntime {
				require.NoError(t, err)
				select {
				case err := <-shutdown:
					assert.NoError(t, err)
				case <-time.After(time.Second):
					t.Fatal("shutdown callback not called")
				}
			}
			if tc.wantRuntime {
				assert.ErrorIs(t, err, sockets.ErrResultTimeout)
				server.AssertCalled(t, "Terminate")
			}

			require.NotNil(t, h.Result())
			assert.Equal(t, "session-1", h.Result().SessionID)
		})
	}
}

func TestHayCAF_HarnessDidNotEnd(t *testing.T) {
	server := newMockServer(types.TestResultPass, nil, false)
	h := newHayCAF(testConfig(), "test", server, func(error) {})

	require.NoError(t, h.Start(context.Background()))
	server.AssertCalled(t, "Terminate")
	assert.False(t, h.Result().HarnessEnded)
	assert.Equal(t, types.TestResultPass, h.Result().Result)
}

func TestHayCAF_HarnessEnded(t *testing.T) {
	server := newMockServer(types.TestResultPass, nil, true)
	h := newHayCAF(testConfig(), "test", server, func(error) {})

	require.NoError(t, h.Start(context.Background()))
	server.AssertNotCalled(t, "Terminate")
	assert.True(t, h.Result().HarnessEnded)
}

func TestHayCAF_ConnectError(t *testing.T) {
	server := &mockServer{}
	server.On("Connect").Return(errors.New("boom"))
	h := newHayCAF(testConfig(), "test", server, func(error) {})

	err := h.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
	assert.Nil(t, h.Result())
}

func TestHayCAF_Stop(t *testing.T) {
	server := newMockServer(types.TestResultPass, nil, true)
	cfg := testConfig()
	cfg.RunOnce = false
	cfg.RunInterval = time.Hour
	h := newHayCAF(cfg, "test", server, func(error) {})

	require.NoError(t, h.Start(context.Background()))
	assert.False(t, h.Stopped())

	require.NoError(t, h.Stop(context.Background()))
	assert.True(t, h.Stopped())
	server.AssertCalled(t, "Quit")

	// stopping twice is harmless
	require.NoError(t, h.Stop(context.Background()))
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil, "test", func(error) {})
	require.Error(t, err)
}

// TestHayCAF_WithSocketServer drives one run against a real socket server.
func TestHayCAF_WithSocketServer(t *testing.T) {
	cfg := testConfig()
	cfg.ResultTimeout = 5 * time.Second
	cfg.Socket.ServerEndedTimeout = 2 * time.Second
	server := sockets.New(cfg.Socket, cfg.Log, nil)
	defer server.Terminate()
	h := newHayCAF(cfg, "test", server, func(error) {})

	go func() {
		var addr string
		for i := 0; i < 200 && addr == ""; i++ {
			if server.State() == sockets.StateListening {
				addr = server.Addr()
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return
		}
		_, _ = conn.Write([]byte(`{"message":"[TestResultsLog] Test_Checkout: pass"}##END##`))
		time.Sleep(50 * time.Millisecond)
		_ = conn.Close()
	}()

	require.NoError(t, h.Start(context.Background()))
	result := h.Result()
	require.NotNil(t, result)
	assert.Equal(t, types.TestResultPass, result.Result)
	assert.True(t, result.HarnessEnded)
	assert.NotEmpty(t, result.SessionID)
	assert.False(t, result.Failed())
}
