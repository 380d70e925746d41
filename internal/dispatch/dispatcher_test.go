package dispatch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macclient/internal/batch"
	"macclient/internal/macservice"
	"macclient/internal/output"
	"macclient/internal/session"
	"macclient/internal/testutils"
)

type harness struct {
	factory    *testutils.StubFactory
	state      *session.State
	out        *output.CaptureBuffer
	usage      *bytes.Buffer
	logs       *bytes.Buffer
	dispatcher *Dispatcher
}

func newHarness(t *testing.T, configure func(*testutils.StubService)) *harness {
	t.Helper()
	h := &harness{
		factory: &testutils.StubFactory{Configure: configure},
		usage:   &bytes.Buffer{},
		logs:    testutils.CaptureLogs(t),
	}

	state, err := session.New(h.factory.Factory(), session.Config{})
	require.NoError(t, err)
	h.state = state

	printer, out := output.NewCapturePrinter()
	h.out = out
	clock := &testutils.Clock{}
	ids := &testutils.IDSequence{}
	processor := batch.NewProcessor(printer, batch.WithClock(clock.Now), batch.WithRunIDs(ids.NewID))
	h.dispatcher = New(state, processor, printer, WithUsageWriter(h.usage))
	return h
}

func (h *harness) run(tokens ...string) error {
	return h.dispatcher.Run(context.Background(), tokens)
}

func TestRun_VersionModeAndLiteral(t *testing.T) {
	h := newHarness(t, func(s *testutils.StubService) {
		s.Responses["HLA-A*01:MN"] = "HLA-A*01:01/HLA-A*01:02"
	})

	require.NoError(t, h.run("--hla=3.22.0", "expand", "HLA-A*01:MN"))

	stub := h.factory.Last()
	assert.Equal(t, []testutils.Call{{Method: "expand", Version: "3.22.0", Input: "HLA-A*01:MN"}}, stub.Calls)
	assert.Equal(t, []string{
		"switch to: expand",
		"HLA-A*01:MN expand to HLA-A*01:01/HLA-A*01:02",
	}, h.out.Lines())
	assert.Equal(t, 1, stub.CloseCount)
}

func TestRun_NoTokens(t *testing.T) {
	h := newHarness(t, nil)

	err := h.run()
	assert.ErrorIs(t, err, ErrNoTokens)
	assert.Contains(t, h.usage.String(), "Usage: macclient")
	assert.Contains(t, h.usage.String(), "Sample args:")
	assert.Empty(t, h.out.Lines())
	assert.Empty(t, h.factory.Last().Calls)
	assert.Equal(t, 1, h.factory.Last().CloseCount)
}

func TestRun_ProxyAppliesAtNextURL(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.run(
		"--proxy=socks5://proxy.example.com:1080",
		"--url=http://localhost:8080/mac/api",
		"decode",
		"HLA-A*01:AB",
	))

	require.Len(t, h.factory.Created, 2)
	first, second := h.factory.Created[0], h.factory.Created[1]
	assert.Nil(t, first.Proxy)
	assert.Equal(t, 1, first.CloseCount)
	assert.Empty(t, first.Calls)

	assert.Equal(t, "http://localhost:8080/mac/api", second.Endpoint)
	assert.Equal(t, &macservice.Proxy{Host: "proxy.example.com", Port: 1080, Scheme: "socks5"}, second.Proxy)
	assert.Equal(t, []testutils.Call{{Method: "decode", Input: "HLA-A*01:AB"}}, second.Calls)
	assert.Equal(t, 1, second.CloseCount)
	assert.Contains(t, h.logs.String(), "Proxy set")
}

func TestRun_ProxyWithoutPortIsIgnored(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.run("--proxy=proxy.example.com", "--url=http://localhost:8080/mac/api"))

	assert.Nil(t, h.state.Proxy())
	assert.Nil(t, h.factory.Last().Proxy)
	assert.Empty(t, h.out.Lines())
	assert.Contains(t, h.logs.String(), "Proxy ignored")
}

func TestRun_MalformedProxyPortIsFatal(t *testing.T) {
	h := newHarness(t, nil)

	err := h.run("--proxy=proxy.example.com:eighty", "HLA-A*01:MN")
	assert.ErrorIs(t, err, session.ErrInvalidProxy)
	assert.Empty(t, h.factory.Last().Calls, "tokens after a fatal error are not processed")
	assert.Equal(t, 1, h.factory.Last().CloseCount)
}

func TestRun_ReleaseFailureOnURLIsFatal(t *testing.T) {
	built := 0
	h := newHarness(t, func(s *testutils.StubService) {
		built++
		if built == 1 {
			s.CloseErr = errors.New("connection pool busy")
		}
	})

	err := h.run("--url=http://localhost:8080/mac/api", "HLA-A*01:MN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to release service")
	assert.Contains(t, err.Error(), "connection pool busy")
	require.Len(t, h.factory.Created, 1, "no new handle after a failed release")
	assert.Equal(t, 1, h.factory.Created[0].CloseCount)
	assert.Empty(t, h.factory.Created[0].Calls)
}

func TestRun_ReleaseFailureAtEndIsReturned(t *testing.T) {
	h := newHarness(t, func(s *testutils.StubService) {
		s.CloseErr = errors.New("stuck")
	})

	err := h.run("decode", "HLA-A*01:AB")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to release service")
	assert.Equal(t, []string{"switch to: decode", "HLA-A*01:AB decode to decode(HLA-A*01:AB)"}, h.out.Lines())
}

func TestRun_LiteralFailuresDoNotStopTheRun(t *testing.T) {
	h := newHarness(t, func(s *testutils.StubService) {
		s.Errors["HLA-A*01:XX"] = testutils.InvalidAllele("HLA-A*01:XX")
		s.Errors["HLA-B*08:YY"] = testutils.ServiceFailure("503 Service Unavailable")
		s.Panics["HLA-C*07:ZZ"] = "nil map"
	})

	require.NoError(t, h.run("HLA-A*01:XX", "HLA-B*08:YY", "HLA-C*07:ZZ", "HLA-A*01:MN"))

	assert.Equal(t, []string{"HLA-A*01:MN expand to expand(HLA-A*01:MN)"}, h.out.Lines())
	assert.Len(t, h.factory.Last().Calls, 4)

	logs := h.logs.String()
	assert.Contains(t, logs, "Invalid typing")
	assert.Contains(t, logs, "HLA-A*01:XX")
	assert.Contains(t, logs, "Lookup failed")
	assert.Contains(t, logs, "503 Service Unavailable")
	assert.Contains(t, logs, "operation panicked")
}

func TestRun_ModeSwitchKeepsVersionAndEndpoint(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.run(
		"--hla=3.21.0",
		"--url=http://localhost:8080/mac/api",
		"encode", "HLA-A*01:01/HLA-A*01:02",
		"decode", "HLA-A*01:AB",
		"expand", "HLA-A*01:AB",
	))

	stub := h.factory.Last()
	assert.Equal(t, "http://localhost:8080/mac/api", stub.Endpoint)
	assert.Equal(t, []testutils.Call{
		{Method: "encode", Version: "3.21.0", Input: "HLA-A*01:01/HLA-A*01:02"},
		{Method: "decode", Input: "HLA-A*01:AB"},
		{Method: "expand", Version: "3.21.0", Input: "HLA-A*01:AB"},
	}, stub.Calls)
	assert.Equal(t, []string{
		"switch to: encode",
		"HLA-A*01:01/HLA-A*01:02 encode to encode(HLA-A*01:01/HLA-A*01:02)",
		"switch to: decode",
		"HLA-A*01:AB decode to decode(HLA-A*01:AB)",
		"switch to: expand",
		"HLA-A*01:AB expand to expand(HLA-A*01:AB)",
	}, h.out.Lines())
}

func TestRun_LastValueWins(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.run("--hla=3.19.0", "--hla=3.22.0", "HLA-A*01:MN"))
	assert.Equal(t, "3.22.0", h.factory.Last().Calls[0].Version)
}

func TestRun_FileIsBatchProcessed(t *testing.T) {
	typing := testutils.Typing("HLA-A*01:AB+HLA-B*08:", 24)
	path := testutils.WriteTypingFile(t, "typings.txt", "short", typing)
	h := newHarness(t, nil)

	require.NoError(t, h.run("decode", path, "HLA-A*01:AB"))

	assert.Equal(t, []string{
		"switch to: decode",
		" 2 = decode(" + typing + ")",
		"lines= 2",
		"invalid alleles= 0",
		"HLA-A*01:AB decode to decode(HLA-A*01:AB)",
	}, h.out.Lines())
	assert.Contains(t, h.logs.String(), "Batch finished")
}

func TestRun_MissingFileIsALiteral(t *testing.T) {
	h := newHarness(t, nil)
	missing := filepath.Join(t.TempDir(), "absent.txt")

	require.NoError(t, h.run(missing))
	assert.Equal(t, []string{missing + " expand to expand(" + missing + ")"}, h.out.Lines())
}

func TestRun_DirectoryIsALiteral(t *testing.T) {
	h := newHarness(t, nil)
	dir := t.TempDir()

	require.NoError(t, h.run(dir))
	assert.Equal(t, []testutils.Call{{Method: "expand", Input: dir}}, h.factory.Last().Calls)
}

func TestRun_FileReadFailureIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.gz")
	require.NoError(t, os.WriteFile(path, []byte{0x1f, 0x8b, 0x00, 'j', 'u', 'n', 'k'}, 0600))
	h := newHarness(t, nil)

	err := h.run(path, "HLA-A*01:MN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.Empty(t, h.factory.Last().Calls)
	assert.Equal(t, 1, h.factory.Last().CloseCount)
}

func TestRun_CancelledContextStopsBatch(t *testing.T) {
	path := testutils.WriteTypingFile(t, "typings.txt", testutils.Typing("HLA-A*01:MN", 20))
	h := newHarness(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.dispatcher.Run(ctx, []string{path, "HLA-A*01:MN"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.factory.Last().Calls)
	assert.Equal(t, 1, h.factory.Last().CloseCount)
}
