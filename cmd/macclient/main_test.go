package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macclient/internal/config"
	"macclient/internal/dispatch"
	"macclient/internal/session"
	"macclient/internal/testutils"
)

// isolateConfig points the config and working directories at empty temporary directories.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MAC_LOG_LEVEL", "error")
	t.Chdir(t.TempDir())
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := newRootCmd()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{}, args...)) // non-nil, so cobra does not fall back to os.Args
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRoot_Help(t *testing.T) {
	isolateConfig(t)

	for _, arg := range []string{"-h", "--help"} {
		stdout, stderr, err := execute(t, arg)
		require.NoError(t, err)
		assert.Equal(t, dispatch.Usage, stdout)
		assert.Empty(t, stderr)
	}
}

func TestRoot_NoArguments(t *testing.T) {
	isolateConfig(t)

	stdout, stderr, err := execute(t)
	assert.ErrorIs(t, err, dispatch.ErrNoTokens)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Usage: macclient")
}

func TestRoot_LookupAgainstService(t *testing.T) {
	isolateConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mac/api/decode":
			_, _ = w.Write([]byte("HLA-A*01:01/HLA-A*01:02\n"))
		case "/mac/api/expand":
			assert.Equal(t, "3.22.0", r.URL.Query().Get("imgtHlaRelease"))
			_, _ = w.Write([]byte("HLA-A*01:01/HLA-A*01:02/HLA-A*01:03"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	stdout, _, err := execute(t,
		"--url="+server.URL+"/mac/api",
		"decode", "HLA-A*01:AB",
		"--hla=3.22.0", "expand", "HLA-A*01:MN")
	require.NoError(t, err)
	assert.Equal(t, "switch to: decode\n"+
		"HLA-A*01:AB decode to HLA-A*01:01/HLA-A*01:02\n"+
		"switch to: expand\n"+
		"HLA-A*01:MN expand to HLA-A*01:01/HLA-A*01:02/HLA-A*01:03\n", stdout)
}

// macServer answers expand and decode with fixed allele lists.
func macServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		typing := r.URL.Query().Get("typing")
		switch r.URL.Path {
		case "/mac/api/decode", "/mac/api/expand":
			_, _ = w.Write([]byte("list(" + typing + ")"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRoot_FileNamedLikeACommandIsProcessed(t *testing.T) {
	isolateConfig(t)
	server := macServer(t)
	typing := testutils.Typing("HLA-A*01:AB+HLA-B*08:", 24)
	require.NoError(t, os.WriteFile("config", []byte(typing+"\n"), 0600))

	stdout, _, err := execute(t, "--url="+server.URL+"/mac/api", "decode", "config")
	require.NoError(t, err)
	assert.Equal(t, "switch to: decode\n"+
		" 1 = list("+typing+")\n"+
		"lines= 1\n"+
		"invalid alleles= 0\n", stdout)
}

func TestRoot_CommandWordsAreTokensInsideACommandLine(t *testing.T) {
	isolateConfig(t)
	server := macServer(t)

	stdout, _, err := execute(t, "--url="+server.URL+"/mac/api", "--hla=3.22.0", "help", "version", "config")
	require.NoError(t, err)
	assert.Equal(t, "help expand to list(help)\n"+
		"version expand to list(version)\n"+
		"config expand to list(config)\n", stdout)
}

func TestRoot_HelpWordAloneIsATyping(t *testing.T) {
	isolateConfig(t)
	t.Setenv("MAC_URL", macServer(t).URL+"/mac/api")

	stdout, _, err := execute(t, "help")
	require.NoError(t, err)
	assert.Equal(t, "help expand to list(help)\n", stdout)
}

func TestRoot_BadProxyIsFatal(t *testing.T) {
	isolateConfig(t)

	_, _, err := execute(t, "--proxy=proxy.example.com:port", "HLA-A*01:MN")
	assert.ErrorIs(t, err, session.ErrInvalidProxy)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "macclient")
	assert.Contains(t, stdout, "Go Version")
}

func TestConfigCommand(t *testing.T) {
	isolateConfig(t)
	t.Setenv("MAC_HLA", "3.22.0")

	stdout, _, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "url: https://hml.nmdp.org/mac/api")
	assert.Contains(t, stdout, "hla: 3.22.0")
	assert.Contains(t, stdout, "mode: expand")
	assert.Contains(t, stdout, "timeout: 30s")
	assert.Contains(t, stdout, "color: auto")
}

func TestNewDispatcher_SeedsSessionFromConfig(t *testing.T) {
	testutils.CaptureLogs(t)
	cfg := &config.Config{
		URL:               "http://localhost:8080/mac/api",
		Proxy:             "http://proxy.example.com:3128",
		HLA:               "3.21.0",
		Mode:              "encode",
		MinTypingLength:   16,
		HeartbeatInterval: 200,
		Theme:             "plain",
		Color:             "never",
	}
	factory := &testutils.StubFactory{}
	stdout := &bytes.Buffer{}

	dispatcher, err := newDispatcher(cfg, factory.Factory(), stdout, &bytes.Buffer{})
	require.NoError(t, err)

	stub := factory.Last()
	assert.Equal(t, "http://localhost:8080/mac/api", stub.Endpoint)
	require.NotNil(t, stub.Proxy)
	assert.Equal(t, "proxy.example.com", stub.Proxy.Host)
	assert.Equal(t, 3128, stub.Proxy.Port)

	require.NoError(t, dispatcher.Run(t.Context(), []string{"HLA-A*01:01/HLA-A*01:02"}))
	assert.Equal(t, []testutils.Call{{Method: "encode", Version: "3.21.0", Input: "HLA-A*01:01/HLA-A*01:02"}}, stub.Calls)
	assert.Equal(t, "HLA-A*01:01/HLA-A*01:02 encode to encode(HLA-A*01:01/HLA-A*01:02)\n", stdout.String())
	assert.Equal(t, 1, stub.CloseCount)
}

func TestNewDispatcher_RejectsBadSettings(t *testing.T) {
	base := config.Config{Mode: "expand", Theme: "default", Color: "auto", HeartbeatInterval: 1}

	badMode := base
	badMode.Mode = "translate"
	badProxy := base
	badProxy.Proxy = "proxy.example.com:x"
	badTheme := base
	badTheme.Theme = "neon"
	badColor := base
	badColor.Color = "sometimes"

	for name, cfg := range map[string]config.Config{
		"mode": badMode, "proxy": badProxy, "theme": badTheme, "color": badColor,
	} {
		t.Run(name, func(t *testing.T) {
			factory := &testutils.StubFactory{}
			_, err := newDispatcher(&cfg, factory.Factory(), &bytes.Buffer{}, &bytes.Buffer{})
			assert.Error(t, err)
			assert.Empty(t, factory.Created, "no service handle is created for a rejected configuration")
		})
	}
}
