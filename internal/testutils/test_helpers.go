package testutils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"macclient/internal/logger"
)

// WriteTypingFile writes lines to a file in a fresh temporary directory and returns
// its path.
func WriteTypingFile(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// CaptureLogs routes the global logger into a buffer at debug level until the test
// ends.
func CaptureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	previous := logger.Logger
	buf := &bytes.Buffer{}
	logger.Logger = log.New(buf)
	logger.Logger.SetLevel(log.DebugLevel)
	logger.Logger.SetTimeFormat("")
	t.Cleanup(func() { logger.Logger = previous })
	return buf
}

// Typing returns a typing string padded with '0' to exactly n characters.
func Typing(prefix string, n int) string {
	if len(prefix) >= n {
		return prefix[:n]
	}
	return prefix + strings.Repeat("0", n-len(prefix))
}
