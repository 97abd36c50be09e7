package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesConsoleAndFile(t *testing.T) {
	assert := assert.New(t)

	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "sptf.log")

	logger, closer, err := Setup(Options{Level: "warn", File: file, Console: &console})
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("key", "value").Msg("visible")
	require.NoError(t, closer.Close())

	assert.NotContains(console.String(), "hidden")
	assert.Contains(console.String(), "visible")

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(string(raw), `"key":"value"`)
	assert.Contains(string(raw), `"level":"warn"`)
}

func TestSetupDevModeForcesDebug(t *testing.T) {
	var console bytes.Buffer

	logger, _, err := Setup(Options{Level: "error", DevMode: true, Console: &console})
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	assert.Contains(t, console.String(), "DEV mode")
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, _, err := Setup(Options{Level: "chatty"})
	assert.Error(t, err)
}
