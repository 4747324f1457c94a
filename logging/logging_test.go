package logging_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/RyanBlaney/melodia/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logging.Level{
		"debug":   logging.DebugLevel,
		"INFO":    logging.InfoLevel,
		"":        logging.InfoLevel,
		" warn ":  logging.WarnLevel,
		"warning": logging.WarnLevel,
		"Error":   logging.ErrorLevel,
		"fatal":   logging.FatalLevel,
	}
	for in, want := range cases {
		got, err := logging.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := logging.ParseLevel("loud")
	assert.Error(t, err)
}

func TestDefaultLogger_LevelsAndFields(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := logging.NewDefaultLoggerWithWriters(&out, &errOut, false)

	child := logger.WithFields(logging.Fields{"component": "test", "family": "NLB1"})
	child.Debug("hidden")
	child.Info("pair matched", logging.Fields{"score": 0.5})
	child.Warn("pair skipped")
	child.Error(errors.New("boom"), "pair failed")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[INFO] pair matched component=test family=NLB1 score=0.5")
	assert.Contains(t, errOut.String(), "[WARN] pair skipped")
	assert.Contains(t, errOut.String(), "[ERROR] pair failed: boom")

	// children share the parent's level
	logger.SetLevel(logging.DebugLevel)
	child.Debug("now visible")
	assert.Contains(t, out.String(), "[DEBUG] now visible")
}

func TestWithContext_PicksUpFields(t *testing.T) {
	var out bytes.Buffer
	logger := logging.NewDefaultLoggerWithWriters(&out, &out, false)

	ctx := logging.ContextWithFields(context.Background(), logging.Fields{"run": "r1"})
	ctx = logging.ContextWithFields(ctx, logging.Fields{"family": "NLB7"})
	logger.WithContext(ctx).Info("started")

	assert.Contains(t, out.String(), "family=NLB7 run=r1")
}

func TestSetGlobalLogger_NilDisables(t *testing.T) {
	previous := logging.GetGlobalLogger()
	t.Cleanup(func() { logging.SetGlobalLogger(previous) })

	logging.SetGlobalLogger(nil)
	_, ok := logging.GetGlobalLogger().(*logging.NoOpLogger)
	assert.True(t, ok)
}
