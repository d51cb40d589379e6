package logging

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStack(t *testing.T) {
	assert.Nil(t, ExtractStack(nil))
	assert.Nil(t, ExtractStack(fmt.Errorf("plain")))

	withStack := errors.WithStack(errors.New("boom"))
	assert.NotNil(t, ExtractStack(withStack))

	wrapped := errors.WithMessage(withStack, "outer")
	assert.Equal(t, withStack.(stackTracer).StackTrace(), ExtractStack(wrapped))
}

func TestWithStacktrace(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.Out = buf
	logger.Formatter = &CommandLineFormatter{}

	err := errors.WithStack(errors.New("test error"))
	WithStacktrace(logrus.NewEntry(logger), err).Error("dispatch failed")

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "dispatch failed error=test error\n"), out)
	assert.Contains(t, out, "logging_test.go")
}

func TestCommandLineFormatter_SortsFields(t *testing.T) {
	entry := logrus.NewEntry(logrus.New()).WithFields(logrus.Fields{"vu": 3, "accepted": 10})
	entry.Message = "progress"

	b, err := (&CommandLineFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "progress accepted=10 vu=3\n", string(b))
}

func TestConfigureLogging(t *testing.T) {
	defer ConfigureCliLogging()

	require.NoError(t, ConfigureLogging("debug", FormatJson))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	assert.Error(t, ConfigureLogging("loud", FormatText))
	assert.Error(t, ConfigureLogging("info", "xml"))
}
