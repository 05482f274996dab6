package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	log := New()
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNewWithLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, NewWithLevel("debug").GetLevel())
	assert.Equal(t, zerolog.WarnLevel, NewWithLevel(" WARN ").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewWithLevel("chatty").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewWithLevel("").GetLevel())
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	assert.Contains(t, buf.String(), "test message")
}

func TestWithContext(t *testing.T) {
	ctx := WithContext(context.Background(), New())

	assert.NotNil(t, ctx.Value(LoggerKey))
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")

	assert.NotZero(t, buf.Len())
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())

	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"user_id": "U123",
		"job_id":  "job-1",
	})

	log.Info().Msg("test message")

	out := buf.String()
	assert.Contains(t, out, `"user_id":"U123"`)
	assert.Contains(t, out, `"job_id":"job-1"`)
}
