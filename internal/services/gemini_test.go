package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParsePersonResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		expect  string
		wantErr bool
	}{
		{name: "first person", raw: `{"persons": ["Jane Doe", "John Roe"]}`, expect: "Jane Doe"},
		{name: "fenced json", raw: "```json\n{\"persons\": [\" Ada Lovelace \"]}\n```", expect: "Ada Lovelace"},
		{name: "skips blanks", raw: `{"persons": ["", "Grace Hopper"]}`, expect: "Grace Hopper"},
		{name: "no persons", raw: `{"persons": []}`, expect: ""},
		{name: "no json", raw: "I could not find anyone", wantErr: true},
		{name: "bad json", raw: `{"persons": [1, 2]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parsePersonResponse(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestWithRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		calls := 0
		err := withRetry(context.Background(), 3, time.Millisecond, zap.New(core), "embed", func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("unavailable")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, logs.FilterMessage("capability call failed, retrying").Len())
	})

	t.Run("wraps last error after exhausting attempts", func(t *testing.T) {
		sentinel := errors.New("quota")
		calls := 0
		err := withRetry(context.Background(), 2, 0, zap.NewNop(), "generate", func(context.Context) error {
			calls++
			return sentinel
		})

		assert.ErrorIs(t, err, sentinel)
		assert.Contains(t, err.Error(), "failed after 2 attempts")
		assert.Equal(t, 2, calls)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := withRetry(ctx, 5, time.Second, zap.NewNop(), "generate", func(context.Context) error {
			calls++
			cancel()
			return errors.New("interrupted")
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestNewGeminiServiceRequiresKey(t *testing.T) {
	_, err := NewGeminiService(context.Background(), GeminiOptions{}, nil)
	assert.Error(t, err)
}
