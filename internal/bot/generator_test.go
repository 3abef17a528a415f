package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilotbot/copilot/internal/llm"
)

func TestGeneratorPromptShape(t *testing.T) {
	t.Run("system, context, user in order", func(t *testing.T) {
		backend := &fakeBackend{replies: []string{"fine"}}
		generator := NewGenerator(backend)

		reply, err := generator.Generate(context.Background(), "be helpful", "summary here", "what's up")

		require.NoError(t, err)
		assert.Equal(t, "fine", reply)
		require.Len(t, backend.requests, 1)
		messages := backend.requests[0]
		require.Len(t, messages, 3)
		assert.Equal(t, llm.RoleSystem, messages[0].Role)
		assert.Equal(t, "be helpful", messages[0].Content)
		assert.Equal(t, llm.RoleAssistant, messages[1].Role)
		assert.Equal(t, "Conversation summary:\nsummary here", messages[1].Content)
		assert.Equal(t, llm.RoleUser, messages[2].Role)
		assert.Equal(t, "what's up", messages[2].Content)
	})

	t.Run("empty context omits the assistant turn", func(t *testing.T) {
		backend := &fakeBackend{replies: []string{"fine"}}
		generator := NewGenerator(backend)

		_, err := generator.Generate(context.Background(), "be helpful", "", "hi")

		require.NoError(t, err)
		messages := backend.requests[0]
		require.Len(t, messages, 2)
		assert.Equal(t, llm.RoleSystem, messages[0].Role)
		assert.Equal(t, llm.RoleUser, messages[1].Role)
	})
}

func TestGeneratorRetry(t *testing.T) {
	t.Run("succeeds on the retry", func(t *testing.T) {
		backend := &fakeBackend{
			errs:    []error{errors.New("transient")},
			replies: []string{"", "recovered"},
		}
		generator := NewGenerator(backend)

		reply, err := generator.Generate(context.Background(), "sys", "", "hi")

		require.NoError(t, err)
		assert.Equal(t, "recovered", reply)
		assert.Equal(t, 2, backend.calls)
	})

	t.Run("exhausted retries wrap ErrGeneration", func(t *testing.T) {
		backend := &fakeBackend{
			errs: []error{errors.New("down"), errors.New("still down")},
		}
		generator := NewGenerator(backend)

		_, err := generator.Generate(context.Background(), "sys", "", "hi")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrGeneration)
		assert.Equal(t, 2, backend.calls)
	})
}
