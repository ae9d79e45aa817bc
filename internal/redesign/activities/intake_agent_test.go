package activities

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/roomcraft/roomcraft-backend/internal/redesign/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anthropicServer(t *testing.T, status int, reply string, inspect func(body map[string]any)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if inspect != nil {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode request: %v", err)
			}
			inspect(body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"type": "error", "error": {"type": "api_error", "message": "nope"}}`))
			return
		}
		text, _ := json.Marshal(reply)
		w.Write([]byte(`{"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": ` + string(text) + `}],
			"stop_reason": "end_turn", "stop_sequence": null, "usage": {"input_tokens": 12, "output_tokens": 30}}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestAgent(t *testing.T, server *httptest.Server) *IntakeAgent {
	t.Helper()
	agent, err := NewIntakeAgent("test-key", "", option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	require.NoError(t, err)
	return agent
}

func TestIntakeAgent_RequiresKey(t *testing.T) {
	_, err := NewIntakeAgent("", "")
	assert.True(t, errors.Is(err, errAPIKeyRequired))
}

func TestIntakeAgent_Turn(t *testing.T) {
	var messages []any
	var system string
	server := anthropicServer(t, http.StatusOK,
		"```json\n{\"message\": \"What colours do you love?\", \"brief\": {\"room_type\": \"bedroom\", \"pain_points\": [\"too dark\"]}, \"done\": false}\n```",
		func(body map[string]any) {
			messages, _ = body["messages"].([]any)
			if blocks, ok := body["system"].([]any); ok && len(blocks) > 0 {
				system, _ = blocks[0].(map[string]any)["text"].(string)
			}
		})
	agent := newTestAgent(t, server)

	out, err := agent.Intake(context.Background(), domain.IntakeInput{
		ProjectID: "prj_1",
		Message:   "It feels too dark",
		History: []domain.ConversationTurn{
			{Role: "user", Text: "Hi"},
			{Role: "assistant", Text: "Tell me about the room"},
		},
		Photos: []domain.Photo{
			{Kind: domain.PhotoKindRoom}, {Kind: domain.PhotoKindRoom}, {Kind: domain.PhotoKindInspiration},
		},
		RoomAnalysis: &domain.RoomAnalysis{Summary: "north-facing bedroom", StyleTags: []string{"minimal", "oak"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "What colours do you love?", out.AgentMessage)
	assert.False(t, out.Done)
	require.NotNil(t, out.PartialBrief)
	assert.Equal(t, "bedroom", out.PartialBrief.RoomType)
	assert.Equal(t, []string{"too dark"}, out.PartialBrief.PainPoints)

	require.Len(t, messages, 3)
	assert.Equal(t, "assistant", messages[1].(map[string]any)["role"])
	assert.Equal(t, "user", messages[2].(map[string]any)["role"])
	assert.Contains(t, system, "2 room photo(s) and 1 inspiration photo(s)")
	assert.Contains(t, system, "Detected style: minimal, oak")
}

func TestIntakeAgent_DoneKeepsPreviousBrief(t *testing.T) {
	server := anthropicServer(t, http.StatusOK, `{"message": "Great, I have what I need.", "done": true}`, nil)
	agent := newTestAgent(t, server)

	prev := &domain.DesignBrief{RoomType: "study", Budget: "500"}
	out, err := agent.Intake(context.Background(), domain.IntakeInput{Message: "that's all", PartialBrief: prev})
	require.NoError(t, err)
	assert.True(t, out.Done)
	require.NotNil(t, out.PartialBrief)
	assert.Equal(t, "study", out.PartialBrief.RoomType)
}

func TestIntakeAgent_InvalidReply(t *testing.T) {
	server := anthropicServer(t, http.StatusOK, "Sure! Tell me more.", nil)
	agent := newTestAgent(t, server)

	_, err := agent.Intake(context.Background(), domain.IntakeInput{Message: "hello"})
	var ce *domain.CollaboratorError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, domain.ErrorKindInvalidOutput, ce.Kind)
	assert.True(t, ce.Retryable)
}

func TestIntakeAgent_APIErrors(t *testing.T) {
	cases := []struct {
		status    int
		kind      string
		retryable bool
	}{
		{http.StatusTooManyRequests, domain.ErrorKindRateLimited, true},
		{http.StatusInternalServerError, domain.ErrorKindTransient, true},
		{http.StatusUnauthorized, domain.ErrorKindUnavailable, false},
		{http.StatusBadRequest, domain.ErrorKindInvalidInput, false},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			server := anthropicServer(t, tc.status, "", nil)
			agent := newTestAgent(t, server)

			_, err := agent.Intake(context.Background(), domain.IntakeInput{Message: "hello"})
			var ce *domain.CollaboratorError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tc.kind, ce.Kind)
			assert.Equal(t, tc.retryable, ce.Retryable)
			assert.Equal(t, tc.status, ce.StatusCode)
		})
	}
}

func TestParseIntakeReply(t *testing.T) {
	reply, err := parseIntakeReply(`Here you go: {"message": "ok", "done": false} thanks`)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Message)

	_, err = parseIntakeReply(`{"message": "", "done": false}`)
	assert.Error(t, err)
}
