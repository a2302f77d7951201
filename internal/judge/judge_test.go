// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperpal/pkg/types"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		score     float64
		rationale string
		malformed bool
	}{
		{name: "plain json", answer: `{"score": 8, "reason": "On topic."}`, score: 8, rationale: "On topic."},
		{name: "fenced json", answer: "```json\n{\"score\": 6.5, \"reason\": \"Related\"}\n```", score: 6.5, rationale: "Related"},
		{name: "prose around json", answer: `Sure! {"score": 3, "reason": "weak"} Hope that helps.`, score: 3, rationale: "weak"},
		{name: "string score", answer: `{"score": "7.5", "reason": "ok"}`, score: 7.5, rationale: "ok"},
		{name: "rationale field", answer: `{"score": 9, "rationale": "great"}`, score: 9, rationale: "great"},
		{name: "trailing comma recovered", answer: `{"score": 4, "reason": "meh",}`, score: 4},
		{name: "bounds inclusive", answer: `{"score": 10}`, score: 10},
		{name: "no json", answer: "I think it's an 8.", malformed: true},
		{name: "no score", answer: `{"reason": "forgot"}`, malformed: true},
		{name: "above range", answer: `{"score": 11}`, malformed: true},
		{name: "below range", answer: `{"score": -1}`, malformed: true},
		{name: "non numeric", answer: `{"score": "high"}`, malformed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVerdict(tt.answer)
			if tt.malformed {
				assert.ErrorIs(t, err, types.ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.score, v.Score)
			if tt.rationale != "" {
				assert.Equal(t, tt.rationale, v.Rationale)
			}
		})
	}
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("COMPRESSED_MEMORY:\nLikes RL and robotics.\nREMOVED_TOPICS:\nquantum chemistry, graph drawing\n")
	require.NoError(t, err)
	assert.Equal(t, "Likes RL and robotics.", c.Text)
	assert.Equal(t, []string{"quantum chemistry", "graph drawing"}, c.Removed)

	c, err = ParseCompression("COMPRESSED_MEMORY:\nShort.\nREMOVED_TOPICS:\nnone")
	require.NoError(t, err)
	assert.Empty(t, c.Removed)

	c, err = ParseCompression("Just the memory.")
	require.NoError(t, err)
	assert.Equal(t, "Just the memory.", c.Text)

	_, err = ParseCompression("COMPRESSED_MEMORY:\n\nREMOVED_TOPICS: x")
	assert.ErrorIs(t, err, types.ErrMalformedResponse)
}

func TestUnwrap(t *testing.T) {
	in := "First line of\na paragraph.\n\nSecond\nparagraph.\n- item one\n- item two\n"
	assert.Equal(t, "First line of a paragraph.\n\nSecond paragraph.\n\n- item one\n\n- item two", unwrap(in))
}

// fakeChat records requests and answers from a function.
type fakeChat struct {
	mu     sync.Mutex
	reqs   []openai.ChatCompletionRequest
	answer func(req openai.ChatCompletionRequest) (string, error)
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	text, err := f.answer(req)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}},
	}}, nil
}

func samplePaper() types.Paper {
	return types.Paper{
		ID:         "2603.01234",
		Title:      "Offline RL at Scale",
		Abstract:   "We study offline reinforcement learning.",
		Authors:    []string{"Ada Lovelace"},
		Categories: []string{"cs.LG"},
	}
}

func TestScoreSendsProfileAndTopic(t *testing.T) {
	chat := &fakeChat{answer: func(openai.ChatCompletionRequest) (string, error) {
		return `{"score": 8.5, "reason": "RL focus"}`, nil
	}}
	j := &OpenAIJudge{Client: chat, Model: "test-model"}
	profile := types.InterestProfile{Version: 3, Text: "Likes robotics.", Exclusions: []string{"survey"}}

	v, err := j.Score(context.Background(), samplePaper(), profile, "reinforcement learning")
	require.NoError(t, err)
	assert.Equal(t, 8.5, v.Score)
	assert.Equal(t, "RL focus", v.Rationale)

	require.Len(t, chat.reqs, 1)
	req := chat.reqs[0]
	assert.Equal(t, "test-model", req.Model)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	prompt := req.Messages[1].Content
	assert.Contains(t, prompt, "Likes robotics.")
	assert.Contains(t, prompt, "User is NOT interested in: survey")
	assert.Contains(t, prompt, "Current focus: reinforcement learning")
	assert.Contains(t, prompt, "Offline RL at Scale")
}

func TestScoreErrorKinds(t *testing.T) {
	j := &OpenAIJudge{Client: &fakeChat{answer: func(openai.ChatCompletionRequest) (string, error) {
		return "", errors.New("connection reset")
	}}}
	_, err := j.Score(context.Background(), samplePaper(), types.InterestProfile{}, "")
	assert.ErrorIs(t, err, types.ErrJudgeCallFailed)

	j.Client = &fakeChat{answer: func(openai.ChatCompletionRequest) (string, error) {
		return "not json", nil
	}}
	_, err = j.Score(context.Background(), samplePaper(), types.InterestProfile{}, "")
	assert.ErrorIs(t, err, types.ErrMalformedResponse)
}

func TestSummarizeNumbersEntries(t *testing.T) {
	chat := &fakeChat{answer: func(openai.ChatCompletionRequest) (string, error) {
		return "Theme one\ncontinues here.\n\nTheme two.", nil
	}}
	j := &OpenAIJudge{Client: chat}
	entries := []types.RankedEntry{
		{Paper: types.Paper{Title: "Alpha"}, Result: types.ScoreResult{Score: 9}},
		{Paper: types.Paper{Title: "Beta"}, Result: types.ScoreResult{Score: 7}},
	}

	text, err := j.Summarize(context.Background(), "agents", entries)
	require.NoError(t, err)
	assert.Equal(t, "Theme one continues here.\n\nTheme two.", text)

	prompt := chat.reqs[0].Messages[1].Content
	assert.Contains(t, prompt, "[1] Alpha (score 9.0)")
	assert.Contains(t, prompt, "[2] Beta (score 7.0)")
	assert.Contains(t, prompt, `following "agents"`)
	assert.Nil(t, chat.reqs[0].ResponseFormat)
}

func TestSummarizeEmptyIsNoCall(t *testing.T) {
	chat := &fakeChat{answer: func(openai.ChatCompletionRequest) (string, error) { return "x", nil }}
	text, err := (&OpenAIJudge{Client: chat}).Summarize(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Empty(t, chat.reqs)
}

func TestUpdateAndCompressProfile(t *testing.T) {
	chat := &fakeChat{answer: func(req openai.ChatCompletionRequest) (string, error) {
		if strings.Contains(req.Messages[1].Content, "COMPRESSED_MEMORY") {
			return "COMPRESSED_MEMORY:\nShort memory.\nREMOVED_TOPICS:\nnone", nil
		}
		return "  Updated memory.  ", nil
	}}
	j := &OpenAIJudge{Client: chat}

	text, err := j.UpdateProfile(context.Background(), "Old memory.", "User is interested in papers like: X")
	require.NoError(t, err)
	assert.Equal(t, "Updated memory.", text)
	assert.Contains(t, chat.reqs[0].Messages[1].Content, "Old memory.")
	assert.Contains(t, chat.reqs[0].Messages[1].Content, "User is interested in papers like: X")

	c, err := j.CompressProfile(context.Background(), strings.Repeat("a", 50), 20)
	require.NoError(t, err)
	assert.Equal(t, "Short memory.", c.Text)
	assert.Contains(t, chat.reqs[1].Messages[1].Content, "grown to 50 characters")
	assert.Contains(t, chat.reqs[1].Messages[1].Content, "at most 20 characters")
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(types.JudgeConfig{Model: "m"}, nil, nil)
	assert.ErrorIs(t, err, types.ErrConfigInvalid)
}

func TestNewOpenAIAgainstCompatibleServer(t *testing.T) {
	var gotAuth, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "m",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": `{"score": 5, "reason": "fine"}`},
				"finish_reason": "stop",
			}},
		})
	}))
	defer ts.Close()

	j, err := NewOpenAI(types.JudgeConfig{Model: "m", APIKey: "sk-test", BaseURL: ts.URL + "/v1/", RequestsPerSecond: 100}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, j.Limiter)

	v, err := j.Score(context.Background(), samplePaper(), types.InterestProfile{}, "")
	require.NoError(t, err)
	assert.Equal(t, 5.0, v.Score)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/v1/chat/completions", gotPath)
}
