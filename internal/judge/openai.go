// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package judge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paperpal/internal/metrics"
	"github.com/pdiddy/paperpal/pkg/types"
)

// ChatClient is the part of *openai.Client the judge uses. Tests supply
// a fake.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const systemPrompt = "You are a careful research assistant who follows output formats exactly."

// OpenAIJudge implements Judge over any OpenAI-compatible chat API.
type OpenAIJudge struct {
	Client ChatClient
	Model  string

	// Limiter paces calls across all goroutines; nil means unpaced.
	Limiter *rate.Limiter

	Log     logrus.FieldLogger
	Metrics *metrics.Metrics
}

// NewOpenAI builds a judge from cfg. BaseURL lets the same client talk to
// any OpenAI-compatible server.
func NewOpenAI(cfg types.JudgeConfig, log logrus.FieldLogger, m *metrics.Metrics) (*OpenAIJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: judge API key not set (OPENAI_API_KEY or .secrets/openai-api-key)", types.ErrConfigInvalid)
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	j := &OpenAIJudge{
		Client:  openai.NewClientWithConfig(oc),
		Model:   cfg.Model,
		Log:     log,
		Metrics: m,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		j.Limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return j, nil
}

// Score implements Judge.
func (j *OpenAIJudge) Score(ctx context.Context, paper types.Paper, profile types.InterestProfile, topic string) (Verdict, error) {
	prompt, err := renderScorePrompt(paper, profile, topic)
	if err != nil {
		return Verdict{}, fmt.Errorf("rendering score prompt: %w", err)
	}
	answer, err := j.complete(ctx, "score", prompt, true)
	if err != nil {
		return Verdict{}, err
	}
	v, err := ParseVerdict(answer)
	j.record("score", err)
	return v, err
}

// Summarize implements Judge.
func (j *OpenAIJudge) Summarize(ctx context.Context, topic string, entries []types.RankedEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	prompt, err := render(summaryPromptTmpl, struct {
		Topic   string
		Entries []types.RankedEntry
	}{Topic: topic, Entries: entries})
	if err != nil {
		return "", fmt.Errorf("rendering summary prompt: %w", err)
	}
	answer, err := j.complete(ctx, "summarize", prompt, false)
	if err != nil {
		return "", err
	}
	text := unwrap(answer)
	if text == "" {
		err = fmt.Errorf("%w: empty summary", types.ErrMalformedResponse)
	}
	j.record("summarize", err)
	return text, err
}

// UpdateProfile implements Judge.
func (j *OpenAIJudge) UpdateProfile(ctx context.Context, current, signals string) (string, error) {
	prompt, err := render(updatePromptTmpl, struct{ Current, Signals string }{current, signals})
	if err != nil {
		return "", fmt.Errorf("rendering update prompt: %w", err)
	}
	answer, err := j.complete(ctx, "update", prompt, false)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(answer)
	if text == "" {
		err = fmt.Errorf("%w: empty updated memory", types.ErrMalformedResponse)
	}
	j.record("update", err)
	return text, err
}

// CompressProfile implements Judge.
func (j *OpenAIJudge) CompressProfile(ctx context.Context, text string, target int) (Compression, error) {
	prompt, err := render(compressPromptTmpl, struct {
		Text           string
		Length, Target int
	}{text, len(text), target})
	if err != nil {
		return Compression{}, fmt.Errorf("rendering compress prompt: %w", err)
	}
	answer, err := j.complete(ctx, "compress", prompt, false)
	if err != nil {
		return Compression{}, err
	}
	c, err := ParseCompression(answer)
	j.record("compress", err)
	return c, err
}

// complete sends one chat request and returns the first choice's content.
// Transport errors wrap types.ErrJudgeCallFailed.
func (j *OpenAIJudge) complete(ctx context.Context, task, prompt string, jsonMode bool) (string, error) {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %s: %v", types.ErrJudgeCallFailed, task, err)
		}
	}

	req := openai.ChatCompletionRequest{
		Model: j.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	started := time.Now()
	resp, err := j.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		j.Metrics.JudgeCall(task, "failed", time.Since(started))
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			j.logger().WithFields(logrus.Fields{"task": task, "status": apiErr.HTTPStatusCode}).WithError(err).Debug("judge call failed")
		}
		return "", fmt.Errorf("%w: %s: %v", types.ErrJudgeCallFailed, task, err)
	}
	j.Metrics.JudgeCall(task, "ok", time.Since(started))

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s: no choices", types.ErrMalformedResponse, task)
	}
	j.logger().WithFields(logrus.Fields{"task": task, "finish_reason": resp.Choices[0].FinishReason}).Debug("judge answered")
	return resp.Choices[0].Message.Content, nil
}

func (j *OpenAIJudge) record(task string, err error) {
	if err != nil {
		j.Metrics.JudgeCall(task, "malformed", 0)
	}
}

func (j *OpenAIJudge) logger() logrus.FieldLogger {
	if j.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return j.Log
}
