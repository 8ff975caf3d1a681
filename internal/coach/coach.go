// Package coach turns a finished attempt's score report into a short
// study plan via an OpenAI-compatible endpoint. It is entirely optional:
// the engine and results work identically without it.
package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/prepgrid/prepgrid/internal/model"
)

// Plan is the generated study recommendation.
type Plan struct {
	FocusSubjects   []string `json:"focus_subjects"`
	Recommendations []string `json:"recommendations"`
	Summary         string   `json:"summary"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new coach client.
func New(baseURL, apiKey, modelName string) (*Client, error) {
	if modelName == "" {
		return nil, fmt.Errorf("coach: model name is required")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}, nil
}

// Ping checks the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("coach endpoint: %w", err)
	}
	return nil
}

// StudyPlan asks the model for focused recommendations based on the
// per-subject breakdown of a score report.
func (c *Client) StudyPlan(ctx context.Context, exam model.Exam, report model.ScoreReport) (*Plan, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildStudyPrompt(exam, report)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("coach API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("coach returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("coach response", "raw", raw)

	var plan Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("parse coach response: %w (raw: %s)", err, raw)
	}
	return &plan, nil
}

func buildStudyPrompt(exam model.Exam, report model.ScoreReport) string {
	var sb strings.Builder
	sb.WriteString("You are a study coach for students preparing for multiple-choice exams.\n")
	sb.WriteString("A student just finished a practice attempt with these results:\n\n")
	if exam.Title != "" {
		sb.WriteString("EXAM: " + exam.Title + "\n")
	}
	sb.WriteString(fmt.Sprintf("OVERALL: %d/%d correct (%d%%), %d skipped\n",
		report.CorrectCount, report.TotalQuestions, report.Percentage, report.SkippedCount))

	sb.WriteString("BY SUBJECT (weakest first):\n")
	for _, subject := range subjectsByWeakness(report) {
		subj := report.BySubject[subject]
		sb.WriteString(fmt.Sprintf("- %s: %d/%d (%d%%)\n", subject, subj.Correct, subj.Total, subj.Percentage))
	}

	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("- Name the two or three subjects most worth focused revision.\n")
	sb.WriteString("- Give short, concrete recommendations, one per subject.\n")
	sb.WriteString("- Keep the summary to two sentences.\n")
	sb.WriteString("\nRespond ONLY with a JSON object with these fields:\n")
	sb.WriteString(`{"focus_subjects": ["..."], "recommendations": ["..."], "summary": "..."}`)
	sb.WriteString("\n")

	return sb.String()
}

// subjectsByWeakness orders subjects by ascending percentage, then name
// so equal scores come out deterministically.
func subjectsByWeakness(report model.ScoreReport) []string {
	subjects := make([]string, 0, len(report.BySubject))
	for subject := range report.BySubject {
		subjects = append(subjects, subject)
	}
	sort.Slice(subjects, func(i, j int) bool {
		a, b := report.BySubject[subjects[i]], report.BySubject[subjects[j]]
		if a.Percentage != b.Percentage {
			return a.Percentage < b.Percentage
		}
		return subjects[i] < subjects[j]
	})
	return subjects
}
