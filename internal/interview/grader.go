package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ashureev/mockdy/internal/domain"
	"github.com/ashureev/mockdy/internal/shared"
)

// Grader turns a finished transcript into FeedbackData. It never fails:
// any model or parse problem yields domain.FallbackFeedback.
type Grader struct {
	model Model
}

// NewGrader creates a Grader over model.
func NewGrader(model Model) *Grader {
	return &Grader{model: model}
}

// Grade asks the model for structured feedback.
func (g *Grader) Grade(ctx context.Context, t domain.InterviewType, messages []domain.Message, codeOrNotes string) domain.FeedbackData {
	if g == nil || g.model == nil {
		slog.Warn("Grading skipped: no model configured")
		return domain.FallbackFeedback()
	}

	raw, err := g.model.GenerateJSON(ctx, gradingPrompt(t, messages, codeOrNotes), FeedbackSchema)
	if err != nil {
		slog.Error("Feedback generation failed", "type", t, "error", err)
		return domain.FallbackFeedback()
	}

	fb, err := ParseFeedback(raw)
	if err != nil {
		slog.Error("Feedback unusable, returning fallback", "type", t, "error", err)
		return domain.FallbackFeedback()
	}
	return fb
}

type rawFeedback struct {
	Score           *float64 `json:"score"`
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	OptimalSolution string   `json:"optimalSolution"`
}

// ParseFeedback decodes and validates a grading response. Near-JSON output is
// repaired once before giving up with a *shared.ParseError.
func ParseFeedback(raw string) (domain.FeedbackData, error) {
	text := strings.TrimSpace(raw)

	var rf rawFeedback
	if err := json.Unmarshal([]byte(text), &rf); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(text)
		if repairErr != nil {
			return domain.FeedbackData{}, &shared.ParseError{Raw: raw, Err: errors.Join(err, repairErr)}
		}
		rf = rawFeedback{}
		if err := json.Unmarshal([]byte(repaired), &rf); err != nil {
			return domain.FeedbackData{}, &shared.ParseError{Raw: raw, Err: err}
		}
		slog.Debug("Feedback JSON repaired", "raw_length", len(raw))
	}

	if rf.Score == nil {
		return domain.FeedbackData{}, &shared.ParseError{Raw: raw, Err: errors.New("missing score")}
	}
	score := math.Round(*rf.Score)
	if score < 0 || score > 100 {
		return domain.FeedbackData{}, &shared.ParseError{Raw: raw, Err: fmt.Errorf("score %v out of range", *rf.Score)}
	}
	if strings.TrimSpace(rf.Summary) == "" {
		return domain.FeedbackData{}, &shared.ParseError{Raw: raw, Err: errors.New("missing summary")}
	}

	fb := domain.FeedbackData{
		Score:           int(score),
		Summary:         rf.Summary,
		Strengths:       rf.Strengths,
		Weaknesses:      rf.Weaknesses,
		OptimalSolution: rf.OptimalSolution,
	}
	if fb.Strengths == nil {
		fb.Strengths = []string{}
	}
	if fb.Weaknesses == nil {
		fb.Weaknesses = []string{}
	}
	return fb, nil
}
