// Package domain contains core domain types for the mockdy application.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// InterviewType selects the interviewer persona and grading strategy.
type InterviewType string

const (
	InterviewTechnical    InterviewType = "TECHNICAL"
	InterviewBehavioral   InterviewType = "BEHAVIORAL"
	InterviewSystemDesign InterviewType = "SYSTEM_DESIGN"
)

// InterviewTypes lists every supported interview type.
var InterviewTypes = []InterviewType{InterviewTechnical, InterviewBehavioral, InterviewSystemDesign}

// ParseInterviewType normalizes user input ("technical", "system-design") into an InterviewType.
func ParseInterviewType(s string) (InterviewType, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	norm = strings.ReplaceAll(norm, " ", "_")
	for _, t := range InterviewTypes {
		if string(t) == norm {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown interview type %q", s)
}

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one transcript entry. Timestamp is Unix milliseconds.
type Message struct {
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// NewMessage stamps a message with the current time.
func NewMessage(role Role, text string) Message {
	return Message{Role: role, Text: text, Timestamp: time.Now().UnixMilli()}
}

// ProblemInfo identifies the coding problem of a technical session.
type ProblemInfo struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	Difficulty Difficulty `json:"difficulty"`
	Category   string     `json:"category"`
}

// FeedbackData is the grading result of a session.
type FeedbackData struct {
	Score           int      `json:"score"`
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	OptimalSolution string   `json:"optimalSolution"`
}

// FallbackFeedback is returned when grading fails or produces unusable output.
func FallbackFeedback() FeedbackData {
	return FeedbackData{
		Score:           0,
		Summary:         "Failed to generate detailed feedback. Please try again.",
		Strengths:       []string{},
		Weaknesses:      []string{},
		OptimalSolution: "N/A",
	}
}

// StoredSession is a completed interview. It is never mutated after creation.
type StoredSession struct {
	ID          string        `json:"id"`
	Timestamp   int64         `json:"timestamp"`
	Type        InterviewType `json:"type"`
	Messages    []Message     `json:"messages"`
	CodeOrNotes string        `json:"codeOrNotes"`
	Feedback    FeedbackData  `json:"feedback"`
	ProblemInfo *ProblemInfo  `json:"problemInfo,omitempty"`
}

// Time returns the session timestamp as a time.Time.
func (s *StoredSession) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// FirstModelMessage returns the text of the first interviewer message, or "".
func (s *StoredSession) FirstModelMessage() string {
	for _, m := range s.Messages {
		if m.Role == RoleModel {
			return m.Text
		}
	}
	return ""
}
