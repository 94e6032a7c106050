package models

import "time"

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionText         QuestionType = "TEXT"
	QuestionSingleChoice QuestionType = "SINGLE_CHOICE"
)

// Valid reports whether t is one of the known question kinds.
func (t QuestionType) Valid() bool {
	return t == QuestionText || t == QuestionSingleChoice
}

// Identity is the verified caller of an authenticated request.
type Identity struct {
	UserID string
	Email  string
}

// User is a quiz creator. PassHash never leaves the service layer.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	PassHash  []byte    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayName falls back to the email when no name was given at signup.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Quiz is the authored questionnaire. CreatorID is assigned once at creation.
type Quiz struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	CreatorID   string      `json:"creatorId"`
	CreatedAt   time.Time   `json:"createdAt"`
	Questions   []*Question `json:"questions"`
}

// Question belongs to a quiz; Order is its dense zero-based position.
type Question struct {
	ID       string       `json:"id"`
	QuizID   string       `json:"quizId"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Options  []string     `json:"options"`
	Required bool         `json:"required"`
	Order    int          `json:"order"`
}

// Response is one accepted submission together with its answers.
type Response struct {
	ID             string    `json:"id"`
	QuizID         string    `json:"quizId"`
	SubmitterName  string    `json:"submitterName,omitempty"`
	SubmitterEmail string    `json:"submitterEmail,omitempty"`
	SubmittedAt    time.Time `json:"submittedAt"`
	Answers        []*Answer `json:"answers"`
}

// Answer is the value given to a single question within a response.
type Answer struct {
	ID         string `json:"id"`
	ResponseID string `json:"responseId"`
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

// QuizSummary is a quiz row annotated with aggregate counts.
type QuizSummary struct {
	Quiz          *Quiz
	CreatorName   string
	QuestionCount int
	ResponseCount int
}

// AuditEntry records a state-changing action.
type AuditEntry struct {
	Time   time.Time
	Actor  string
	Action string
	Target string
	Note   string
}
