package model

import (
	"time"
)

// OptionLabel is one of the four answer labels, A through D.
type OptionLabel string

const (
	OptionA OptionLabel = "A"
	OptionB OptionLabel = "B"
	OptionC OptionLabel = "C"
	OptionD OptionLabel = "D"
)

// CanonicalOptions is the stored label order; position i of a permutation maps to CanonicalOptions[i].
var CanonicalOptions = [4]OptionLabel{OptionA, OptionB, OptionC, OptionD}

// Valid reports whether l is one of A, B, C or D.
func (l OptionLabel) Valid() bool {
	switch l {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

type QuestionDifficulty string

const (
	DifficultyEasy   QuestionDifficulty = "EASY"
	DifficultyMedium QuestionDifficulty = "MEDIUM"
	DifficultyHard   QuestionDifficulty = "HARD"
)

// Question is an entry in the question bank.
type Question struct {
	ID            int64              `json:"id"`
	ContentRef    string             `json:"content_ref"`
	CorrectOption OptionLabel        `json:"correct_option"`
	Difficulty    QuestionDifficulty `json:"difficulty"`
	Topic         *string            `json:"topic,omitempty"`
	Explanation   *string            `json:"explanation,omitempty"`
	IsActive      bool               `json:"is_active"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     *time.Time         `json:"updated_at,omitempty"`
}

// AddQuestionRequest is the payload for adding a question to the bank.
type AddQuestionRequest struct {
	ContentRef    string  `json:"content_ref" binding:"required,min=1,max=500"`
	CorrectOption string  `json:"correct_option" binding:"required,option_label"`
	Difficulty    string  `json:"difficulty" binding:"omitempty,oneof=EASY MEDIUM HARD"`
	Topic         *string `json:"topic" binding:"omitempty,max=100"`
	Explanation   *string `json:"explanation" binding:"omitempty,max=4000"`
}
