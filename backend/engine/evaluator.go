package engine

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/Rhytah/Kyzer-sub001/backend/models"
)

// QuestionResult is the per-question outcome of an evaluation, in
// question order.
type QuestionResult struct {
	QuestionIndex int             `json:"question_index"`
	QuestionID    uint            `json:"question_id"`
	UserAnswer    json.RawMessage `json:"user_answer,omitempty"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	IsCorrect     bool            `json:"is_correct"`
}

type EvaluationResult struct {
	Score      int              `json:"score"`
	MaxScore   int              `json:"max_score"`
	Percentage int              `json:"percentage"`
	Passed     bool             `json:"passed"`
	Results    []QuestionResult `json:"results"`
}

// EvaluateQuiz scores submitted answers against the quiz's questions.
// Pure function, no side effects. An unanswered or undecodable answer
// scores incorrect; a quiz with zero questions evaluates to 0%, not
// passed.
func EvaluateQuiz(quiz *models.Quiz, answers map[uint]json.RawMessage) *EvaluationResult {
	results := make([]QuestionResult, 0, len(quiz.Questions))
	score := 0

	for i, q := range quiz.Questions {
		userAnswer, answered := answers[q.ID]
		correct := answered && answerIsCorrect(&q, userAnswer)
		if correct {
			score++
		}
		results = append(results, QuestionResult{
			QuestionIndex: i,
			QuestionID:    q.ID,
			UserAnswer:    userAnswer,
			CorrectAnswer: json.RawMessage(q.CorrectAnswer),
			IsCorrect:     correct,
		})
	}

	maxScore := len(quiz.Questions)
	percentage := 0
	if maxScore > 0 {
		percentage = roundPercent(score, maxScore)
	}

	return &EvaluationResult{
		Score:      score,
		MaxScore:   maxScore,
		Percentage: percentage,
		Passed:     maxScore > 0 && percentage >= quiz.PassThreshold,
		Results:    results,
	}
}

func answerIsCorrect(q *models.Question, userAnswer json.RawMessage) bool {
	switch q.QuestionType {
	case models.QuestionTypeSingleChoice:
		var got, want int
		if json.Unmarshal(userAnswer, &got) != nil || json.Unmarshal(q.CorrectAnswer, &want) != nil {
			return false
		}
		return got == want

	case models.QuestionTypeTrueFalse:
		var got, want bool
		if json.Unmarshal(userAnswer, &got) != nil || json.Unmarshal(q.CorrectAnswer, &want) != nil {
			return false
		}
		return got == want

	case models.QuestionTypeMultiSelect:
		var got, want []int
		if json.Unmarshal(userAnswer, &got) != nil || json.Unmarshal(q.CorrectAnswer, &want) != nil {
			return false
		}
		// set equality, selection order is irrelevant
		if len(got) != len(want) {
			return false
		}
		wantSet := make(map[int]struct{}, len(want))
		for _, idx := range want {
			wantSet[idx] = struct{}{}
		}
		gotSet := make(map[int]struct{}, len(got))
		for _, idx := range got {
			if _, ok := wantSet[idx]; !ok {
				return false
			}
			gotSet[idx] = struct{}{}
		}
		return len(gotSet) == len(wantSet)

	case models.QuestionTypeShortAnswer:
		var got, want string
		if json.Unmarshal(userAnswer, &got) != nil || json.Unmarshal(q.CorrectAnswer, &want) != nil {
			return false
		}
		return normalizeAnswer(got) == normalizeAnswer(want)
	}

	return false
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func roundPercent(part, total int) int {
	return int(math.Round(100 * float64(part) / float64(total)))
}
