package model

// Quiz is the read-only catalog view the attempt engine scores against.
type Quiz struct {
	ID                string     `db:"id" json:"id"`
	Title             string     `db:"title" json:"title"`
	NumberOfQuestions int        `db:"number_of_questions" json:"number_of_questions"`
	PassingPercentage float64    `db:"passing_percentage" json:"passing_percentage"`
	Questions         []Question `json:"questions"`
}

type Question struct {
	ID            string      `db:"id" json:"id"`
	QuizID        string      `db:"quiz_id" json:"quiz_id"`
	CorrectAnswer AnswerValue `db:"correct_answer" json:"correct_answer"`
	Points        int         `db:"points" json:"points"`
	Position      int         `db:"position" json:"position"`
}
