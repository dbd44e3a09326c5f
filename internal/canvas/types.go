package canvas

// Assignment is the subset of the Canvas assignment object the pipeline
// reads and writes. QuizID is set for quiz-backed assignments, which the
// scan skips to avoid double counting against the quiz path.
type Assignment struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	QuizID      *int64  `json:"quiz_id,omitempty"`
	HTMLURL     *string `json:"html_url,omitempty"`
}

// Page is a wiki page with its body included.
type Page struct {
	PageID int64  `json:"page_id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Quiz carries the description HTML scanned for images.
type Quiz struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// QuizQuestion belongs to a quiz; QuestionText is the scanned HTML field.
type QuizQuestion struct {
	ID           int64  `json:"id"`
	QuizID       int64  `json:"quiz_id"`
	QuestionName string `json:"question_name"`
	QuestionText string `json:"question_text"`
}
