package canvas

import "github.com/tidwall/gjson"

// CourseID identifies one course section offering. Canvas mints these per
// section/term; they are never portable across terms.
type CourseID string

// ID is a Canvas-native identifier (assignment, quiz, group, criterion,
// user...). Valid only within the course/term that minted it.
type ID string

type User struct {
	ID   ID
	Name string
}

type Course struct {
	ID            CourseID
	Name          string
	CourseCode    string
	Term          string
	TotalStudents int
}

type Enrollment struct {
	UserID       ID
	Name         string
	SortableName string
}

type RubricCriterion struct {
	ID          ID
	Description string
	Points      float64
}

type Assignment struct {
	ID              ID
	Name            string
	PointsPossible  float64
	QuizID          ID // empty when not quiz-backed
	SubmissionTypes []string
	Rubric          []RubricCriterion
}

// IsQuiz reports whether the assignment is backed by a quiz.
func (a Assignment) IsQuiz() bool { return a.QuizID != "" }

type Submission struct {
	UserID           ID
	Score            *float64 // nil when ungraded/unscored
	WorkflowState    string
	RubricAssessment map[ID]float64 // criterion id -> awarded points
}

type QuizQuestion struct {
	ID      ID
	GroupID ID // empty for ungrouped questions
}

type QuizGroup struct {
	ID             ID
	Name           string
	PickCount      int
	QuestionPoints float64
}

type QuizSubmission struct {
	ID     ID
	UserID ID
}

type QuizSubmissionQuestion struct {
	GroupID ID
	Correct bool
}

func idField(r gjson.Result, path string) ID {
	v := r.Get(path)
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return ID(v.String())
}

func courseFrom(r gjson.Result) Course {
	return Course{
		ID:            CourseID(r.Get("id").String()),
		Name:          r.Get("name").String(),
		CourseCode:    r.Get("course_code").String(),
		Term:          r.Get("term.name").String(),
		TotalStudents: int(r.Get("total_students").Int()),
	}
}

func enrollmentFrom(r gjson.Result) Enrollment {
	return Enrollment{
		UserID:       idField(r, "user.id"),
		Name:         r.Get("user.name").String(),
		SortableName: r.Get("user.sortable_name").String(),
	}
}

func assignmentFrom(r gjson.Result) Assignment {
	a := Assignment{
		ID:             idField(r, "id"),
		Name:           r.Get("name").String(),
		PointsPossible: r.Get("points_possible").Float(),
		QuizID:         idField(r, "quiz_id"),
	}
	for _, st := range r.Get("submission_types").Array() {
		a.SubmissionTypes = append(a.SubmissionTypes, st.String())
	}
	for _, c := range r.Get("rubric").Array() {
		a.Rubric = append(a.Rubric, RubricCriterion{
			ID:          idField(c, "id"),
			Description: StripHTML(c.Get("description").String()),
			Points:      c.Get("points").Float(),
		})
	}
	return a
}

func submissionFrom(r gjson.Result) Submission {
	s := Submission{
		UserID:        idField(r, "user_id"),
		WorkflowState: r.Get("workflow_state").String(),
	}
	if sc := r.Get("score"); sc.Exists() && sc.Type != gjson.Null {
		f := sc.Float()
		s.Score = &f
	}
	if ra := r.Get("rubric_assessment"); ra.Exists() {
		s.RubricAssessment = make(map[ID]float64)
		ra.ForEach(func(key, value gjson.Result) bool {
			s.RubricAssessment[ID(key.String())] = value.Get("points").Float()
			return true
		})
	}
	return s
}

func quizGroupFrom(r gjson.Result) QuizGroup {
	return QuizGroup{
		ID:             idField(r, "id"),
		Name:           r.Get("name").String(),
		PickCount:      int(r.Get("pick_count").Int()),
		QuestionPoints: r.Get("question_points").Float(),
	}
}
