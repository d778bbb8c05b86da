package outcomes

import (
	"context"

	"github.com/pantherassess/outcomereport/pkg/canvas"
)

// Source is the read-only capability the engine needs from Canvas. List
// operations return complete, fully paginated result sets. *canvas.Client
// satisfies it; tests substitute an in-memory fake.
type Source interface {
	ListEnrollments(ctx context.Context, courseID canvas.CourseID) ([]canvas.Enrollment, error)
	GetAssignment(ctx context.Context, courseID canvas.CourseID, assignmentID canvas.ID) (canvas.Assignment, error)
	ListSubmissions(ctx context.Context, courseID canvas.CourseID, assignmentID canvas.ID) ([]canvas.Submission, error)
	ListQuizQuestions(ctx context.Context, courseID canvas.CourseID, quizID canvas.ID) ([]canvas.QuizQuestion, error)
	GetQuizGroup(ctx context.Context, courseID canvas.CourseID, quizID, groupID canvas.ID) (canvas.QuizGroup, error)
	ListQuizSubmissions(ctx context.Context, courseID canvas.CourseID, quizID canvas.ID) ([]canvas.QuizSubmission, error)
	ListQuizSubmissionQuestions(ctx context.Context, quizSubmissionID canvas.ID) ([]canvas.QuizSubmissionQuestion, error)
}
