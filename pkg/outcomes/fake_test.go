package outcomes

import (
	"context"
	"net/http"

	"github.com/pantherassess/outcomereport/pkg/canvas"
)

type fakeGroupKey struct {
	Section canvas.CourseID
	QuizID  canvas.ID
	GroupID canvas.ID
}

// fakeSource is an in-memory Source. Missing lookups answer 404 like Canvas.
type fakeSource struct {
	enrollments   map[canvas.CourseID][]canvas.Enrollment
	assignments   map[sectionAssignmentKey]canvas.Assignment
	submissions   map[sectionAssignmentKey][]canvas.Submission
	quizQuestions map[sectionQuizKey][]canvas.QuizQuestion
	quizGroups    map[fakeGroupKey]canvas.QuizGroup
	quizSubs      map[sectionQuizKey][]canvas.QuizSubmission
	quizSubQs     map[canvas.ID][]canvas.QuizSubmissionQuestion
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		enrollments:   make(map[canvas.CourseID][]canvas.Enrollment),
		assignments:   make(map[sectionAssignmentKey]canvas.Assignment),
		submissions:   make(map[sectionAssignmentKey][]canvas.Submission),
		quizQuestions: make(map[sectionQuizKey][]canvas.QuizQuestion),
		quizGroups:    make(map[fakeGroupKey]canvas.QuizGroup),
		quizSubs:      make(map[sectionQuizKey][]canvas.QuizSubmission),
		quizSubQs:     make(map[canvas.ID][]canvas.QuizSubmissionQuestion),
	}
}

func notFound() error {
	return &canvas.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
}

func (f *fakeSource) ListEnrollments(_ context.Context, courseID canvas.CourseID) ([]canvas.Enrollment, error) {
	return f.enrollments[courseID], nil
}

func (f *fakeSource) GetAssignment(_ context.Context, courseID canvas.CourseID, assignmentID canvas.ID) (canvas.Assignment, error) {
	a, ok := f.assignments[sectionAssignmentKey{Section: courseID, AssignmentID: assignmentID}]
	if !ok {
		return canvas.Assignment{}, notFound()
	}
	return a, nil
}

func (f *fakeSource) ListSubmissions(_ context.Context, courseID canvas.CourseID, assignmentID canvas.ID) ([]canvas.Submission, error) {
	return f.submissions[sectionAssignmentKey{Section: courseID, AssignmentID: assignmentID}], nil
}

func (f *fakeSource) ListQuizQuestions(_ context.Context, courseID canvas.CourseID, quizID canvas.ID) ([]canvas.QuizQuestion, error) {
	qs, ok := f.quizQuestions[sectionQuizKey{Section: courseID, QuizID: quizID}]
	if !ok {
		return nil, notFound()
	}
	return qs, nil
}

func (f *fakeSource) GetQuizGroup(_ context.Context, courseID canvas.CourseID, quizID, groupID canvas.ID) (canvas.QuizGroup, error) {
	g, ok := f.quizGroups[fakeGroupKey{Section: courseID, QuizID: quizID, GroupID: groupID}]
	if !ok {
		return canvas.QuizGroup{}, notFound()
	}
	return g, nil
}

func (f *fakeSource) ListQuizSubmissions(_ context.Context, courseID canvas.CourseID, quizID canvas.ID) ([]canvas.QuizSubmission, error) {
	return f.quizSubs[sectionQuizKey{Section: courseID, QuizID: quizID}], nil
}

func (f *fakeSource) ListQuizSubmissionQuestions(_ context.Context, quizSubmissionID canvas.ID) ([]canvas.QuizSubmissionQuestion, error) {
	return f.quizSubQs[quizSubmissionID], nil
}

// helpers shared by the engine tests

func enroll(f *fakeSource, section canvas.CourseID, studentID canvas.ID, name string) {
	f.enrollments[section] = append(f.enrollments[section], canvas.Enrollment{
		UserID:       studentID,
		Name:         name,
		SortableName: name,
	})
}

func addAssignment(f *fakeSource, section canvas.CourseID, a canvas.Assignment) {
	f.assignments[sectionAssignmentKey{Section: section, AssignmentID: a.ID}] = a
}

func addSubmission(f *fakeSource, section canvas.CourseID, assignmentID canvas.ID, sub canvas.Submission) {
	key := sectionAssignmentKey{Section: section, AssignmentID: assignmentID}
	f.submissions[key] = append(f.submissions[key], sub)
}

func scoreOf(v float64) *float64 { return &v }
