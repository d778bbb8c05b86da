package outcomes

import (
	"context"
	"testing"

	"github.com/pantherassess/outcomereport/pkg/canvas"
)

// twoSectionQuiz builds a "Quiz1" logical assignment across S1 and S2 where
// only S1's quiz contains an "Ethics" question group.
func twoSectionQuiz(f *fakeSource) *LogicalAssignment {
	f.quizQuestions[sectionQuizKey{Section: "S1", QuizID: "100"}] = []canvas.QuizQuestion{
		{ID: "q1", GroupID: "g1"},
		{ID: "q2", GroupID: "g1"},
		{ID: "q3", GroupID: ""},
	}
	f.quizGroups[fakeGroupKey{Section: "S1", QuizID: "100", GroupID: "g1"}] = canvas.QuizGroup{
		ID: "g1", Name: "Ethics", PickCount: 5, QuestionPoints: 2,
	}
	f.quizQuestions[sectionQuizKey{Section: "S2", QuizID: "200"}] = []canvas.QuizQuestion{
		{ID: "q9", GroupID: "g9"},
	}
	f.quizGroups[fakeGroupKey{Section: "S2", QuizID: "200", GroupID: "g9"}] = canvas.QuizGroup{
		ID: "g9", Name: "History", PickCount: 3, QuestionPoints: 1,
	}

	merged, _ := Merge([]Row{
		{Section: "S1", Assignment: canvas.Assignment{ID: "10", Name: "Quiz1", QuizID: "100", PointsPossible: 10}},
		{Section: "S2", Assignment: canvas.Assignment{ID: "20", Name: "Quiz1", QuizID: "200", PointsPossible: 10}},
	})
	return merged[0]
}

func TestResolveQuizGroupSectionPartial(t *testing.T) {
	f := newFakeSource()
	la := twoSectionQuiz(f)

	part, warnings, err := NewResolver(f).QuizGroup(context.Background(), la, "Ethics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("a section-partial part is not a warning, got %v", warnings)
	}
	if len(part.BySection) != 1 {
		t.Fatalf("expected Ethics resolved in exactly S1, got %v", part.BySection)
	}
	ref := part.BySection["S1"]
	if ref.GroupID != "g1" || ref.PickCount != 5 || ref.PointsPerQuestion != 2 {
		t.Fatalf("unexpected group ref: %+v", ref)
	}
}

func TestResolveQuizGroupCaseSensitive(t *testing.T) {
	f := newFakeSource()
	la := twoSectionQuiz(f)

	part, warnings, err := NewResolver(f).QuizGroup(context.Background(), la, "ethics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(part.BySection) != 0 {
		t.Fatalf("group names match case-sensitively, got %v", part.BySection)
	}
	if len(warnings) != 1 {
		t.Fatalf("an unresolved part must carry a warning, got %v", warnings)
	}
}

func TestResolveQuizGroupMissingQuizIsSoftFail(t *testing.T) {
	f := newFakeSource()
	la := twoSectionQuiz(f)
	// S2's quiz questions now 404.
	delete(f.quizQuestions, sectionQuizKey{Section: "S2", QuizID: "200"})

	part, _, err := NewResolver(f).QuizGroup(context.Background(), la, "Ethics")
	if err != nil {
		t.Fatalf("a 404 during resolution must not be an error: %v", err)
	}
	if _, ok := part.BySection["S1"]; !ok {
		t.Fatalf("S1 should still resolve, got %v", part.BySection)
	}
}

func rubricAssignment(f *fakeSource) *LogicalAssignment {
	addAssignment(f, "S1", canvas.Assignment{ID: "30", Name: "Essay", PointsPossible: 20,
		Rubric: []canvas.RubricCriterion{
			{ID: "c1", Description: "Thesis Statement", Points: 5},
			{ID: "c2", Description: "Evidence", Points: 10},
		}})
	addAssignment(f, "S2", canvas.Assignment{ID: "40", Name: "Essay", PointsPossible: 20,
		Rubric: []canvas.RubricCriterion{
			{ID: "c7", Description: "  thesis statement ", Points: 5},
		}})

	merged, _ := Merge([]Row{
		{Section: "S1", Assignment: canvas.Assignment{ID: "30", Name: "Essay", PointsPossible: 20}},
		{Section: "S2", Assignment: canvas.Assignment{ID: "40", Name: "Essay", PointsPossible: 20}},
	})
	return merged[0]
}

func TestResolveRubricCriterionCaseInsensitive(t *testing.T) {
	f := newFakeSource()
	la := rubricAssignment(f)

	part, warnings, err := NewResolver(f).RubricCriterion(context.Background(), la, "thesis statement")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if part.BySection["S1"] != "c1" || part.BySection["S2"] != "c7" {
		t.Fatalf("expected criterion resolved in both sections, got %v", part.BySection)
	}
	if part.PointsPossible != 5 {
		t.Fatalf("expected first-matched points 5, got %g", part.PointsPossible)
	}
}

func TestResolveRubricCriterionNoMatchWarns(t *testing.T) {
	f := newFakeSource()
	la := rubricAssignment(f)

	part, warnings, err := NewResolver(f).RubricCriterion(context.Background(), la, "Citations")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(part.BySection) != 0 {
		t.Fatalf("expected empty resolution, got %v", part.BySection)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
}
