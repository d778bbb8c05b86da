package outcomes

import (
	"context"
	"fmt"

	"github.com/pantherassess/outcomereport/pkg/canvas"
)

type sectionQuizKey struct {
	Section canvas.CourseID
	QuizID  canvas.ID
}

type sectionAssignmentKey struct {
	Section      canvas.CourseID
	AssignmentID canvas.ID
}

// Resolver translates name-based part references into section-scoped native
// ids valid for the current Canvas snapshot. Fetched quiz-group and rubric
// detail is cached so resolving many parts against the same assignment costs
// one round of fetches per section. A resolver is owned by one report run.
type Resolver struct {
	src         Source
	quizGroups  map[sectionQuizKey][]canvas.QuizGroup
	assignments map[sectionAssignmentKey]canvas.Assignment
}

func NewResolver(src Source) *Resolver {
	return &Resolver{
		src:         src,
		quizGroups:  make(map[sectionQuizKey][]canvas.QuizGroup),
		assignments: make(map[sectionAssignmentKey]canvas.Assignment),
	}
}

// sectionGroups returns the distinct question groups of one section's quiz.
// A 404 means the section has no such quiz; it contributes nothing.
func (r *Resolver) sectionGroups(ctx context.Context, section canvas.CourseID, quizID canvas.ID) ([]canvas.QuizGroup, error) {
	key := sectionQuizKey{Section: section, QuizID: quizID}
	if groups, ok := r.quizGroups[key]; ok {
		return groups, nil
	}

	questions, err := r.src.ListQuizQuestions(ctx, section, quizID)
	if err != nil {
		if canvas.IsNotFound(err) {
			r.quizGroups[key] = nil
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[canvas.ID]bool)
	var groups []canvas.QuizGroup
	for _, q := range questions {
		if q.GroupID == "" || seen[q.GroupID] {
			continue
		}
		seen[q.GroupID] = true
		group, err := r.src.GetQuizGroup(ctx, section, quizID, q.GroupID)
		if err != nil {
			if canvas.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		groups = append(groups, group)
	}
	r.quizGroups[key] = groups
	return groups, nil
}

// QuizGroup resolves a question-group name against every section of a
// logical assignment. Sections whose quiz lacks the group contribute no
// entry; a part resolving to zero sections is retained and contributes zero
// points for every student, surfaced as a warning rather than an error.
func (r *Resolver) QuizGroup(ctx context.Context, la *LogicalAssignment, groupName NameKey) (*QuizGroupPart, []Warning, error) {
	part := &QuizGroupPart{
		GroupName: groupName,
		BySection: make(map[canvas.CourseID]QuizGroupRef),
	}

	for _, section := range la.Sections {
		quizID, ok := la.QuizBySection[section]
		if !ok {
			continue
		}
		groups, err := r.sectionGroups(ctx, section, quizID)
		if err != nil {
			return nil, nil, err
		}
		for _, g := range groups {
			if NameKey(g.Name) == groupName {
				part.BySection[section] = QuizGroupRef{
					GroupID:           g.ID,
					PickCount:         g.PickCount,
					PointsPerQuestion: g.QuestionPoints,
				}
				break
			}
		}
	}

	var warnings []Warning
	if len(part.BySection) == 0 {
		warnings = append(warnings, Warning(fmt.Sprintf(
			"quiz group %q of assignment %q matched no sections and will contribute no points", groupName, la.Name)))
	}
	return part, warnings, nil
}

func (r *Resolver) sectionAssignment(ctx context.Context, section canvas.CourseID, assignmentID canvas.ID) (canvas.Assignment, bool, error) {
	key := sectionAssignmentKey{Section: section, AssignmentID: assignmentID}
	if a, ok := r.assignments[key]; ok {
		return a, a.ID != "", nil
	}
	a, err := r.src.GetAssignment(ctx, section, assignmentID)
	if err != nil {
		if canvas.IsNotFound(err) {
			r.assignments[key] = canvas.Assignment{}
			return canvas.Assignment{}, false, nil
		}
		return canvas.Assignment{}, false, err
	}
	r.assignments[key] = a
	return a, true, nil
}

// RubricCriterion resolves a criterion description against every section.
// Matching is case-insensitive on whitespace-trimmed plain text. The
// first-matched points value wins; disagreeing sections are warned about.
func (r *Resolver) RubricCriterion(ctx context.Context, la *LogicalAssignment, description string) (*RubricCriterionPart, []Warning, error) {
	part := &RubricCriterionPart{
		Description: description,
		BySection:   make(map[canvas.CourseID]canvas.ID),
	}
	want := CriterionKey(description)

	var warnings []Warning
	for _, section := range la.Sections {
		assignmentID, ok := la.BySection[section]
		if !ok {
			continue
		}
		a, found, err := r.sectionAssignment(ctx, section, assignmentID)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			continue
		}
		for _, criterion := range a.Rubric {
			if CriterionKey(criterion.Description) != want {
				continue
			}
			part.BySection[section] = criterion.ID
			if len(part.BySection) == 1 {
				part.PointsPossible = criterion.Points
			} else if criterion.Points != part.PointsPossible {
				warnings = append(warnings, Warning(fmt.Sprintf(
					"criterion %q: section %s has %g points, keeping first-seen %g",
					description, section, criterion.Points, part.PointsPossible)))
			}
			break
		}
	}

	if len(part.BySection) == 0 {
		warnings = append(warnings, Warning(fmt.Sprintf(
			"rubric criterion %q of assignment %q matched no sections and will contribute no points", description, la.Name)))
	}
	return part, warnings, nil
}
