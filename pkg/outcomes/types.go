package outcomes

import (
	"strings"

	"github.com/pantherassess/outcomereport/pkg/canvas"
)

// NameKey is a cross-section identity key. Assignments, quiz question groups
// and rubric criteria are matched by name across sections because Canvas
// re-mints native ids per section/term; native ids must never be used as
// identity across sections.
type NameKey string

// CriterionKey normalizes a rubric criterion description for matching:
// case-insensitive, whitespace-trimmed.
func CriterionKey(description string) NameKey {
	return NameKey(strings.ToLower(strings.TrimSpace(description)))
}

// Kind classifies how a logical assignment is scored.
type Kind int

const (
	KindPlain Kind = iota
	KindQuiz
	KindRubric
)

func (k Kind) String() string {
	switch k {
	case KindQuiz:
		return "quiz"
	case KindRubric:
		return "rubric"
	default:
		return "plain"
	}
}

// LogicalAssignment is one assignment concept merged across sections sharing
// a name. Sections holds first-seen order and is the documented, stable
// iteration order for every first-match-wins lookup; the maps are keyed by
// the same section ids. Immutable within one report run.
type LogicalAssignment struct {
	Name           NameKey
	Kind           Kind
	PointsPossible float64
	Sections       []canvas.CourseID
	BySection      map[canvas.CourseID]canvas.ID // section -> native assignment id
	QuizBySection  map[canvas.CourseID]canvas.ID // section -> native quiz id, quiz-backed only
}

// Part is a reference to a sub-component of a logical assignment. The union
// is closed: a part is a whole assignment, a quiz question group, or a rubric
// criterion, and nothing else.
type Part interface {
	isPart()
}

// WholeAssignmentPart selects no sub-component; the assignment's own
// submission score and points possible are used.
type WholeAssignmentPart struct{}

func (WholeAssignmentPart) isPart() {}

// QuizGroupRef is one section's native view of a quiz question group.
type QuizGroupRef struct {
	GroupID           canvas.ID
	PickCount         int
	PointsPerQuestion float64
}

// QuizGroupPart references a quiz question group by name. A section missing
// from BySection simply does not offer the group; that is not an error.
type QuizGroupPart struct {
	GroupName NameKey // case-sensitive exact match
	BySection map[canvas.CourseID]QuizGroupRef
}

func (*QuizGroupPart) isPart() {}

// RubricCriterionPart references a rubric criterion by description.
type RubricCriterionPart struct {
	Description    string // original casing, for display
	BySection      map[canvas.CourseID]canvas.ID // section -> native criterion id
	PointsPossible float64
}

func (*RubricCriterionPart) isPart() {}

// Outcome is an instructor-defined learning goal scored against a mastery
// threshold. If an assignment has no entry in Parts, the whole assignment is
// used. Consumed, never mutated, by a report run.
type Outcome struct {
	Name        string
	Description string
	Threshold   float64 // percent in [0,100]
	Assignments []*LogicalAssignment
	Parts       map[NameKey][]Part
}

// Enrollment tracks one student across every selected section. Cross-listed
// students appear in several sections; all memberships matter because a
// submission only counts in a section the student is actually enrolled in.
type Enrollment struct {
	StudentID    canvas.ID
	Name         string
	SortableName string
	Sections     []canvas.CourseID // selection order
}

func (e *Enrollment) EnrolledIn(section canvas.CourseID) bool {
	for _, s := range e.Sections {
		if s == section {
			return true
		}
	}
	return false
}

// Status is the mastery verdict for one (student, outcome) pair.
type Status string

const (
	StatusMet    Status = "Met"
	StatusNotMet Status = "Not Met"
)

// Score is the aggregated result for one (student, outcome) pair.
type Score struct {
	StudentID canvas.ID
	Outcome   string
	Earned    float64
	Possible  float64
}

func (s Score) Percentage() float64 {
	if s.Possible <= 0 {
		return 0
	}
	return s.Earned / s.Possible * 100
}

// StatusFor classifies against a threshold. The boundary is inclusive:
// percentage == threshold is Met.
func (s Score) StatusFor(threshold float64) Status {
	if s.Percentage() >= threshold {
		return StatusMet
	}
	return StatusNotMet
}

// Warning is a non-fatal condition surfaced to the caller instead of being
// swallowed by intermediate steps.
type Warning string
