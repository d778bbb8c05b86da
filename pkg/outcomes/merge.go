package outcomes

import (
	"fmt"

	"github.com/pantherassess/outcomereport/pkg/canvas"
)

// Row is one raw assignment record tagged with the section it came from.
type Row struct {
	Section    canvas.CourseID
	Assignment canvas.Assignment
}

func kindOf(a canvas.Assignment) Kind {
	switch {
	case a.IsQuiz():
		return KindQuiz
	case len(a.Rubric) > 0:
		return KindRubric
	default:
		return KindPlain
	}
}

// Merge collapses per-section assignment records sharing a name into logical
// assignments. The merge key is the exact, case-sensitive name. Points and
// kind come from the first-seen record of each group; when a later section
// disagrees on points the first value is kept and a warning is emitted.
// Pure: no network, no shared state. Empty input yields empty output.
func Merge(rows []Row) ([]*LogicalAssignment, []Warning) {
	var (
		merged   []*LogicalAssignment
		warnings []Warning
		byName   = make(map[NameKey]*LogicalAssignment)
	)

	for _, row := range rows {
		name := NameKey(row.Assignment.Name)
		la, ok := byName[name]
		if !ok {
			la = &LogicalAssignment{
				Name:           name,
				Kind:           kindOf(row.Assignment),
				PointsPossible: row.Assignment.PointsPossible,
				BySection:      make(map[canvas.CourseID]canvas.ID),
				QuizBySection:  make(map[canvas.CourseID]canvas.ID),
			}
			byName[name] = la
			merged = append(merged, la)
		} else if row.Assignment.PointsPossible != la.PointsPossible {
			warnings = append(warnings, Warning(fmt.Sprintf(
				"assignment %q: section %s has %g points possible, keeping first-seen %g",
				name, row.Section, row.Assignment.PointsPossible, la.PointsPossible)))
		}

		if _, seen := la.BySection[row.Section]; !seen {
			la.Sections = append(la.Sections, row.Section)
		}
		la.BySection[row.Section] = row.Assignment.ID
		if row.Assignment.QuizID != "" {
			la.QuizBySection[row.Section] = row.Assignment.QuizID
		}
	}

	return merged, warnings
}

// FindAssignment returns the logical assignment with the given name, or nil.
func FindAssignment(assignments []*LogicalAssignment, name NameKey) *LogicalAssignment {
	for _, la := range assignments {
		if la.Name == name {
			return la
		}
	}
	return nil
}
