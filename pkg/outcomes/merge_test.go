package outcomes

import (
	"reflect"
	"testing"

	"github.com/pantherassess/outcomereport/pkg/canvas"
)

func row(section canvas.CourseID, id canvas.ID, name string, points float64) Row {
	return Row{
		Section:    section,
		Assignment: canvas.Assignment{ID: id, Name: name, PointsPossible: points},
	}
}

func TestMergeByNameAcrossSections(t *testing.T) {
	merged, warnings := Merge([]Row{
		row("S1", "101", "Midterm", 100),
		row("S2", "205", "Midterm", 100),
	})

	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(merged) != 1 {
		t.Fatalf("expected 1 logical assignment, got %d", len(merged))
	}

	la := merged[0]
	want := map[canvas.CourseID]canvas.ID{"S1": "101", "S2": "205"}
	if !reflect.DeepEqual(la.BySection, want) {
		t.Fatalf("expected bySection %v, got %v", want, la.BySection)
	}
	if len(la.Sections) != 2 || la.Sections[0] != "S1" || la.Sections[1] != "S2" {
		t.Fatalf("expected section order [S1 S2], got %v", la.Sections)
	}
}

func TestMergeNameIsCaseSensitive(t *testing.T) {
	merged, _ := Merge([]Row{
		row("S1", "1", "Midterm", 100),
		row("S2", "2", "midterm", 100),
	})
	if len(merged) != 2 {
		t.Fatalf("expected 2 logical assignments for differently-cased names, got %d", len(merged))
	}
}

func TestMergeIdempotent(t *testing.T) {
	rows := []Row{
		row("S1", "101", "Midterm", 100),
		row("S2", "205", "Midterm", 100),
		row("S1", "102", "Final", 50),
		row("S2", "206", "Final", 50),
	}
	reordered := []Row{rows[3], rows[1], rows[2], rows[0]}

	first, _ := Merge(rows)
	second, _ := Merge(rows)
	shuffled, _ := Merge(reordered)

	asMaps := func(las []*LogicalAssignment) map[NameKey]map[canvas.CourseID]canvas.ID {
		out := make(map[NameKey]map[canvas.CourseID]canvas.ID)
		for _, la := range las {
			out[la.Name] = la.BySection
		}
		return out
	}

	if !reflect.DeepEqual(asMaps(first), asMaps(second)) {
		t.Fatalf("merging the same rows twice produced different bySection maps")
	}
	if !reflect.DeepEqual(asMaps(first), asMaps(shuffled)) {
		t.Fatalf("row order changed bySection map contents: %v vs %v", asMaps(first), asMaps(shuffled))
	}
}

func TestMergeEmptyInput(t *testing.T) {
	merged, warnings := Merge(nil)
	if len(merged) != 0 || len(warnings) != 0 {
		t.Fatalf("expected empty output for empty input, got %d assignments, %d warnings", len(merged), len(warnings))
	}
}

func TestMergeFirstSeenPointsWinWithWarning(t *testing.T) {
	merged, warnings := Merge([]Row{
		row("S1", "1", "Essay", 20),
		row("S2", "2", "Essay", 25),
	})
	if merged[0].PointsPossible != 20 {
		t.Fatalf("expected first-seen points 20, got %g", merged[0].PointsPossible)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning for points mismatch, got %d", len(warnings))
	}
}

func TestMergeQuizKind(t *testing.T) {
	merged, _ := Merge([]Row{{
		Section:    "S1",
		Assignment: canvas.Assignment{ID: "10", Name: "Quiz1", QuizID: "100", PointsPossible: 10},
	}})
	la := merged[0]
	if la.Kind != KindQuiz {
		t.Fatalf("expected quiz kind, got %v", la.Kind)
	}
	if la.QuizBySection["S1"] != "100" {
		t.Fatalf("expected quiz id 100 for S1, got %s", la.QuizBySection["S1"])
	}
}
