package outcomes

import (
	"context"
	"fmt"
	"sort"

	"github.com/pantherassess/outcomereport/internal/utils"
	"github.com/pantherassess/outcomereport/pkg/canvas"
)

// Stage labels the sequential phases of a report run. Each stage fully
// materializes its cache before the next starts; later stages index by what
// earlier stages cached, so nothing interleaves.
type Stage int

const (
	StageIdle Stage = iota
	StageFetchingRoster
	StageFetchingSubmissions
	StageFetchingQuizDetail
	StageFetchingRubricDetail
	StageComputing
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageFetchingRoster:
		return "fetching roster"
	case StageFetchingSubmissions:
		return "fetching submissions"
	case StageFetchingQuizDetail:
		return "fetching quiz detail"
	case StageFetchingRubricDetail:
		return "fetching rubric detail"
	case StageComputing:
		return "computing"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

type quizCellKey struct {
	Section canvas.CourseID
	QuizID  canvas.ID
	Student canvas.ID
}

type rubricCellKey struct {
	Section      canvas.CourseID
	AssignmentID canvas.ID
	Student      canvas.ID
}

// Run owns the caches of a single report generation. Caches are built once,
// read many times, and never shared across runs, so no locking is needed in
// the single-threaded pipeline.
type Run struct {
	src      Source
	sections []canvas.CourseID
	outcomes []*Outcome

	stage    Stage
	students map[canvas.ID]*Enrollment
	order    []canvas.ID // roster insertion order

	// submissions holds graded whole-assignment scores per logical
	// assignment, already filtered to enrolled sections. First enrolled
	// section wins for cross-listed students.
	submissions map[NameKey]map[canvas.ID]float64

	// quizData: per (section, quiz, student), answered questions by group id.
	quizData map[quizCellKey]map[canvas.ID][]canvas.QuizSubmissionQuestion

	// rubricData: per (section, assignment, student), awarded points by
	// criterion id.
	rubricData map[rubricCellKey]map[canvas.ID]float64
}

// NewRun prepares a report run over the given sections (in selection order,
// which fixes every first-match-wins ordering) and outcomes.
func NewRun(src Source, sections []canvas.CourseID, outcomes []*Outcome) *Run {
	return &Run{
		src:         src,
		sections:    sections,
		outcomes:    outcomes,
		stage:       StageIdle,
		students:    make(map[canvas.ID]*Enrollment),
		submissions: make(map[NameKey]map[canvas.ID]float64),
		quizData:    make(map[quizCellKey]map[canvas.ID][]canvas.QuizSubmissionQuestion),
		rubricData:  make(map[rubricCellKey]map[canvas.ID]float64),
	}
}

// Stage reports the pipeline phase the run is in.
func (r *Run) Stage() Stage { return r.stage }

// Execute drives the run to completion. Cancellation is honored between
// stages and between per-student iterations while computing; an in-flight
// request is bounded only by its own timeout.
func (r *Run) Execute(ctx context.Context) (*Report, error) {
	type step struct {
		stage Stage
		fn    func(context.Context) error
	}
	steps := []step{
		{StageFetchingRoster, r.fetchRoster},
		{StageFetchingSubmissions, r.fetchSubmissions},
		{StageFetchingQuizDetail, r.fetchQuizDetail},
		{StageFetchingRubricDetail, r.fetchRubricDetail},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.stage = s.stage
		utils.Log.Debugf("report run: %s", s.stage)
		if err := s.fn(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", s.stage, err)
		}
	}

	r.stage = StageComputing
	report, err := r.compute(ctx)
	if err != nil {
		return nil, err
	}
	r.stage = StageDone
	return report, nil
}

// uniqueAssignments returns every distinct logical assignment referenced by
// the run's outcomes, in first-reference order.
func (r *Run) uniqueAssignments() []*LogicalAssignment {
	seen := make(map[NameKey]bool)
	var out []*LogicalAssignment
	for _, o := range r.outcomes {
		for _, la := range o.Assignments {
			if !seen[la.Name] {
				seen[la.Name] = true
				out = append(out, la)
			}
		}
	}
	return out
}

// partsFor returns the configured parts of an assignment within an outcome,
// defaulting to the whole assignment.
func (o *Outcome) partsFor(name NameKey) []Part {
	if parts, ok := o.Parts[name]; ok && len(parts) > 0 {
		return parts
	}
	return []Part{WholeAssignmentPart{}}
}

func (r *Run) hasPartKind(la *LogicalAssignment, match func(Part) bool) bool {
	for _, o := range r.outcomes {
		for _, a := range o.Assignments {
			if a.Name != la.Name {
				continue
			}
			for _, p := range o.partsFor(la.Name) {
				if match(p) {
					return true
				}
			}
		}
	}
	return false
}

// A stage-opening failure invalidates every score, so roster errors abort.
func (r *Run) fetchRoster(ctx context.Context) error {
	for _, section := range r.sections {
		enrollments, err := r.src.ListEnrollments(ctx, section)
		if err != nil {
			return err
		}
		for _, e := range enrollments {
			if e.UserID == "" {
				continue
			}
			student, ok := r.students[e.UserID]
			if !ok {
				student = &Enrollment{
					StudentID:    e.UserID,
					Name:         e.Name,
					SortableName: e.SortableName,
				}
				r.students[e.UserID] = student
				r.order = append(r.order, e.UserID)
			}
			if !student.EnrolledIn(section) {
				student.Sections = append(student.Sections, section)
			}
		}
	}
	return nil
}

// cellErr applies the per-cell failure policy: one section's failure must not
// invalidate every other student's score, so the cell is logged and skipped.
// Auth failures are never recoverable and abort.
func cellErr(err error, what string, section canvas.CourseID) error {
	if canvas.IsAuthError(err) {
		return err
	}
	utils.Log.Warnf("skipping %s for section %s: %v", what, section, err)
	return nil
}

func (r *Run) fetchSubmissions(ctx context.Context) error {
	for _, la := range r.uniqueAssignments() {
		cells, ok := r.submissions[la.Name]
		if !ok {
			cells = make(map[canvas.ID]float64)
			r.submissions[la.Name] = cells
		}
		for _, section := range la.Sections {
			subs, err := r.src.ListSubmissions(ctx, section, la.BySection[section])
			if err != nil {
				if aerr := cellErr(err, fmt.Sprintf("submissions of %q", la.Name), section); aerr != nil {
					return aerr
				}
				continue
			}
			for _, sub := range subs {
				student := r.students[sub.UserID]
				if student == nil || !student.EnrolledIn(section) {
					continue
				}
				if sub.WorkflowState != "graded" || sub.Score == nil {
					continue
				}
				// First section in bySection order wins for
				// multi-enrolled students.
				if _, dup := cells[sub.UserID]; !dup {
					cells[sub.UserID] = *sub.Score
				}
			}
		}
	}
	return nil
}

func (r *Run) fetchQuizDetail(ctx context.Context) error {
	for _, la := range r.uniqueAssignments() {
		needed := r.hasPartKind(la, func(p Part) bool {
			_, ok := p.(*QuizGroupPart)
			return ok
		})
		if !needed {
			continue
		}
		for _, section := range la.Sections {
			quizID, ok := la.QuizBySection[section]
			if !ok {
				continue
			}
			quizSubs, err := r.src.ListQuizSubmissions(ctx, section, quizID)
			if err != nil {
				if aerr := cellErr(err, fmt.Sprintf("quiz submissions of %q", la.Name), section); aerr != nil {
					return aerr
				}
				continue
			}
			for _, qs := range quizSubs {
				student := r.students[qs.UserID]
				if student == nil || !student.EnrolledIn(section) {
					continue
				}
				questions, err := r.src.ListQuizSubmissionQuestions(ctx, qs.ID)
				if err != nil {
					if aerr := cellErr(err, fmt.Sprintf("quiz submission %s", qs.ID), section); aerr != nil {
						return aerr
					}
					continue
				}
				key := quizCellKey{Section: section, QuizID: quizID, Student: qs.UserID}
				byGroup, ok := r.quizData[key]
				if !ok {
					byGroup = make(map[canvas.ID][]canvas.QuizSubmissionQuestion)
					r.quizData[key] = byGroup
				}
				for _, q := range questions {
					if q.GroupID != "" {
						byGroup[q.GroupID] = append(byGroup[q.GroupID], q)
					}
				}
			}
		}
	}
	return nil
}

func (r *Run) fetchRubricDetail(ctx context.Context) error {
	for _, la := range r.uniqueAssignments() {
		needed := r.hasPartKind(la, func(p Part) bool {
			_, ok := p.(*RubricCriterionPart)
			return ok
		})
		if !needed {
			continue
		}
		for _, section := range la.Sections {
			assignmentID := la.BySection[section]
			subs, err := r.src.ListSubmissions(ctx, section, assignmentID)
			if err != nil {
				if aerr := cellErr(err, fmt.Sprintf("rubric assessments of %q", la.Name), section); aerr != nil {
					return aerr
				}
				continue
			}
			for _, sub := range subs {
				student := r.students[sub.UserID]
				if student == nil || !student.EnrolledIn(section) {
					continue
				}
				if len(sub.RubricAssessment) == 0 {
					continue
				}
				key := rubricCellKey{Section: section, AssignmentID: assignmentID, Student: sub.UserID}
				assessment := make(map[canvas.ID]float64, len(sub.RubricAssessment))
				for critID, points := range sub.RubricAssessment {
					assessment[critID] = points
				}
				r.rubricData[key] = assessment
			}
		}
	}
	return nil
}

// assignmentCell sums one assignment's configured parts for one student.
// found is false when no part produced data, which renders as an empty cell
// rather than a zero.
func (r *Run) assignmentCell(o *Outcome, la *LogicalAssignment, studentID canvas.ID) (earned, possible float64, found bool) {
	student := r.students[studentID]

	for _, p := range o.partsFor(la.Name) {
		switch part := p.(type) {
		case WholeAssignmentPart:
			if score, ok := r.submissions[la.Name][studentID]; ok {
				earned += score
				possible += la.PointsPossible
				found = true
			}
			// An absent submission contributes nothing: it is
			// excluded, not scored as zero-possible.

		case *QuizGroupPart:
			for _, section := range la.Sections {
				if !student.EnrolledIn(section) {
					continue
				}
				ref, ok := part.BySection[section]
				if !ok {
					continue
				}
				quizID := la.QuizBySection[section]
				byGroup, ok := r.quizData[quizCellKey{Section: section, QuizID: quizID, Student: studentID}]
				if !ok {
					continue
				}
				questions, ok := byGroup[ref.GroupID]
				if !ok {
					continue
				}
				// Possible points use the delivered question
				// count, not the configured pick count:
				// randomized banks hand different students
				// different numbers of questions.
				correct := 0
				for _, q := range questions {
					if q.Correct {
						correct++
					}
				}
				earned += float64(correct) * ref.PointsPerQuestion
				possible += float64(len(questions)) * ref.PointsPerQuestion
				found = true
				break // single-count: first enrolled section only
			}

		case *RubricCriterionPart:
			for _, section := range la.Sections {
				if !student.EnrolledIn(section) {
					continue
				}
				criterionID, ok := part.BySection[section]
				if !ok {
					continue
				}
				assessment, ok := r.rubricData[rubricCellKey{Section: section, AssignmentID: la.BySection[section], Student: studentID}]
				if !ok {
					continue
				}
				points, ok := assessment[criterionID]
				if !ok {
					continue
				}
				earned += points
				possible += part.PointsPossible
				found = true
				break
			}

		default:
			panic(fmt.Sprintf("outcomes: unhandled part type %T", p))
		}
	}
	return earned, possible, found
}

func (r *Run) compute(ctx context.Context) (*Report, error) {
	report := newReport(r.outcomes)

	// Sorted by sortable name for a reproducible spreadsheet; ties fall
	// back to roster order.
	ids := make([]canvas.ID, len(r.order))
	copy(ids, r.order)
	sort.SliceStable(ids, func(i, j int) bool {
		return r.students[ids[i]].SortableName < r.students[ids[j]].SortableName
	})

	for _, studentID := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		student := r.students[studentID]

		row := &ReportRow{
			StudentID:   studentID,
			StudentName: student.SortableName,
			Scores:      make(map[string]Score, len(r.outcomes)),
			Cells:       make(map[string]*float64),
		}
		if len(student.Sections) > 0 {
			row.Section = student.Sections[0]
		}

		for _, o := range r.outcomes {
			total := Score{StudentID: studentID, Outcome: o.Name}
			for _, la := range o.Assignments {
				earned, possible, found := r.assignmentCell(o, la, studentID)
				col := assignmentColumn(o.Name, la.Name)
				if found {
					e := earned
					row.Cells[col] = &e
					total.Earned += earned
					total.Possible += possible
				} else {
					row.Cells[col] = nil
				}
			}
			row.Scores[o.Name] = total
		}

		report.Rows = append(report.Rows, row)
	}

	return report, nil
}
