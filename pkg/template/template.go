// Package template converts outcome configurations to and from a durable,
// name-keyed form. Native Canvas ids are never persisted: they are re-minted
// every section/term, so only names and descriptions survive, and every part
// reference is re-resolved against the live snapshot on load.
package template

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pantherassess/outcomereport/pkg/outcomes"
)

// Document is the persisted form of an outcome configuration.
type Document struct {
	Name       string          `json:"template_name"`
	CourseCode string          `json:"course_code,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ModifiedAt time.Time       `json:"modified_at"`
	Outcomes   []OutcomeRecord `json:"outcomes"`
}

type OutcomeRecord struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Threshold   float64            `json:"threshold"`
	Assignments []AssignmentRecord `json:"assignments"`
}

// AssignmentRecord references an assignment and, optionally, named sub-parts.
// With no parts listed the whole assignment is scored.
type AssignmentRecord struct {
	Name           string   `json:"name"`
	QuizGroups     []string `json:"quiz_groups,omitempty"`
	RubricCriteria []string `json:"rubric_criteria,omitempty"`
}

// Serialize strips an outcome set down to its name references.
func Serialize(name, courseCode, notes string, outs []*outcomes.Outcome, now time.Time) *Document {
	doc := &Document{
		Name:       name,
		CourseCode: courseCode,
		Notes:      notes,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	for _, o := range outs {
		rec := OutcomeRecord{
			Name:        o.Name,
			Description: o.Description,
			Threshold:   o.Threshold,
		}
		for _, la := range o.Assignments {
			ar := AssignmentRecord{Name: string(la.Name)}
			for _, p := range o.Parts[la.Name] {
				switch part := p.(type) {
				case outcomes.WholeAssignmentPart:
					// Whole assignment is the absence of parts.
				case *outcomes.QuizGroupPart:
					ar.QuizGroups = append(ar.QuizGroups, string(part.GroupName))
				case *outcomes.RubricCriterionPart:
					ar.RubricCriteria = append(ar.RubricCriteria, part.Description)
				default:
					panic(fmt.Sprintf("template: unhandled part type %T", p))
				}
			}
			rec.Assignments = append(rec.Assignments, ar)
		}
		doc.Outcomes = append(doc.Outcomes, rec)
	}
	return doc
}

func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("template: decoding document: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("template: document has no template_name")
	}
	return &doc, nil
}

// MatchState classifies how much of a template found a home in the current
// assignment snapshot.
type MatchState int

const (
	MatchNone MatchState = iota
	MatchPartial
	MatchFull
)

// MatchReport is returned by Apply. Matched counts assignment references
// across all outcomes, so a template referencing A, B and C applied to a
// snapshot holding only A and C reports "partially matched, 2 of 3".
type MatchReport struct {
	State    MatchState
	Matched  int
	Total    int
	Warnings []outcomes.Warning
}

func (m MatchReport) Summary() string {
	switch m.State {
	case MatchFull:
		return fmt.Sprintf("fully matched, %d assignment(s)", m.Total)
	case MatchPartial:
		return fmt.Sprintf("partially matched, %d of %d assignment(s)", m.Matched, m.Total)
	default:
		return "no match: none of the template's assignments were found"
	}
}

// Apply rebuilds outcomes from the document against the current snapshot:
// assignments are matched by exact name, and every named part is re-resolved
// to the sections' current native ids. Missing assignments are dropped with a
// warning; an outcome that loses every assignment is dropped entirely. The
// caller decides how to treat a MatchNone result.
func (d *Document) Apply(ctx context.Context, current []*outcomes.LogicalAssignment, resolver *outcomes.Resolver) ([]*outcomes.Outcome, MatchReport, error) {
	var (
		outs   []*outcomes.Outcome
		report MatchReport
	)

	for _, rec := range d.Outcomes {
		o := &outcomes.Outcome{
			Name:        rec.Name,
			Description: rec.Description,
			Threshold:   rec.Threshold,
			Parts:       make(map[outcomes.NameKey][]outcomes.Part),
		}

		for _, ar := range rec.Assignments {
			report.Total++
			la := outcomes.FindAssignment(current, outcomes.NameKey(ar.Name))
			if la == nil {
				report.Warnings = append(report.Warnings, outcomes.Warning(fmt.Sprintf(
					"outcome %q: assignment %q not found in the selected sections, dropped", rec.Name, ar.Name)))
				continue
			}
			report.Matched++
			o.Assignments = append(o.Assignments, la)

			var parts []outcomes.Part
			for _, groupName := range ar.QuizGroups {
				part, warns, err := resolver.QuizGroup(ctx, la, outcomes.NameKey(groupName))
				if err != nil {
					return nil, report, err
				}
				report.Warnings = append(report.Warnings, warns...)
				parts = append(parts, part)
			}
			for _, description := range ar.RubricCriteria {
				part, warns, err := resolver.RubricCriterion(ctx, la, description)
				if err != nil {
					return nil, report, err
				}
				report.Warnings = append(report.Warnings, warns...)
				parts = append(parts, part)
			}
			if len(parts) > 0 {
				o.Parts[la.Name] = parts
			}
		}

		if len(o.Assignments) == 0 {
			report.Warnings = append(report.Warnings, outcomes.Warning(fmt.Sprintf(
				"outcome %q: no assignments matched, outcome dropped", rec.Name)))
			continue
		}
		outs = append(outs, o)
	}

	switch {
	case report.Total == 0 || report.Matched == 0:
		report.State = MatchNone
	case report.Matched == report.Total:
		report.State = MatchFull
	default:
		report.State = MatchPartial
	}
	return outs, report, nil
}
