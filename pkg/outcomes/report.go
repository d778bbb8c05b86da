package outcomes

import (
	"encoding/csv"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/pantherassess/outcomereport/pkg/canvas"
)

// ReportRow is one student's line of the export. A nil cell means no data was
// found for that assignment and renders empty, never as zero.
type ReportRow struct {
	StudentID   canvas.ID
	StudentName string
	Section     canvas.CourseID // first enrolled section
	Cells       map[string]*float64
	Scores      map[string]Score // by outcome name
}

// Report is the tabular output of a run: one row per student, columns
// Student ID, Student Name, Section ID, one column per (outcome, assignment)
// pair, then "<Outcome> Total (%)" and "<Outcome> Status" per outcome.
// Instructors read the export by column name, so the layout is a contract.
type Report struct {
	Columns  []string
	Rows     []*ReportRow
	outcomes []*Outcome
}

func assignmentColumn(outcomeName string, assignment NameKey) string {
	return outcomeName + " - " + string(assignment)
}

func newReport(outs []*Outcome) *Report {
	columns := []string{"Student ID", "Student Name", "Section ID"}
	for _, o := range outs {
		for _, la := range o.Assignments {
			columns = append(columns, assignmentColumn(o.Name, la.Name))
		}
		columns = append(columns, o.Name+" Total (%)", o.Name+" Status")
	}
	return &Report{Columns: columns, outcomes: outs}
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (r *Report) record(row *ReportRow) []string {
	rec := []string{string(row.StudentID), row.StudentName, string(row.Section)}
	for _, o := range r.outcomes {
		for _, la := range o.Assignments {
			if cell := row.Cells[assignmentColumn(o.Name, la.Name)]; cell != nil {
				rec = append(rec, formatPoints(*cell))
			} else {
				rec = append(rec, "")
			}
		}
		score := row.Scores[o.Name]
		rec = append(rec,
			strconv.Itoa(int(math.Round(score.Percentage()))),
			string(score.StatusFor(o.Threshold)))
	}
	return rec
}

// WriteCSV writes the report with a header row, preserving the column
// contract verbatim.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Columns); err != nil {
		return err
	}
	for _, row := range r.Rows {
		if err := cw.Write(r.record(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// OutcomeStats summarizes one outcome across all students in the report.
type OutcomeStats struct {
	Name       string
	Threshold  float64
	Count      int
	Mean       float64
	Median     float64
	StdDev     float64
	PercentMet float64
}

// Stats computes per-outcome distribution statistics over every student row.
func (r *Report) Stats() []OutcomeStats {
	stats := make([]OutcomeStats, 0, len(r.outcomes))
	for _, o := range r.outcomes {
		var percentages []float64
		met := 0
		for _, row := range r.Rows {
			score := row.Scores[o.Name]
			percentages = append(percentages, score.Percentage())
			if score.StatusFor(o.Threshold) == StatusMet {
				met++
			}
		}
		s := OutcomeStats{Name: o.Name, Threshold: o.Threshold, Count: len(percentages)}
		if s.Count > 0 {
			s.Mean = mean(percentages)
			s.Median = median(percentages)
			s.StdDev = sampleStdDev(percentages, s.Mean)
			s.PercentMet = float64(met) / float64(s.Count) * 100
		}
		stats = append(stats, s)
	}
	return stats
}

func mean(vs []float64) float64 {
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func median(vs []float64) float64 {
	sorted := make([]float64, len(vs))
	copy(sorted, vs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func sampleStdDev(vs []float64, m float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vs)-1))
}
