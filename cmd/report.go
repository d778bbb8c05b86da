package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pantherassess/outcomereport/internal/utils"
	"github.com/pantherassess/outcomereport/pkg/canvas"
	"github.com/pantherassess/outcomereport/pkg/outcomes"
	"github.com/pantherassess/outcomereport/pkg/storage"
	tmpl "github.com/pantherassess/outcomereport/pkg/template"
)

// reportCmd runs the full pipeline: fetch assignments per section, merge
// same-named assignments, apply a template against the live snapshot, run the
// staged aggregation, write the CSV.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate an outcome mastery report across course sections",
	RunE: func(cmd *cobra.Command, args []string) error {
		coursesFlag, _ := cmd.Flags().GetString("courses")
		templateName, _ := cmd.Flags().GetString("template")
		templateFile, _ := cmd.Flags().GetString("template-file")
		courseCode, _ := cmd.Flags().GetString("course")
		outPath, _ := cmd.Flags().GetString("out")
		showStats, _ := cmd.Flags().GetBool("stats")
		dbPath, _ := cmd.Flags().GetString("dbpath")

		if coursesFlag == "" {
			return fmt.Errorf("provide at least one course id with --courses (see 'outcomereport courses')")
		}
		var courseIDs []canvas.CourseID
		for _, part := range strings.Split(coursesFlag, ",") {
			if id := strings.TrimSpace(part); id != "" {
				courseIDs = append(courseIDs, canvas.CourseID(id))
			}
		}

		doc, err := loadTemplateDocument(cmd, templateName, templateFile, courseCode, dbPath)
		if err != nil {
			return err
		}

		client, err := newCanvasClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		// Snapshot assignments of every selected section and merge by name.
		var rows []outcomes.Row
		var firstCode string
		for _, cid := range courseIDs {
			course, err := client.GetCourse(ctx, cid)
			if err != nil {
				return fmt.Errorf("course %s: %w", cid, err)
			}
			if firstCode == "" && course.CourseCode != "" {
				firstCode = strings.ReplaceAll(course.CourseCode, " ", "")
			}
			utils.Log.Infof("section %s: %s", cid, course.Name)

			assignments, err := client.ListAssignments(ctx, cid)
			if err != nil {
				return fmt.Errorf("assignments of course %s: %w", cid, err)
			}
			for _, a := range assignments {
				rows = append(rows, outcomes.Row{Section: cid, Assignment: a})
			}
		}
		merged, warnings := outcomes.Merge(rows)
		for _, w := range warnings {
			utils.Log.Warn(string(w))
		}
		utils.Log.Infof("merged %d assignment records into %d logical assignments", len(rows), len(merged))

		// Re-resolve the template's name references against this snapshot.
		resolver := outcomes.NewResolver(client)
		outs, match, err := doc.Apply(ctx, merged, resolver)
		if err != nil {
			return err
		}
		for _, w := range match.Warnings {
			utils.Log.Warn(string(w))
		}
		utils.Log.Infof("template %q: %s", doc.Name, match.Summary())
		if match.State == tmpl.MatchNone {
			return fmt.Errorf("template %q matched nothing in the selected sections", doc.Name)
		}

		run := outcomes.NewRun(client, courseIDs, outs)
		report, err := run.Execute(ctx)
		if err != nil {
			return err
		}

		if outPath == "" {
			code := firstCode
			if code == "" {
				code = "course"
			}
			outPath = fmt.Sprintf("%s_outcome_report_%s.csv", code, time.Now().Format("20060102_150405"))
		}
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := report.WriteCSV(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		utils.Log.Infof("wrote %d student rows to %s", len(report.Rows), outPath)

		if showStats {
			printStats(report)
		}
		return nil
	},
}

func loadTemplateDocument(cmd *cobra.Command, name, file, courseCode, dbPath string) (*tmpl.Document, error) {
	switch {
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return tmpl.Decode(f)
	case name != "":
		db, err := storage.Open(templatesDBPath(dbPath))
		if err != nil {
			return nil, err
		}
		defer db.Close()
		row, err := db.GetTemplate(cmd.Context(), name, courseCode)
		if err != nil {
			return nil, err
		}
		return tmpl.Decode(strings.NewReader(row.Document))
	default:
		return nil, fmt.Errorf("provide an outcome configuration with --template NAME or --template-file FILE")
	}
}

func printStats(report *outcomes.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "OUTCOME\tTHRESHOLD\tSTUDENTS\tMEAN\tMEDIAN\tSTDDEV\tMET\t")
	for _, s := range report.Stats() {
		fmt.Fprintf(w, "%s\t%.0f%%\t%d\t%.1f\t%.1f\t%.1f\t%.1f%%\t\n",
			s.Name, s.Threshold, s.Count, s.Mean, s.Median, s.StdDev, s.PercentMet)
	}
	w.Flush()
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("courses", "c", "", "Comma-separated course section ids to report across")
	reportCmd.Flags().StringP("template", "t", "", "Name of a stored template to apply")
	reportCmd.Flags().StringP("template-file", "f", "", "Path of a template JSON file to apply")
	reportCmd.Flags().StringP("course", "", "", "Course code disambiguating the stored template lookup")
	reportCmd.Flags().StringP("out", "o", "", "Output CSV path (default <code>_outcome_report_<timestamp>.csv)")
	reportCmd.Flags().BoolP("stats", "", false, "Print per-outcome statistics after the report")
	reportCmd.Flags().StringP("dbpath", "", "", "Path of the template database")
}
