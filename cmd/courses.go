package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// coursesCmd lists the instructor's active course sections so their ids can
// be passed to `report --courses`.
var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List your active course sections",
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")

		client, err := newCanvasClient()
		if err != nil {
			return err
		}

		courses, err := client.ListCourses(cmd.Context(), "teacher")
		if err != nil {
			return err
		}

		search = strings.ToLower(search)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCODE\tTERM\tSTUDENTS\t")
		shown := 0
		for _, c := range courses {
			if search != "" &&
				!strings.Contains(strings.ToLower(c.Name), search) &&
				!strings.Contains(strings.ToLower(c.CourseCode), search) {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t\n", c.ID, c.Name, c.CourseCode, c.Term, c.TotalStudents)
			shown++
		}
		w.Flush()

		if shown == 0 {
			fmt.Println("No matching courses found.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(coursesCmd)
	coursesCmd.Flags().StringP("search", "s", "", "Filter courses by name or course code")
}
