package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pantherassess/outcomereport/internal/utils"
	"github.com/pantherassess/outcomereport/pkg/storage"
	tmpl "github.com/pantherassess/outcomereport/pkg/template"
)

// templateCmd groups the template store operations. Templates are name-keyed
// JSON documents; authoring happens by editing a JSON file and importing it.
var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage outcome configuration templates",
}

func openTemplateDB(cmd *cobra.Command) (*storage.DB, error) {
	dbPath, _ := cmd.Flags().GetString("dbpath")
	return storage.Open(templatesDBPath(dbPath))
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		courseCode, _ := cmd.Flags().GetString("course")

		db, err := openTemplateDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		templates, err := db.ListTemplates(cmd.Context(), courseCode)
		if err != nil {
			return err
		}
		if len(templates) == 0 {
			fmt.Println("No templates stored.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tCOURSE\tOUTCOMES\tMODIFIED\t")
		for _, row := range templates {
			outcomeCount := "?"
			if doc, err := tmpl.Decode(strings.NewReader(row.Document)); err == nil {
				outcomeCount = fmt.Sprint(len(doc.Outcomes))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
				row.Name, row.CourseCode, outcomeCount, row.ModifiedAt.Format("2006-01-02 15:04"))
		}
		w.Flush()
		return nil
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a stored template document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseCode, _ := cmd.Flags().GetString("course")

		db, err := openTemplateDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		row, err := db.GetTemplate(cmd.Context(), args[0], courseCode)
		if err != nil {
			return err
		}
		fmt.Println(strings.TrimSpace(row.Document))
		return nil
	},
}

var templateImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a template document into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		doc, err := tmpl.Decode(f)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := tmpl.Encode(&buf, doc); err != nil {
			return err
		}

		db, err := openTemplateDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		err = db.SaveTemplate(cmd.Context(), storage.TemplateRow{
			Name:       doc.Name,
			CourseCode: doc.CourseCode,
			Notes:      doc.Notes,
			Document:   buf.String(),
			CreatedAt:  doc.CreatedAt,
		})
		if err != nil {
			return err
		}
		utils.Log.Infof("imported template %q (%d outcomes)", doc.Name, len(doc.Outcomes))
		return nil
	},
}

var templateExportCmd = &cobra.Command{
	Use:   "export NAME [FILE]",
	Short: "Export a stored template to a JSON file",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseCode, _ := cmd.Flags().GetString("course")

		db, err := openTemplateDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		row, err := db.GetTemplate(cmd.Context(), args[0], courseCode)
		if err != nil {
			return err
		}

		outPath := utils.SafeFileName(row.Name) + ".json"
		if len(args) == 2 {
			outPath = args[1]
		}
		if err := os.WriteFile(outPath, []byte(row.Document), 0o644); err != nil {
			return err
		}
		utils.Log.Infof("exported template %q to %s", row.Name, outPath)
		return nil
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a stored template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseCode, _ := cmd.Flags().GetString("course")

		db, err := openTemplateDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		deleted, err := db.DeleteTemplate(cmd.Context(), args[0], courseCode)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("no template named %q", args[0])
		}
		utils.Log.Infof("deleted template %q", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateListCmd, templateShowCmd, templateImportCmd, templateExportCmd, templateDeleteCmd)

	templateCmd.PersistentFlags().StringP("dbpath", "", "", "Path of the template database")
	templateCmd.PersistentFlags().StringP("course", "", "", "Course code filter")
}
