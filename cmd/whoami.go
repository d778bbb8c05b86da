package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// whoamiCmd verifies the configured Canvas URL and token.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Verify the API token and print the authenticated user",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newCanvasClient()
		if err != nil {
			return err
		}

		user, err := client.UserSelf(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Authenticated as %s (user id %s)\n", user.Name, user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
