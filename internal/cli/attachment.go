package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var attachmentCmd = &cobra.Command{
	Use:   "attachment <token>",
	Short: "Show an attachment's details and download link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		preview, err := env.loader.Preview(cmd.Context(), args[0])
		if err != nil {
			return describe(err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "name:    %s\n", preview.Name)
		fmt.Fprintf(out, "type:    %s (%s)\n", preview.ContentType, preview.Kind)
		fmt.Fprintf(out, "size:    %s\n", preview.Size)
		if !preview.ExpiryDate.IsZero() {
			fmt.Fprintf(out, "expires: %s\n", preview.ExpiryDate.Format("2006-01-02 15:04"))
		}
		if preview.Expired {
			fmt.Fprintln(out, "expired: yes")
			return nil
		}
		fmt.Fprintf(out, "url:     %s\n", preview.Link.URL)
		return nil
	},
}
