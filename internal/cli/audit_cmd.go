package cli

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/stageflow/internal/audit"
	"github.com/alexanderramin/stageflow/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newAuditCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.AuditDB == nil {
				return errors.New("audit events are not stored in the database; set STAGEFLOW_AUDIT=db or both")
			}
			recs, err := audit.ListRecent(cmd.Context(), app.AuditDB, limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(w, "No audit events.")
				return nil
			}
			rows := make([][]string, len(recs))
			for i, r := range recs {
				rows[i] = []string{formatter.Timestamp(r.At), r.Level, r.Action, r.UserID, formatter.Truncate(r.Message, 60)}
			}
			fmt.Fprint(w, formatter.RenderTable([]string{"AT", "LEVEL", "ACTION", "USER", "MESSAGE"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of events to show")
	return cmd
}
