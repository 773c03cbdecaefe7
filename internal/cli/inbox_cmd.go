package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/alexanderramin/stageflow/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newInboxCmd(app *App) *cobra.Command {
	var ack bool

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Show undelivered notifications for the acting user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Inbox == nil {
				return errors.New("inbox is not configured")
			}
			ctx := cmd.Context()
			user, err := actingUser(cmd)
			if err != nil {
				return err
			}
			notes, err := app.Inbox.Pending(ctx, user)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(notes) == 0 {
				fmt.Fprintln(w, "Inbox empty.")
				return nil
			}

			rows := make([][]string, len(notes))
			for i, n := range notes {
				rows[i] = []string{formatter.Timestamp(n.CreatedAt), n.Kind, payloadSummary(n.Payload)}
			}
			fmt.Fprint(w, formatter.RenderTable([]string{"AT", "KIND", "DETAILS"}, rows))

			if !ack {
				return nil
			}
			now := app.Clock.Now()
			for _, n := range notes {
				if err := app.Inbox.MarkDelivered(ctx, n.ID, now); err != nil {
					return err
				}
			}
			fmt.Fprintf(w, "Marked %d notification(s) delivered\n", len(notes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&ack, "ack", false, "Mark the listed notifications as delivered")
	return cmd
}

// payloadSummary renders a payload as sorted key=value pairs.
func payloadSummary(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, payload[k])
	}
	return formatter.Truncate(strings.Join(parts, " "), 80)
}
