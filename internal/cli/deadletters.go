package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nhle/career-planner/internal/store"
	"github.com/nhle/career-planner/internal/theme"
)

func newDeadLettersCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "deadletters",
		Short: "List notices that could not be delivered to the parent app",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			letters, err := st.ListDeadLetters(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderDeadLetters(cmd.OutOrStdout(), letters)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show (0 for all)")
	return cmd
}

func renderDeadLetters(w io.Writer, letters []store.DeadLetter) error {
	if len(letters) == 0 {
		_, err := fmt.Fprintln(w, theme.HelpStyle.Render("No undelivered notices."))
		return err
	}

	if _, err := fmt.Fprintln(w, theme.HeaderStyle.Render(fmt.Sprintf("Undelivered notices (%d)", len(letters)))); err != nil {
		return err
	}
	for _, dl := range letters {
		line := lipgloss.JoinHorizontal(lipgloss.Top,
			theme.LabelStyle.Render(dl.CreatedAt.Local().Format("01-02 15:04:05")),
			theme.StatusStyle(dl.Kind).Render(dl.Kind),
			" "+dl.UserID+" "+dl.EventType+" ",
			theme.OverdueStyle(1).Render(dl.Error),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
