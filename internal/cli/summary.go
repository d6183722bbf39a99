package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nhle/career-planner/internal/auth"
	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/theme"
)

func newSummaryCommand(a *app) *cobra.Command {
	var (
		userID string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a user's progress summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			svc := a.wire(st, nil, false)
			ctx := auth.WithPrincipal(cmd.Context(), auth.Principal{UserID: userID})
			sum, err := svc.planner.Summary(ctx)
			if err != nil {
				return fmt.Errorf("computing summary for %s: %w", userID, err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}
			return renderSummary(cmd.OutOrStdout(), userID, sum)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID to summarize")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func row(label, value string, style lipgloss.Style) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, theme.LabelStyle.Render(label), style.Render(value))
}

func ratio(done, total int) string {
	return strconv.Itoa(done) + "/" + strconv.Itoa(total)
}

// renderSummary writes sum as a styled panel.
func renderSummary(w io.Writer, userID string, sum model.ProgressSummary) error {
	t := sum.Totals
	rows := []string{
		row("Active goals", strconv.Itoa(t.ActiveGoals), theme.ValueStyle),
		row("Milestones done", ratio(t.MilestonesDone, t.MilestonesTotal), theme.ProgressStyle(t.MilestonesDone, t.MilestonesTotal)),
		row("Tasks done", ratio(t.TasksDone, t.TasksTotal), theme.ProgressStyle(t.TasksDone, t.TasksTotal)),
		row("Overdue tasks", strconv.Itoa(t.OverdueTasks), theme.OverdueStyle(t.OverdueTasks)),
		row("Last completed", formatTime(sum.Activity.LastCompletedAt), theme.ValueStyle),
		row("Last activity", formatTime(&sum.Activity.LastActivityAt), theme.ValueStyle),
	}

	out := []string{
		theme.HeaderStyle.Render("Career progress · " + userID),
		theme.PanelStyle.Render(strings.Join(rows, "\n")),
		theme.HelpStyle.Render(fmt.Sprintf("%s v%d, generated %s", sum.AppID, sum.Version, formatTime(&sum.GeneratedAt))),
	}
	_, err := fmt.Fprintln(w, strings.Join(out, "\n"))
	return err
}
