package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/store"
	"github.com/spec-kit/support-portal/internal/tracking"
)

var (
	trackRate string
	guestID   string
)

var trackCmd = &cobra.Command{
	Use:   "track <code>",
	Short: "Show a ticket by its tracking code",
	Long: `Show a ticket by the code printed when it was verified, with its answers and
attachments. Answered tickets can be rated once with --rate.

Examples:
  support track TCK-4821
  support track TCK-4821 --rate satisfied`,
	Args: cobra.ExactArgs(1),
	RunE: runTrack,
}

var rateCmd = &cobra.Command{
	Use:   "rate <code> <satisfied|dissatisfied>",
	Short: "Rate the answer to a ticket",
	Long: `Look the ticket up by its tracking code and rate its answer. Tickets without
an answer, or already rated, are refused.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runRate,
}

var historyCmd = &cobra.Command{
	Use:   "history <phone>",
	Short: "List the tickets filed with a phone number",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	trackCmd.Flags().StringVar(&trackRate, "rate", "", "rate the answer: satisfied or dissatisfied")
	for _, c := range []*cobra.Command{trackCmd, rateCmd} {
		c.Flags().StringVar(&guestID, "guest", "", "guest id to record interactions under")
	}
}

func newTracker() *tracking.Tracker {
	return tracking.NewTracker(env.client, tracking.StoreLedger{Ratings: store.NewRatingStore()}, tracking.Options{
		GuestID:  func() string { return guestID },
		Resolver: env.resolver,
		Loader:   env.loader,
		History:  store.NewTicketHistoryStore(),
		Logger:   env.logger,
	})
}

func runTrack(cmd *cobra.Command, args []string) error {
	tracker := newTracker()
	detail, err := tracker.Track(cmd.Context(), args[0])
	if err != nil {
		return describe(err)
	}
	out := cmd.OutOrStdout()
	printDetail(out, detail)

	if trackRate == "" {
		return nil
	}
	if detail.Rating == tracking.RatingNone {
		fmt.Fprintln(out, env.printer.T("ui.no_answer_yet"))
		return nil
	}
	if err := tracker.Rate(cmd.Context(), detail.TicketID, domain.Rating(strings.ToLower(trackRate))); err != nil {
		return describe(err)
	}
	fmt.Fprintln(out, env.printer.T("ui.rating_thanks"))
	return nil
}

func runRate(cmd *cobra.Command, args []string) error {
	tracker := newTracker()
	detail, err := tracker.Track(cmd.Context(), args[0])
	if err != nil {
		return describe(err)
	}
	if err := tracker.Rate(cmd.Context(), detail.TicketID, domain.Rating(strings.ToLower(args[1]))); err != nil {
		return describe(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), env.printer.T("ui.rating_thanks"))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	items, err := newTracker().History(cmd.Context(), args[0])
	if err != nil {
		return describe(err)
	}
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No tickets found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tSTATUS\tCREATED\tRATING\tFILES\tSUBJECT")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			item.Code,
			item.Status,
			item.CreatedAt.Format("2006-01-02"),
			item.Rating,
			len(item.Attachments),
			item.Subject,
		)
	}
	return w.Flush()
}

func printDetail(out io.Writer, d tracking.Detail) {
	fmt.Fprintf(out, "%s  %s  [%s]\n", d.Code, d.Subject, d.Status)
	fmt.Fprintf(out, "Opened %s, updated %s\n\n", d.CreatedAt.Format("2006-01-02 15:04"), d.UpdatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintln(out, d.Description)

	if len(d.Answers) == 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, env.printer.T("ui.no_answer_yet"))
	}
	for _, a := range d.Answers {
		fmt.Fprintf(out, "\n--- %s\n%s\n", a.CreatedAt.Format("2006-01-02 15:04"), a.Content)
	}

	if len(d.Attachments) > 0 {
		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, a := range d.Attachments {
			state := a.URL
			if a.Expired {
				state = "expired"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", a.Name, a.Size, state)
		}
		_ = w.Flush()
	}

	if d.Rating == tracking.RatingOffered {
		fmt.Fprintf(out, "\n%s (support rate %s satisfied|dissatisfied)\n", env.printer.T("ui.rate_prompt"), d.Code)
	}
}
