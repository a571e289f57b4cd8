package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/support-portal/internal/domain"
)

var faqsDepartment string

var departmentsCmd = &cobra.Command{
	Use:   "departments [parent-id]",
	Short: "List main departments, or the sub-departments of one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDepartments,
}

var faqsCmd = &cobra.Command{
	Use:   "faqs",
	Short: "List frequently asked questions",
	Long: `List frequently asked questions, optionally for one department. Attachment
tokens are shown so they can be opened with "support attachment <token>".`,
	Args: cobra.NoArgs,
	RunE: runFAQs,
}

var promotionCmd = &cobra.Command{
	Use:   "promotion",
	Short: "Show the running promotion, if any",
	Args:  cobra.NoArgs,
	RunE:  runPromotion,
}

func init() {
	faqsCmd.Flags().StringVarP(&faqsDepartment, "department", "d", "", "department id")
}

func runDepartments(cmd *cobra.Command, args []string) error {
	var (
		departments []domain.Department
		err         error
	)
	if len(args) == 0 {
		departments, err = env.client.ListMainDepartments(cmd.Context())
	} else {
		departments, err = env.client.ListSubDepartments(cmd.Context(), args[0])
	}
	if err != nil {
		return describe(err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, d := range departments {
		fmt.Fprintf(w, "%s\t%s\n", d.ID, d.Name)
	}
	return w.Flush()
}

func runFAQs(cmd *cobra.Command, args []string) error {
	page, err := env.client.ListFAQs(cmd.Context(), faqsDepartment)
	if err != nil {
		return describe(err)
	}
	out := cmd.OutOrStdout()
	language := env.printer.Language()
	for i, faq := range page.FAQs {
		if i > 0 {
			fmt.Fprintln(out)
		}
		question, answer := localizedFAQ(faq, language)
		fmt.Fprintf(out, "[%s] %s\n%s\n", faq.ID, question, answer)
		if tokens := page.Attachments[faq.ID]; len(tokens) > 0 {
			fmt.Fprintf(out, "attachments: %s\n", strings.Join(tokens, ", "))
		}
	}
	return nil
}

// localizedFAQ prefers a translation matching the base of language.
func localizedFAQ(faq domain.FAQ, language string) (string, string) {
	base, _, _ := strings.Cut(language, "-")
	for _, tr := range faq.Translations {
		if strings.EqualFold(tr.Lang, base) && tr.Text != "" {
			return tr.Text, tr.Answer
		}
	}
	return faq.Text, faq.Answer
}

func runPromotion(cmd *cobra.Command, args []string) error {
	page, err := env.client.CurrentPromotion(cmd.Context())
	if err != nil {
		return describe(err)
	}
	out := cmd.OutOrStdout()
	if page.Promotion.ID == "" || !page.Promotion.Active(time.Now()) {
		fmt.Fprintln(out, "No promotion is running.")
		return nil
	}
	p := page.Promotion
	fmt.Fprintf(out, "%s (%s to %s)\n", p.Title, p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"))
	for _, preview := range env.loader.Previews(cmd.Context(), page.Tokens()) {
		fmt.Fprintf(out, "  %s  %s  %s\n", preview.Name, preview.Size, preview.Link.URL)
	}
	return nil
}
