package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/ticket"
	"github.com/spec-kit/support-portal/internal/upload"
)

// maxCodeAttempts bounds the interactive verification prompt.
const maxCodeAttempts = 3

var (
	ticketForm    ticket.Form
	ticketAttach  []string
	ticketCode    string
	ticketVerbose bool
)

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Open support tickets",
}

var ticketCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a ticket, verify it and upload attachments",
	Long: `Create a ticket and verify it with the code emailed to the guest. Files given
with --attach are uploaded only after the ticket is verified.

When --code is omitted the code is read from stdin; a wrong code may be
retried.

Examples:
  support ticket create --main billing --subject "Double charge" \
    --description "I was charged twice for the same order in May." \
    --name "Ada Lovelace" --phone "+44 20 7946 0000" --email ada@example.com \
    --attach invoice.pdf`,
	Args: cobra.NoArgs,
	RunE: runTicketCreate,
}

func init() {
	f := ticketCreateCmd.Flags()
	f.StringVar(&ticketForm.MainCategory, "main", "", "main department id")
	f.StringVar(&ticketForm.SubDepartment, "sub", "", "sub-department id")
	f.StringVar(&ticketForm.Subject, "subject", "", "ticket subject")
	f.StringVar(&ticketForm.Description, "description", "", "what happened")
	f.StringVar(&ticketForm.GuestName, "name", "", "your name")
	f.StringVar(&ticketForm.GuestPhone, "phone", "", "your phone number")
	f.StringVar(&ticketForm.GuestEmail, "email", "", "your email address")
	f.StringSliceVar(&ticketAttach, "attach", nil, "file to attach (repeatable)")
	f.StringVar(&ticketCode, "code", "", "verification code, if already known")
	f.BoolVar(&ticketVerbose, "show-upload", false, "print per-file upload results")

	ticketCmd.AddCommand(ticketCreateCmd)
}

func runTicketCreate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	lifecycle := ticket.NewLifecycle(env.client, env.uploader, ticket.Stores{}, env.printer, ticket.Options{
		CallTimeout: env.cfg.Ticket.CallTimeout,
		Logger:      env.logger,
	})

	files, err := openAttachments(lifecycle, ticketAttach)
	defer closeAll(files, env.logger)
	if err != nil {
		return err
	}

	submitted, err := lifecycle.Submit(cmd.Context(), ticketForm)
	if err != nil {
		var verr *ticket.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Fields {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", fe.Field, env.printer.Field(fe.Field, fe.Rule, fe.Param))
			}
		}
		return describe(err)
	}
	fmt.Fprintln(out, submitted.Message)

	var codes *bufio.Scanner
	for attempt := 1; ; attempt++ {
		code := ticketCode
		if code == "" || attempt > 1 {
			if codes == nil {
				codes = bufio.NewScanner(env.in)
			}
			fmt.Fprint(out, env.printer.T("ui.verify_your_ticket")+": ")
			if !codes.Scan() {
				lifecycle.Cancel()
				return errors.New("no verification code given")
			}
			code = strings.TrimSpace(codes.Text())
		}

		verified, err := lifecycle.SubmitCode(cmd.Context(), code)
		if err == nil {
			printVerified(out, verified)
			return nil
		}
		if lifecycle.State() != ticket.StateAwaitingVerification || attempt >= maxCodeAttempts {
			return describe(err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), env.printer.Describe(err))
	}
}

func printVerified(out io.Writer, verified ticket.VerifyResult) {
	fmt.Fprintln(out, verified.Message)
	fmt.Fprintf(out, "Ticket %s (%s)\n", verified.Ticket.Code, verified.Ticket.Status)

	report := verified.Upload
	switch {
	case len(report.Files) == 0:
	case report.Skipped:
		fmt.Fprintln(out, env.printer.T("ui.upload_skipped"))
	case !report.OK():
		fmt.Fprintln(out, env.printer.T("ui.upload_partial"))
	}
	if ticketVerbose {
		printUploadReport(out, report)
	}
}

func printUploadReport(out io.Writer, report upload.Report) {
	for _, f := range report.Files {
		if f.OK() {
			fmt.Fprintf(out, "  ok    %s (%d bytes)\n", f.Name, f.Size)
			continue
		}
		fmt.Fprintf(out, "  fail  %s: %s\n", f.Name, f.Error)
	}
}

// openAttachments stages each path and returns the opened files so the caller
// can close them once the upload has run.
func openAttachments(lifecycle *ticket.Lifecycle, paths []string) ([]*os.File, error) {
	files := make([]*os.File, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return files, fmt.Errorf("open attachment: %w", err)
		}
		files = append(files, f)

		info, err := f.Stat()
		if err != nil {
			return files, fmt.Errorf("stat attachment: %w", err)
		}
		contentType := mime.TypeByExtension(filepath.Ext(p))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := lifecycle.Stage(domain.PendingAttachment{
			Name:        filepath.Base(p),
			ContentType: contentType,
			Size:        info.Size(),
			Content:     f,
		}); err != nil {
			return files, fmt.Errorf("%s: %s", filepath.Base(p), env.printer.Describe(err))
		}
	}
	return files, nil
}

func closeAll(files []*os.File, logger *zap.Logger) {
	for _, f := range files {
		if err := f.Close(); err != nil {
			logger.Debug("close attachment", zap.String("file", f.Name()), zap.Error(err))
		}
	}
}
