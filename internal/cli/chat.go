package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/support-portal/internal/chat"
	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/store"
)

var (
	chatNoStream bool
	chatFAQ      string
	chatStats    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Chat with the support assistant",
	Long: `Chat with the support assistant. With a question argument one turn runs
and the command exits; without one an interactive session reads questions from
stdin until EOF. Ctrl-C cancels the reply in flight.

Examples:
  support chat "How do I reset my password?"
  support chat --no-stream "Opening hours?"
  support chat`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatNoStream, "no-stream", false, "wait for the whole answer instead of streaming")
	chatCmd.Flags().StringVar(&chatFAQ, "faq", "", "ask in the context of an FAQ entry (implies --no-stream)")
	chatCmd.Flags().BoolVar(&chatStats, "stats", false, "print frame counts after each reply")
}

func runChat(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	controller := chat.NewController(env.client, store.NewMessageStore(), chat.Options{
		UserAvatar: env.cfg.Chat.UserAvatar,
		BotAvatar:  env.cfg.Chat.BotAvatar,
		ReadSize:   env.cfg.Chat.ReadBufferBytes,
		Logger:     env.logger,
		Metrics:    env.metrics,
	})

	if len(args) > 0 {
		return turn(cmd.Context(), out, controller, strings.Join(args, " "))
	}

	scanner := bufio.NewScanner(env.in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		question := strings.TrimSpace(scanner.Text())
		if question != "" {
			if err := turn(cmd.Context(), out, controller, question); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "! %v\n", err)
			}
		}
		fmt.Fprint(out, "> ")
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func turn(ctx context.Context, out io.Writer, controller *chat.Controller, question string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	release := context.AfterFunc(ctx, controller.Close)
	defer release()

	start := time.Now()
	if chatNoStream || chatFAQ != "" {
		reply, err := controller.Ask(ctx, question, chatFAQ)
		if err != nil {
			return describe(err)
		}
		fmt.Fprintln(out, reply.Message.Text)
		return nil
	}

	reply, err := controller.Send(ctx, question, func(frame domain.StreamFrame, _ string) {
		if frame.Type == domain.FrameMessage {
			fmt.Fprint(out, frame.Text)
		}
	})
	fmt.Fprintln(out)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out, env.printer.T("ui.chat_closed"))
		return nil
	}
	if chatStats {
		fmt.Fprintf(out, "(%d frames, %d skipped, %s)\n", reply.Frames, reply.Skipped, since(start))
	}
	if err != nil {
		return describe(err)
	}
	return nil
}
