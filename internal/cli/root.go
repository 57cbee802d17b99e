package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"
)

type options struct {
	addr    string
	user    string
	session string
	timeout time.Duration
}

func (o *options) client() *Client {
	return NewClient(o.addr, o.timeout)
}

func (o *options) request(message string) ChatRequest {
	return ChatRequest{Message: message, UserID: o.user, SessionID: o.session}
}

// NewRootCmd creates the agentctl root command.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "agentctl",
		Short: "agentctl - CourseForge front-end client",
		Long: `agentctl talks to the CourseForge chat front-ends: one-shot questions,
NDJSON stream consumption, feedback submission and an interactive chat loop.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.addr, "addr", "http://localhost:8000", "base URL of the front-end")
	rootCmd.PersistentFlags().StringVar(&opts.user, "user", "", "user id sent with requests (server default when empty)")
	rootCmd.PersistentFlags().StringVar(&opts.session, "session", "", "session id sent with requests (server default when empty)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "request timeout")

	rootCmd.AddCommand(newAskCmd(opts))
	rootCmd.AddCommand(newStreamCmd(opts))
	rootCmd.AddCommand(newFeedbackCmd(opts))
	rootCmd.AddCommand(newChatCmd(opts))

	return rootCmd
}

func newAskCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one buffered chat turn and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answer, err := opts.client().Ask(cmd.Context(), opts.request(strings.Join(args, " ")))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}

func newStreamCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stream [message]",
		Short: "Send one streaming chat turn and print records as they arrive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			return opts.client().Stream(cmd.Context(), opts.request(strings.Join(args, " ")), func(rec StreamRecord) {
				switch rec.Type {
				case "progress":
					fmt.Fprintln(out, rec.Text)
				case "result":
					fmt.Fprintln(out)
					fmt.Fprintln(out, rec.Text)
				}
			})
		},
	}
}

func newFeedbackCmd(opts *options) *cobra.Command {
	var (
		score float64
		text  string
		runID string
	)

	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Submit a feedback score for a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			fb := Feedback{Score: score, Text: text, RunID: runID, UserID: opts.user}
			if err := opts.client().SendFeedback(cmd.Context(), fb); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "feedback recorded")
			return nil
		},
	}

	cmd.Flags().Float64Var(&score, "score", 0, "feedback score")
	cmd.Flags().StringVar(&text, "text", "", "free-form comment")
	cmd.Flags().StringVar(&runID, "run-id", "", "run the feedback refers to")
	_ = cmd.MarkFlagRequired("score")

	return cmd
}

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.client()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Interactive chat. Empty message or Ctrl+C quits.")

			for {
				var message string
				prompt := &survey.Input{Message: "You:"}
				if err := survey.AskOne(prompt, &message); err != nil {
					if errors.Is(err, terminal.InterruptErr) {
						return nil
					}
					return err
				}

				message = strings.TrimSpace(message)
				if message == "" {
					return nil
				}

				answer, err := client.Ask(cmd.Context(), opts.request(message))
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
					continue
				}

				fmt.Fprintln(out, answer)
				fmt.Fprintln(out)
			}
		},
	}
}
