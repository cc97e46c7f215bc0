package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"techchat/internal/answer"
	"techchat/internal/chat"
	"techchat/internal/terminal"
	"techchat/internal/ui"
)

var (
	chatQuery    string
	chatCategory string
	chatSimple   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start an interactive chat in the terminal.

Type a question to get an answer. Commands start with a slash; /help lists
them. Code blocks in answers are numbered so /copy N can put one on the
clipboard.`,
	Example: `  techchat chat
  techchat chat --category "Web Development"
  techchat chat --query "What is CSS Grid?" --simple`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatQuery, "query", "q", "", "Question to ask right away")
	chatCmd.Flags().StringVarP(&chatCategory, "category", "c", "", "Topic category to show suggestions for")
	chatCmd.Flags().BoolVarP(&chatSimple, "simple", "s", false, "Start with simple explanations on")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if chatCategory != "" && !chat.IsCategory(chatCategory) {
		return fmt.Errorf("unknown category %q (choose from: %v)", chatCategory, chat.Categories())
	}

	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// a pending answer is still saved after the first interrupt; a second
	// one gets the default behaviour and kills the process
	context.AfterFunc(ctx, stop)

	display := ui.NewDisplay(cmd.OutOrStdout())
	gen := newGenerator(cfg)
	if err := checkProvider(ctx, gen, display); err != nil {
		return err
	}

	ctrl := chat.NewController(store, answer.NewService(gen, log), log)
	ctrl.SetSimplifyMode(cfg.SimplifyByDefault || chatSimple)
	ctrl.SetCategory(chatCategory)

	input := terminal.NewInput(filepath.Join(cfg.DataDir, "input_history"))
	defer input.Close()

	r := newREPL(ctrl, display)
	r.welcome(cfg.Provider, cfg.ModelName)

	if chatQuery != "" {
		r.handle(ctx, chatQuery)
	}

	for ctx.Err() == nil {
		line, err := input.ReadLine(ui.Prompt(ctrl.Snapshot().SimplifyMode))
		if err != nil {
			if errors.Is(err, terminal.ErrAborted) || terminal.IsEOF(err) {
				break
			}
			return err
		}
		if quit := r.handle(ctx, line); quit {
			break
		}
	}

	display.PrintGoodbye()
	return nil
}
