package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"techchat/internal/export"
	"techchat/internal/history"
	"techchat/internal/ui"
)

var (
	exportFormat string
	exportOut    string
	clearYes     bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage saved conversations",
	Long: `List, show, export and delete saved conversations.

A session can be referred to by its id or by its position in "history list".`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *history.Store) error {
			sessions := store.List()
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No saved chats")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tTITLE\tMESSAGES\tSAVED\tID")
			for i, s := range sessions {
				saved := ""
				if t := s.Time(); !t.IsZero() {
					saved = t.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", i+1, s.Title, len(s.Messages), saved, s.ID)
			}
			return w.Flush()
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id|N>",
	Short: "Show a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *history.Store) error {
			sess, err := resolveSession(store, args[0])
			if err != nil {
				return err
			}
			return ui.NewDisplay(cmd.OutOrStdout()).PrintSession(sess)
		})
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <id|N>",
	Short: "Export a conversation (md, json, yaml)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *history.Store) error {
			sess, err := resolveSession(store, args[0])
			if err != nil {
				return err
			}
			if exportOut != "" {
				if err := exportToFile(sess, exportOut); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", exportOut)
				return nil
			}
			exporter, err := export.NewExporter(exportFormat)
			if err != nil {
				return err
			}
			return exporter.Export(sess, cmd.OutOrStdout())
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id|N>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *history.Store) error {
			sess, err := resolveSession(store, args[0])
			if err != nil {
				return err
			}
			if err := store.Delete(sess.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", sess.Title)
			return nil
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return fmt.Errorf("refusing to clear history without --yes")
		}
		return withStore(func(store *history.Store) error {
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		})
	},
}

func init() {
	historyExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Export format (md, json, yaml)")
	historyExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file; the format follows its extension")
	historyClearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm clearing all history")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyExportCmd, historyDeleteCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

// withStore opens the configured store for the duration of fn
func withStore(fn func(store *history.Store) error) error {
	if err := cfg.ValidateStorage(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(store)
}

// resolveSession finds a session by id, or by 1-based position in the list
func resolveSession(store *history.Store, ref string) (history.Session, error) {
	if sess, ok := store.Get(ref); ok {
		return sess, nil
	}
	sessions := store.List()
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(sessions) {
		return sessions[n-1], nil
	}
	return history.Session{}, fmt.Errorf("no session %q (see: techchat history list)", ref)
}
