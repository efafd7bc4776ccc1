package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fentz26/tracker/internal/store"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently viewed items, least recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printList("/history")
	},
}

var prioritizedCmd = &cobra.Command{
	Use:   "prioritized",
	Short: "Show scheduled tasks and subtasks by start time",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printList("/prioritized")
	},
}

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show the most recent journal entries",
	RunE:  runJournal,
}

func init() {
	journalCmd.Flags().IntVar(&journalLimit, "limit", 20, "Maximum entries to show")
}

func runJournal(cmd *cobra.Command, args []string) error {
	resp, err := apiGet(fmt.Sprintf("/journal?limit=%d", journalLimit))
	if err != nil {
		return err
	}

	var entries []store.JournalEntry
	if err := json.Unmarshal(resp, &entries); err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No journal entries")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tITEM\tOUTCOME\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Action, e.ItemID, e.Outcome, truncate(e.Details, 60))
	}
	w.Flush()
	return nil
}
