package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fentz26/tracker/internal/api"
	"github.com/fentz26/tracker/internal/models"
	"github.com/spf13/cobra"
)

// itemKind describes how one item type appears on the command line.
type itemKind struct {
	kind     models.Kind
	noun     string
	path     string
	schedule bool // accepts --status, --start and --duration
	epic     bool // accepts --epic
}

var (
	taskKind    = itemKind{kind: models.KindTask, noun: "task", path: "/tasks", schedule: true}
	epicKind    = itemKind{kind: models.KindEpic, noun: "epic", path: "/epics"}
	subtaskKind = itemKind{kind: models.KindSubtask, noun: "subtask", path: "/subtasks", schedule: true, epic: true}
)

// itemFlags holds the values of the add/update flags.
type itemFlags struct {
	name     string
	desc     string
	status   string
	start    string
	duration int64
	epicID   int
}

func newItemCmd(k itemKind) *cobra.Command {
	root := &cobra.Command{
		Use:   k.noun,
		Short: fmt.Sprintf("Manage %ss", k.noun),
	}

	var addFlags itemFlags
	addCmd := &cobra.Command{
		Use:   "add",
		Short: fmt.Sprintf("Add a new %s", k.noun),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := addFlags.request(cmd, k, api.ItemRequest{})
			if err != nil {
				return err
			}
			resp, err := apiPost(k.path, req)
			if err != nil {
				return err
			}
			var result api.MessageResponse
			if err := json.Unmarshal(resp, &result); err != nil {
				return err
			}
			fmt.Printf("Created %s: %d\n", k.noun, result.ID)
			return nil
		},
	}
	addFlags.register(addCmd, k)
	addCmd.MarkFlagRequired("name")
	if k.epic {
		addCmd.MarkFlagRequired("epic")
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %ss", k.noun),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printList(k.path)
		},
	}

	showCmd := &cobra.Command{
		Use:   fmt.Sprintf("show [%s-id]", k.noun),
		Short: fmt.Sprintf("Show %s details", k.noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := fetchItem(k, args[0])
			if err != nil {
				return err
			}
			printDetail(os.Stdout, item)
			return nil
		},
	}

	var updFlags itemFlags
	updateCmd := &cobra.Command{
		Use:   fmt.Sprintf("update [%s-id]", k.noun),
		Short: fmt.Sprintf("Update a %s; unset flags keep their current values", k.noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := findItem(k, args[0])
			if err != nil {
				return err
			}
			req, err := updFlags.request(cmd, k, requestFrom(cur))
			if err != nil {
				return err
			}
			if _, err := apiPost(k.path+"/"+args[0], req); err != nil {
				return err
			}
			fmt.Printf("Updated %s %s\n", k.noun, args[0])
			return nil
		},
	}
	updFlags.register(updateCmd, k)

	var deleteAll bool
	deleteCmd := &cobra.Command{
		Use:   fmt.Sprintf("delete [%s-id]", k.noun),
		Short: fmt.Sprintf("Delete a %s, or all of them with --all", k.noun),
		Args: func(cmd *cobra.Command, args []string) error {
			if deleteAll {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if deleteAll {
				if _, err := apiDelete(k.path); err != nil {
					return err
				}
				fmt.Printf("Deleted all %ss\n", k.noun)
				return nil
			}
			if _, err := apiDelete(k.path + "/" + args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s %s\n", k.noun, args[0])
			return nil
		},
	}
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, fmt.Sprintf("Delete every %s", k.noun))

	root.AddCommand(addCmd, listCmd, showCmd, updateCmd, deleteCmd)

	if k.kind == models.KindEpic {
		root.AddCommand(&cobra.Command{
			Use:   "subtasks [epic-id]",
			Short: "List the subtasks of an epic",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return printList(k.path + "/" + args[0] + "/subtasks")
			},
		})
	}
	return root
}

func (f *itemFlags) register(cmd *cobra.Command, k itemKind) {
	cmd.Flags().StringVar(&f.name, "name", "", fmt.Sprintf("%s name", k.noun))
	cmd.Flags().StringVar(&f.desc, "desc", "", fmt.Sprintf("%s description", k.noun))
	if k.schedule {
		cmd.Flags().StringVar(&f.status, "status", "", "Status (NEW, IN_PROGRESS, DONE)")
		cmd.Flags().StringVar(&f.start, "start", "", fmt.Sprintf("Start time as %q; empty clears it", api.TimeLayout))
		cmd.Flags().Int64Var(&f.duration, "duration", 0, "Duration in minutes; negative clears it")
	}
	if k.epic {
		cmd.Flags().IntVar(&f.epicID, "epic", 0, "Owning epic id")
	}
}

// request overlays the flags the user set onto base.
func (f *itemFlags) request(cmd *cobra.Command, k itemKind, base api.ItemRequest) (api.ItemRequest, error) {
	req := base
	flags := cmd.Flags()

	if flags.Changed("name") {
		req.Name = f.name
	}
	if flags.Changed("desc") {
		req.Description = f.desc
	}
	if !k.schedule {
		return req, nil
	}

	if flags.Changed("status") {
		req.Status = models.Status(strings.ToUpper(f.status))
	}
	if flags.Changed("start") {
		if f.start == "" {
			req.StartTime = nil
		} else {
			start := f.start
			req.StartTime = &start
		}
	}
	if flags.Changed("duration") {
		if f.duration < 0 {
			req.Duration = nil
		} else {
			d := f.duration
			req.Duration = &d
		}
	}
	if k.epic && flags.Changed("epic") {
		if base.EpicID != 0 && f.epicID != base.EpicID {
			return req, fmt.Errorf("subtasks cannot move between epics")
		}
		req.EpicID = f.epicID
	}
	return req, nil
}

// requestFrom turns a fetched item back into an update body.
func requestFrom(it api.ItemJSON) api.ItemRequest {
	return api.ItemRequest{
		Name:        it.Name,
		Description: it.Description,
		Status:      it.Status,
		StartTime:   it.StartTime,
		Duration:    it.Duration,
		EpicID:      it.EpicID,
	}
}

func fetchItem(k itemKind, id string) (api.ItemJSON, error) {
	var item api.ItemJSON
	if _, err := strconv.Atoi(id); err != nil {
		return item, fmt.Errorf("invalid %s id %q", k.noun, id)
	}
	resp, err := apiGet(k.path + "/" + id)
	if err != nil {
		return item, err
	}
	return item, json.Unmarshal(resp, &item)
}

// findItem looks id up in the kind's list. Unlike fetchItem it leaves the
// daemon's history alone.
func findItem(k itemKind, id string) (api.ItemJSON, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return api.ItemJSON{}, fmt.Errorf("invalid %s id %q", k.noun, id)
	}
	resp, err := apiGet(k.path)
	if err != nil {
		return api.ItemJSON{}, err
	}
	var items []api.ItemJSON
	if err := json.Unmarshal(resp, &items); err != nil {
		return api.ItemJSON{}, err
	}
	for _, it := range items {
		if it.ID == n {
			return it, nil
		}
	}
	return api.ItemJSON{}, fmt.Errorf("%s %d not found", k.noun, n)
}

// --- Output ---

func printList(path string) error {
	resp, err := apiGet(path)
	if err != nil {
		return err
	}

	var items []api.ItemJSON
	if err := json.Unmarshal(resp, &items); err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Println("Nothing found")
		return nil
	}
	printTable(os.Stdout, items)
	return nil
}

func printTable(out io.Writer, items []api.ItemJSON) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tNAME\tSTATUS\tSTART\tEND\tMIN")
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.Type, truncate(it.Name, 40), it.Status,
			orDash(it.StartTime), orDash(it.EndTime), minutes(it.Duration))
	}
	w.Flush()
}

func printDetail(out io.Writer, it api.ItemJSON) {
	fmt.Fprintf(out, "ID:          %d\n", it.ID)
	fmt.Fprintf(out, "Type:        %s\n", it.Type)
	fmt.Fprintf(out, "Name:        %s\n", it.Name)
	fmt.Fprintf(out, "Description: %s\n", it.Description)
	fmt.Fprintf(out, "Status:      %s\n", it.Status)
	fmt.Fprintf(out, "Start:       %s\n", orDash(it.StartTime))
	fmt.Fprintf(out, "End:         %s\n", orDash(it.EndTime))
	fmt.Fprintf(out, "Duration:    %s\n", minutes(it.Duration))
	if it.Type == models.KindSubtask {
		fmt.Fprintf(out, "Epic:        %d\n", it.EpicID)
	}
	if it.Type == models.KindEpic {
		ids := make([]string, len(it.Subtasks))
		for i, id := range it.Subtasks {
			ids[i] = strconv.Itoa(id)
		}
		fmt.Fprintf(out, "Subtasks:    %s\n", strings.Join(ids, ", "))
	}
}

// --- Helpers ---

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func minutes(d *int64) string {
	if d == nil {
		return "-"
	}
	return strconv.FormatInt(*d, 10)
}
