package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var ctx = context.Background()

// --- tasks ---

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List pending tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(ctx, fmt.Sprintf("/tasks?limit=%d", limit))
		if err != nil {
			return err
		}

		var tasks []struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			DueAt    string `json:"due_at"`
			Priority int    `json:"priority"`
			Effort   string `json:"effort"`
		}
		if err := decodeJSON(resp, &tasks); err != nil {
			return err
		}

		if len(tasks) == 0 {
			fmt.Println("No pending tasks.")
			return nil
		}

		for _, t := range tasks {
			line := colorize(colorBold, t.Title)
			var extra []string
			if t.DueAt != "" {
				extra = append(extra, "due "+t.DueAt)
			}
			if t.Effort != "" {
				extra = append(extra, t.Effort)
			}
			if t.Priority >= 2 {
				extra = append(extra, colorize(colorRed, "high priority"))
			}
			if len(extra) > 0 {
				line += "  (" + strings.Join(extra, ", ") + ")"
			}
			fmt.Printf("  %s %s\n", colorize(colorCyan, t.ID[:8]), line)
		}
		return nil
	},
}

// --- notes ---

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "List recent notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(ctx, fmt.Sprintf("/notes?limit=%d", limit))
		if err != nil {
			return err
		}

		var notes []struct {
			ID        string   `json:"id"`
			Content   string   `json:"content"`
			Tags      []string `json:"tags"`
			CreatedAt string   `json:"created_at"`
		}
		if err := decodeJSON(resp, &notes); err != nil {
			return err
		}

		if len(notes) == 0 {
			fmt.Println("No notes found.")
			return nil
		}

		for _, n := range notes {
			content := n.Content
			if len(content) > 80 {
				content = content[:80] + "..."
			}
			fmt.Printf("  %s %s\n", colorize(colorCyan, n.ID[:8]), content)
			if len(n.Tags) > 0 {
				fmt.Printf("           #%s\n", strings.Join(n.Tags, " #"))
			}
		}
		return nil
	},
}

// --- interactions ---

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "List recent interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(ctx, fmt.Sprintf("/interactions?limit=%d", limit))
		if err != nil {
			return err
		}

		var interactions []struct {
			ID          string `json:"id"`
			UserMessage string `json:"user_message"`
			ActionType  string `json:"action_type"`
			CreatedAt   string `json:"created_at"`
		}
		if err := decodeJSON(resp, &interactions); err != nil {
			return err
		}

		if len(interactions) == 0 {
			fmt.Println("No interactions found.")
			return nil
		}

		for _, ix := range interactions {
			msg := ix.UserMessage
			if len(msg) > 80 {
				msg = msg[:80] + "..."
			}
			fmt.Printf("%s  %s  [%s]  %s\n",
				colorize(colorCyan, ix.ID[:8]),
				ix.CreatedAt,
				ix.ActionType,
				msg,
			)
		}
		return nil
	},
}

func init() {
	tasksCmd.Flags().Int("limit", 50, "maximum number of tasks to list")
	notesCmd.Flags().Int("limit", 20, "maximum number of notes to list")
	interactionsCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
}
