package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/hugh/tarviz/internal/api/dto"
	"github.com/hugh/tarviz/internal/pipeline"
	"github.com/spf13/cobra"
)

func registerBoardCommands(root *cobra.Command) {
	boardCmd.Flags().Bool("wide", false, "show columns side by side")
	boardCmd.AddCommand(boardMoveCmd, boardApproveCmd, boardReviseCmd, boardRevisionsCmd)
	root.AddCommand(boardCmd)
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the content pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		board, err := app.api.Board(cmd.Context())
		if err != nil {
			return err
		}
		wide, _ := cmd.Flags().GetBool("wide")
		fmt.Fprintln(app.out, renderBoard(board, wide))
		return nil
	},
}

var boardMoveCmd = &cobra.Command{
	Use:   "move <post> <status>",
	Short: "Move a post to another column",
	Long: "Move a post to another column. Status is one of: " + strings.Join(statusNames(), ", ") + ".\n" +
		"Posts may be named by the short id shown on the board.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := pipeline.ParseStatus(args[1]); err != nil {
			return err
		}
		id, err := resolvePost(ctx, args[0])
		if err != nil {
			return err
		}
		post, err := app.api.MovePost(ctx, id, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(app.out, successStyle.Render(fmt.Sprintf("%q is now in %s.", post.Title, post.Status)))
		return nil
	},
}

var boardApproveCmd = &cobra.Command{
	Use:   "approve <post>",
	Short: "Approve a post for scheduling",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := resolvePost(ctx, args[0])
		if err != nil {
			return err
		}
		post, err := app.api.Approve(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(app.out, successStyle.Render(fmt.Sprintf("Approved %q. It is scheduled for %s.", post.Title, post.DueDate.Format("02 Jan 2006"))))
		return nil
	},
}

var boardReviseCmd = &cobra.Command{
	Use:   "revise <post> [feedback...]",
	Short: "Send a post back to writing with feedback",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := resolvePost(ctx, args[0])
		if err != nil {
			return err
		}

		feedback := strings.TrimSpace(strings.Join(args[1:], " "))
		if feedback == "" {
			if feedback, err = app.in.Ask("What should change?", ""); err != nil {
				return err
			}
		}
		if strings.TrimSpace(feedback) == "" {
			fmt.Fprintln(app.out, mutedStyle.Render("No feedback given; revision cancelled."))
			return nil
		}

		post, err := app.api.RequestRevision(ctx, id, feedback)
		if err != nil {
			return err
		}
		fmt.Fprintln(app.out, successStyle.Render(fmt.Sprintf("Feedback sent. %q is back in %s.", post.Title, post.Status)))
		return nil
	},
}

var boardRevisionsCmd = &cobra.Command{
	Use:   "revisions <post>",
	Short: "List feedback left on a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := resolvePost(ctx, args[0])
		if err != nil {
			return err
		}
		notes, err := app.api.Revisions(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(app.out, renderRevisions(notes))
		return nil
	},
}

// resolvePost expands a short id prefix to the full post id.
func resolvePost(ctx context.Context, ref string) (string, error) {
	board, err := app.api.Board(ctx)
	if err != nil {
		return "", err
	}
	return matchPost(board, ref)
}

func matchPost(board *dto.BoardResponse, ref string) (string, error) {
	var matches []string
	for _, col := range board.Columns {
		for _, p := range col.Posts {
			if p.ID == ref {
				return p.ID, nil
			}
			if strings.HasPrefix(p.ID, ref) {
				matches = append(matches, p.ID)
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no post matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q matches %d posts; use more of the id", ref, len(matches))
	}
}

func statusNames() []string {
	names := make([]string, len(pipeline.Statuses))
	for i, s := range pipeline.Statuses {
		names[i] = string(s)
	}
	return names
}
