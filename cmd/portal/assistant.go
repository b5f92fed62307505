package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const outlineWidth = 80

func registerAssistantCommands(root *cobra.Command) {
	seoCmd.Flags().String("snippet", "", "an excerpt of the post")
	root.AddCommand(chatCmd, auditCmd, outlineCmd, seoCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Ask TarvizBot a question",
	Long:  "Ask TarvizBot a question. Without a message an interactive chat starts; type exit to leave.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(args) > 0 {
			reply, err := app.api.Chat(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(app.out, reply)
			return nil
		}

		fmt.Fprintln(app.out, mutedStyle.Render("Hi! I'm TarvizBot. How can I help you grow your business today?"))
		for {
			msg, err := app.in.Ask(titleStyle.Render("you"), "")
			if errors.Is(err, errNoInput) {
				return nil
			}
			if err != nil {
				return err
			}
			if msg == "" {
				continue
			}
			if msg == "exit" || msg == "quit" {
				return nil
			}

			reply, err := app.api.Chat(ctx, msg)
			if err != nil {
				fmt.Fprintln(app.out, errorStyle.Render(err.Error()))
				continue
			}
			fmt.Fprintf(app.out, "%s %s\n", successStyle.Render("TarvizBot:"), reply)
		}
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit <url>",
	Short: "Get a quick simulated SEO audit of a website",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		if !strings.Contains(url, "://") {
			url = "https://" + url
		}
		res, err := app.api.AuditSite(cmd.Context(), url)
		if err != nil {
			return err
		}
		fmt.Fprintln(app.out, renderAudit(res))
		return nil
	},
}

var outlineCmd = &cobra.Command{
	Use:   "outline <topic...>",
	Short: "Draft a blog post outline (admin)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		md, err := app.api.BlogOutline(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprint(app.out, renderMarkdown(md, outlineWidth))
		return nil
	},
}

var seoCmd = &cobra.Command{
	Use:   "seo <topic...>",
	Short: "Suggest a title, meta description and keywords for a post (admin)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snippet, _ := cmd.Flags().GetString("snippet")
		res, err := app.api.BlogSEO(cmd.Context(), strings.Join(args, " "), snippet)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.out, "%s %s\n", titleStyle.Render("Title:"), res.Title)
		fmt.Fprintf(app.out, "%s %s\n", titleStyle.Render("Meta:"), res.MetaDescription)
		fmt.Fprintf(app.out, "%s %s\n", titleStyle.Render("Keywords:"), strings.Join(res.Keywords, ", "))
		return nil
	},
}
