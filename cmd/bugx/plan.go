package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"bugx/internal/plan"
)

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var asJSON, raw bool
	cmd := &cobra.Command{
		Use:   "plan <request>",
		Short: "Ask the model for a step-by-step plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := interruptible(cmd.Context())
			defer stop()
			s, err := open(ctx, opts, true)
			if err != nil {
				return err
			}
			defer s.Close()

			planner := plan.NewPlanner(s.client, s.cfg.ModelFor(s.cfg.Provider), s.cfg.Temperature)
			res, err := planner.Generate(ctx, strings.Join(args, " "))
			if err != nil && res.Document == nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case raw:
				fmt.Fprintln(out, res.Raw)
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(res.Document); encErr != nil {
					return encErr
				}
			case res.Document.Empty():
				// nothing parsed; show the reply as the model wrote it
				fmt.Fprint(out, renderMarkdown(res.Raw))
			default:
				fmt.Fprint(out, renderMarkdown(res.Document.Markdown()))
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the parsed plan as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the model's unparsed reply")
	return cmd
}

// renderMarkdown styles md for a terminal and leaves it untouched otherwise.
func renderMarkdown(md string) string {
	if !term.IsTerminal(1) {
		return md
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
