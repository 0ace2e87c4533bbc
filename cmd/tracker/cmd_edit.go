package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/justsurfingit/Placement-Tracker/internal/auth"
	"github.com/justsurfingit/Placement-Tracker/internal/config"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"github.com/justsurfingit/Placement-Tracker/internal/services"
	"github.com/spf13/cobra"
)

// resolveID accepts a full id or an unambiguous prefix of one, as printed by list.
func resolveID(a *cliApp, ref string) (string, error) {
	if _, ok := a.ws.Find(ref); ok {
		return ref, nil
	}
	var matches []models.Placement
	for _, p := range a.ws.Records() {
		if strings.HasPrefix(p.ID, ref) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no placement with id %q", ref)
	case 1:
		return matches[0].ID, nil
	}
	return "", fmt.Errorf("id %q is ambiguous (%d placements)", ref, len(matches))
}

func newStatusCmd(app func() *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>... <status>",
		Short: "Set the status of one or more placements",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			label := args[len(args)-1]
			ids := make([]string, 0, len(args)-1)
			for _, ref := range args[:len(args)-1] {
				id, err := resolveID(a, ref)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			out := cmd.OutOrStdout()

			if len(ids) == 1 {
				p, err := a.ws.SetStatus(cmd.Context(), ids[0], label)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s is now %s\n", p.CompanyName, statusLabel(p.Status))
				return nil
			}
			res, err := a.ws.BulkSetStatus(cmd.Context(), ids, label)
			fmt.Fprintf(out, "%s %d placements\n", good("Updated"), len(res.Updated))
			for _, s := range res.Skipped {
				fmt.Fprintf(out, "%s %s: %s\n", warn("Skipped"), shortID(s.ID), s.Reason)
			}
			return err
		},
	}
}

func newEligibilityCmd(app func() *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "eligibility <id> <yes|no|unsure>",
		Short: "Record whether you are eligible for a placement",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			id, err := resolveID(a, args[0])
			if err != nil {
				return err
			}
			e, ok := models.ParseEligibility(args[1])
			if !ok {
				return fmt.Errorf("unknown eligibility %q (want yes, no or unsure)", args[1])
			}
			p, err := a.ws.SetEligibility(cmd.Context(), id, e)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: eligible %s, status %s\n", p.CompanyName, p.Eligible.Label(), statusLabel(p.Status))
			return nil
		},
	}
}

func newDeleteCmd(app func() *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete placements",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ids := make([]string, 0, len(args))
			for _, ref := range args {
				id, err := resolveID(a, ref)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			var err error
			if len(ids) == 1 {
				err = a.ws.Delete(cmd.Context(), ids[0])
			} else {
				err = a.ws.DeleteMany(cmd.Context(), ids)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d placements\n", good("Deleted"), len(ids))
			return nil
		},
	}
}

func newExtractCmd(app func() *cliApp) *cobra.Command {
	var (
		file     string
		save     bool
		followUp string
		apply    bool
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract placement details from an email with AI",
		Long: `Extract placement details from a recruiter email read from --file or stdin.

The result is shown for review. Pass --save to add it as a new placement, or
--follow-up <id> --apply to merge it into an existing one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if save && followUp != "" {
				return fmt.Errorf("--save and --follow-up cannot be combined")
			}
			if apply && followUp == "" {
				return fmt.Errorf("--apply needs --follow-up")
			}
			text, err := readEmail(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			ctx, out := cmd.Context(), cmd.OutOrStdout()

			if followUp != "" {
				id, err := resolveID(a, followUp)
				if err != nil {
					return err
				}
				c, err := a.svc.ExtractFollowUp(ctx, a.ws.Session(), id, text)
				if err != nil {
					return err
				}
				renderCandidate(out, c)
				if !apply {
					return nil
				}
				p, err := a.ws.ApplyFollowUp(ctx, id, c)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s\n", good("Updated"), p.CompanyName)
				return nil
			}

			c, err := a.svc.Extract(ctx, a.ws.Session(), text, "")
			if err != nil {
				return err
			}
			renderCandidate(out, c)
			if !save {
				return nil
			}
			p, err := a.ws.CreateFromCandidate(ctx, c)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s (%s)\n", good("Saved"), p.CompanyName, shortID(p.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the email from this file instead of stdin")
	cmd.Flags().BoolVar(&save, "save", false, "Save the extracted placement")
	cmd.Flags().StringVar(&followUp, "follow-up", "", "Treat the email as a follow-up for this placement")
	cmd.Flags().BoolVar(&apply, "apply", false, "Merge the follow-up into the placement")
	return cmd
}

func readEmail(stdin io.Reader, file string) (string, error) {
	var data []byte
	var err error
	if file != "" {
		data, err = os.ReadFile(file)
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("email text is empty")
	}
	return text, nil
}

func newInboxCmd(app func() *cliApp) *cobra.Command {
	var apply []string
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Look for follow-up emails in Gmail",
		Long: `Look for follow-up emails in Gmail and show the suggested updates.

Nothing is changed until you name a suggestion with --apply <message-id>
(repeatable, or comma separated). Message ids are shown next to each suggestion.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx, out := cmd.Context(), cmd.OutOrStdout()
			suggestions, err := a.inbox.Suggestions(ctx, a.ws.Session())
			if err != nil {
				return err
			}
			if len(suggestions) == 0 {
				fmt.Fprintln(out, muted("No new follow-ups."))
				return nil
			}
			for _, s := range suggestions {
				fmt.Fprintf(out, "%s %s %s\n", heading(s.Company), muted(s.Subject), muted("["+s.MessageID+"]"))
				renderCandidate(out, s.Candidate)
			}
			return applySuggestions(cmd, a, suggestions, apply)
		},
	}
	cmd.Flags().StringSliceVar(&apply, "apply", nil, "Merge the suggestion from this message id into its placement")
	cmd.AddCommand(newInboxLoginCmd())
	return cmd
}

// applySuggestions merges only the suggestions whose message ids were named.
func applySuggestions(cmd *cobra.Command, a *cliApp, suggestions []services.Suggestion, ids []string) error {
	ctx, out := cmd.Context(), cmd.OutOrStdout()
	byMessage := make(map[string]services.Suggestion, len(suggestions))
	for _, s := range suggestions {
		byMessage[s.MessageID] = s
	}
	var unknown []string
	for _, id := range ids {
		s, ok := byMessage[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		if _, err := a.ws.ApplyFollowUp(ctx, s.PlacementID, s.Candidate); err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", bad("Not applied"), s.Company, err)
			continue
		}
		fmt.Fprintf(out, "%s %s\n", good("Applied"), s.Company)
	}
	if len(unknown) > 0 {
		return fmt.Errorf("no suggestion for message %s", strings.Join(unknown, ", "))
	}
	return nil
}

func newInboxLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "login",
		Short:       "Authorize Gmail access and store the token",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{standalone: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return auth.Authorize(cmd.Context(), cfg.GmailCredentialsFile, cfg.GmailTokenFile, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
