package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gitbrand/internal/analytics"
	"gitbrand/internal/assistant"
	"gitbrand/internal/console"
	"gitbrand/internal/mcpserver"
	"gitbrand/internal/telegram"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gitbrand",
		Short:        "Conversational assistant for a GitHub account's public presence",
		SilenceUsage: true,
	}
	root.AddCommand(
		newBotCmd(),
		newChatCmd(),
		newReposCmd(),
		newMCPCmd(),
		newStatsCmd(),
		newLogoutCmd(),
	)
	return root
}

func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.cfg.RequireTelegram(); err != nil {
				return err
			}

			authSvc, err := a.newAuth()
			if err != nil {
				return fmt.Errorf("init auth: %w", err)
			}
			sched, err := a.startRefresh(ctx)
			if err != nil {
				return err
			}
			if sched != nil {
				defer sched.Stop()
			}

			bot, err := telegram.New(a.cfg.TelegramBotToken, telegram.Deps{
				Auth:      authSvc,
				Sessions:  assistant.NewManager(a.newSession),
				Settings:  a.settings,
				Catalog:   a.catalog,
				Studio:    a.studio,
				Profiles:  a.hosting,
				Journal:   a.journal,
				ParseMode: a.cfg.MessageParseMode,
				Log:       a.log,
			})
			if err != nil {
				return fmt.Errorf("create bot: %w", err)
			}
			bot.Start(ctx)
			return nil
		},
	}
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.catalog.Refresh(ctx); err != nil {
				a.log.WithError(err).Warn("repository scan failed")
			}
			return console.New(a.newSession("console"), os.Stdin, os.Stdout, a.log).Run(ctx)
		},
	}
}

func newReposCmd() *cobra.Command {
	var scored bool
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "Scan and list the account's repositories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			repos, err := a.catalog.Refresh(ctx)
			if err != nil {
				return err
			}
			if len(repos) == 0 {
				fmt.Println(color.YellowString("No repositories found."))
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			header := "NAME\tSTARS\tLANGUAGE\tDESCRIPTION"
			if scored {
				header += "\tGRADE"
			}
			fmt.Fprintln(w, header)
			for _, r := range repos {
				row := fmt.Sprintf("%s\t%d\t%s\t%s", r.Name, r.Stars, r.Language, r.Description)
				if scored {
					health := a.studio.Inspect(ctx, r).Health
					row += fmt.Sprintf("\t%s (%d)", health.Grade, health.Score)
				}
				fmt.Fprintln(w, row)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&scored, "score", false, "Grade every repository (one tree fetch per repository)")
	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve read-only account tools over MCP on stdin/stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			return mcpserver.New(a.hosting, a.settings.AvatarURL, a.log).Run(cmd.Context())
		},
	}
}

func newStatsCmd() *cobra.Command {
	var (
		date   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise one day of the conversation journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day := time.Now().UTC()
			if date != "" {
				d, err := time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				day = d
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			events, err := a.journal.Load()
			if err != nil {
				return err
			}
			stats := analytics.AnalyzeDay(events, day)
			if !asJSON {
				fmt.Println(stats.Summary())
				return nil
			}
			out, err := stats.ToJSON()
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to summarise as YYYY-MM-DD (default: today, UTC)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored GitHub token and LLM key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.settings.Logout(); err != nil {
				return err
			}
			fmt.Println(color.GreenString("✓") + " Stored credentials cleared.")
			return nil
		},
	}
}
