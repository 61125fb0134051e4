package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"dailymission/internal/client"
	"dailymission/internal/models"
	"dailymission/internal/progress"
)

func loginCmd(c *cli) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google",
		Long: `Prints the sign-in URL. After signing in with the browser, paste the
token shown by the server, or pass it with --token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if token == "" {
				fmt.Fprintf(out, "Open this URL in a browser to sign in:\n  %s\n\nToken: ", a.api.LoginURL())
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read token: %w", err)
				}
				token = strings.TrimSpace(line)
			}
			if token == "" {
				return errors.New("no token given")
			}

			a.api.SetToken(token)
			session, err := a.api.Session(ctx)
			if err != nil {
				return err
			}
			if session == nil {
				return errors.New("the server rejected this token")
			}
			if err := saveCredentials(a.cfg.credentialsPath(), credentials{Token: token}); err != nil {
				return err
			}

			if err := a.auth.HandleEvent(ctx, client.EventSignedIn, session); err != nil {
				a.logger.Warn("Could not load progress", slog.String("error", err.Error()))
			}

			state := a.store.Snapshot()
			if state.User == nil {
				fmt.Fprintf(out, "Signed in as %s. Create your profile with `missionctl profile --name <name>`.\n", session.Email)
				return nil
			}
			fmt.Fprintf(out, "Welcome back, %s!\n", state.User.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Session token issued after sign-in")
	return cmd
}

func profileCmd(c *cli) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Create your profile after the first sign-in",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx := cmd.Context()
			if err := a.start(ctx); err != nil {
				return err
			}
			if a.auth.Current().Session == nil {
				return errNotSignedIn
			}
			if a.store.Snapshot().User != nil {
				return errors.New("profile already exists")
			}

			user, err := a.auth.SetupProfile(ctx, name)
			if user == nil {
				return err
			}
			if err != nil {
				a.logger.Warn("Could not load progress", slog.String("error", err.Error()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile created. Welcome, %s!\n", user.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.MarkFlagRequired("name")
	return cmd
}

func logoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget local state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			if err := a.auth.SignOut(cmd.Context()); err != nil {
				return err
			}
			if err := removeCredentials(a.cfg.credentialsPath()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func statusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show streak, scores, badges and the active mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx := cmd.Context()
			if err := a.start(ctx); err != nil {
				return err
			}
			if err := a.guard(ctx, client.GuardOptions{RequireAuth: true}); err != nil {
				return err
			}

			user := a.store.Snapshot().User
			if user == nil {
				return errNoProfile
			}
			mission, err := a.api.ActiveMission(ctx, user.ID)
			if err != nil {
				return err
			}
			a.store.SetActiveMission(mission)

			printState(cmd.OutOrStdout(), a.store.Snapshot())
			return nil
		},
	}
}

func startCmd(c *cli) *cobra.Command {
	var category, title string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx := cmd.Context()

			cat, err := models.ParseCategory(category)
			if err != nil {
				return err
			}
			if err := a.start(ctx); err != nil {
				return err
			}
			if err := a.guard(ctx, client.GuardOptions{RequireAuth: true, CheckActiveMission: true}); err != nil {
				return err
			}

			mission, err := a.coord.StartMission(ctx, cat, title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Mission #%d started: [%s] %s\n", mission.ID, mission.Category, mission.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Category: sleep, meal, grooming or activity")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Mission title")
	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("title")
	return cmd
}

func completeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "complete",
		Short: "Complete the active mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if err := a.start(ctx); err != nil {
				return err
			}
			if err := a.guard(ctx, client.GuardOptions{RequireAuth: true, RequireMission: true}); err != nil {
				return err
			}

			op, err := a.coord.CompleteMission(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Mission complete! +1 %s, streak %d\n", op.Optimistic.Category, op.Optimistic.Streak)
			for _, id := range op.Optimistic.UnlockedBadges {
				fmt.Fprintf(out, "Badge unlocked: %s\n", badgeName(id))
			}
			return nil
		},
	}
}

func abandonCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "abandon",
		Short: "Give up the active mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx := cmd.Context()
			if err := a.start(ctx); err != nil {
				return err
			}
			if err := a.guard(ctx, client.GuardOptions{RequireAuth: true, RequireMission: true}); err != nil {
				return err
			}

			if _, err := a.coord.AbandonMission(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Mission abandoned. Try again tomorrow!")
			return nil
		},
	}
}

func badgesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "badges",
		Short: "List badges",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx := cmd.Context()
			if err := a.start(ctx); err != nil {
				return err
			}
			if err := a.guard(ctx, client.GuardOptions{RequireAuth: true}); err != nil {
				return err
			}

			list, err := a.api.Badges(ctx)
			if err != nil {
				return err
			}
			unlocked := make(map[string]bool, len(list.Unlocked))
			for _, id := range list.Unlocked {
				unlocked[id] = true
			}
			out := cmd.OutOrStdout()
			for _, b := range list.Catalog {
				fmt.Fprintf(out, "%s %-16s %s\n", checkmark(unlocked[b.ID]), b.DisplayName, b.Description)
			}
			return nil
		},
	}
}

func rewardsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rewards",
		Short: "List rewards",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx := cmd.Context()
			if err := a.start(ctx); err != nil {
				return err
			}
			if err := a.guard(ctx, client.GuardOptions{RequireAuth: true}); err != nil {
				return err
			}

			rewards, err := a.api.Rewards(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range rewards {
				fmt.Fprintf(out, "%s %-24s at %d missions\n", checkmark(r.Unlocked), r.Title, r.UnlockScore)
			}
			total := a.store.Snapshot().TotalCompleted
			if next, ok := progress.NextReward(total); ok {
				fmt.Fprintf(out, "\n%d more to unlock %s\n", next.UnlockScore-total, next.Title)
			}
			return nil
		},
	}
}

func badgeName(id string) string {
	if b, ok := progress.LookupBadge(id); ok {
		return b.DisplayName
	}
	return id
}

func checkmark(ok bool) string {
	if ok {
		return "[x]"
	}
	return "[ ]"
}
