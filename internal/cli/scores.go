package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/score-tracker/internal/domain"
)

func output(cmd *cobra.Command) *Output {
	return NewOutput(cfg.Output, cmd.OutOrStdout())
}

// passwordFlag binds --password, falling back to SCORECTL_PASSWORD
func passwordFlag(cmd *cobra.Command, password *string) {
	cmd.Flags().StringVar(password, "password", os.Getenv("SCORECTL_PASSWORD"), "Player password (env: SCORECTL_PASSWORD)")
}

func requirePassword(password string) error {
	if password == "" {
		return fmt.Errorf("--password or SCORECTL_PASSWORD is required")
	}
	return nil
}

func newSignupCmd() *cobra.Command {
	var (
		password  string
		score     int64
		timeTaken float64
	)

	cmd := &cobra.Command{
		Use:   "signup <player>",
		Short: "Register a new player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassword(password); err != nil {
				return err
			}

			msg, err := client.Signup(domain.SignupRequest{
				PlayerName: args[0],
				Password:   password,
				Score:      score,
				TimeTaken:  timeTaken,
			})
			if err != nil {
				return err
			}

			output(cmd).PrintMessage(msg)
			return nil
		},
	}

	passwordFlag(cmd, &password)
	cmd.Flags().Int64Var(&score, "score", 0, "Initial score")
	cmd.Flags().Float64Var(&timeTaken, "time", 0, "Initial time taken in seconds")

	return cmd
}

func newLoginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <player>",
		Short: "Check a player's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassword(password); err != nil {
				return err
			}

			msg, err := client.Login(domain.LoginRequest{PlayerName: args[0], Password: password})
			if err != nil {
				return err
			}

			output(cmd).PrintMessage(msg)
			return nil
		},
	}

	passwordFlag(cmd, &password)
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <player>",
		Short: "Show a player's score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := client.ShowScore(args[0])
			if err != nil {
				return err
			}

			output(cmd).Print(score)
			return nil
		},
	}
}

func newLeaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"top"},
		Short:   "Show the top players",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := client.Leaderboard()
			if err != nil {
				return err
			}

			output(cmd).Print(entries)
			return nil
		},
	}
}

func newUpdateCmd() *cobra.Command {
	var (
		password  string
		score     int64
		timeTaken float64
	)

	cmd := &cobra.Command{
		Use:   "update <player>",
		Short: "Overwrite a player's score and time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := client.UpdateScore(domain.ScoreSubmission{
				PlayerName: args[0],
				Password:   password,
				Score:      score,
				TimeTaken:  timeTaken,
			})
			if err != nil {
				return err
			}

			output(cmd).PrintMessage(msg)
			return nil
		},
	}

	passwordFlag(cmd, &password)
	cmd.Flags().Int64Var(&score, "score", 0, "New score (required)")
	cmd.Flags().Float64Var(&timeTaken, "time", 0, "New time taken in seconds (required)")
	_ = cmd.MarkFlagRequired("score")
	_ = cmd.MarkFlagRequired("time")

	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <player>",
		Short: "Delete a player and their score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := client.DeleteScore(args[0])
			if err != nil {
				return err
			}

			output(cmd).PrintMessage(msg)
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := client.Health()
			if err != nil {
				return err
			}

			output(cmd).Print(status)
			return nil
		},
	}
}
