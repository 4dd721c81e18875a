package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"moodmate/internal/backend"
	"moodmate/internal/console"
	"moodmate/internal/controller"
	"moodmate/internal/directory"
	"moodmate/pkg/logger"
)

func chatCmd() *cobra.Command {
	var (
		mood    string
		session string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the companion in the terminal",
		Example: `  moodmate chat
  moodmate chat --mood anxious
  moodmate chat --session 6650c1f2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// keep logs out of the conversation
			logger.SetOutput(os.Stderr)

			if mood == "" {
				mood = cfg.Client.Mood
			}

			client := backend.NewClient(cfg.Client, backend.StaticToken(cfg.Client.Token))
			con := console.New(os.Stdin, os.Stdout)
			ctrl := controller.New(client, directory.New(client), controller.Options{
				RequestTimeout:      cfg.Client.RequestTimeout,
				CelebrationDuration: cfg.Client.CelebrationDuration,
				Notifier:            con,
			})
			defer ctrl.Close()

			if err := ctrl.Mount(mood); err != nil {
				return err
			}
			if session != "" {
				ctrl.Wait()
				if err := ctrl.SelectSession(session); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := con.Run(ctx, ctrl); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mood, "mood", "", "mood used to pick the opening greeting")
	cmd.Flags().StringVar(&session, "session", "", "open an existing conversation by id")
	return cmd
}
