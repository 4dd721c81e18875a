package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"moodmate/internal/config"
	"moodmate/pkg/logger"
)

var (
	configPath string
	cfg        *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "moodmate",
		Short: "Wellness chat companion: dev backend and terminal client",
		Long: `moodmate runs the wellness chat API for local development and a
terminal client that talks to it.

  moodmate serve    start the dev backend
  moodmate chat     open a conversation in the terminal`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 加载配置
			loaded, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded

			// 初始化日志
			if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")

	rootCmd.AddCommand(serveCmd(), chatCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
