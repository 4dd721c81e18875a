package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"moodmate/internal/handler"
	"moodmate/internal/llm"
	"moodmate/internal/service"
	"moodmate/internal/storage"
	"moodmate/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dev backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.port")
	return cmd
}

func serve(ctx context.Context) error {
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Errorf("Failed to close storage: %v", err)
		}
	}()

	responder, err := llm.New(ctx, cfg.Responder)
	if err != nil {
		return fmt.Errorf("failed to init responder: %w", err)
	}
	logger.Infof("Using %s responder", cfg.Responder.Provider)

	// 初始化服务
	chatService := service.NewChatService(store, responder, service.NewPlanner(), cfg.Session)
	taskService := service.NewTaskService(store)

	router := handler.NewRouter(cfg, handler.NewChatHandler(chatService), handler.NewTaskHandler(taskService))

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go chatService.RunCleanup(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("服务器启动在端口 %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("服务器正在关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
	}
	if cfg.Storage.Type == "disk" {
		if err := store.Backup(); err != nil {
			logger.Errorf("Failed to back up storage: %v", err)
		}
	}
	logger.Info("服务器已关闭")
	return nil
}
