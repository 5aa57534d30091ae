package main

import (
	"github.com/spf13/cobra"

	"github.com/azhengyongqin/transcribe-hub/internal/config"
	"github.com/azhengyongqin/transcribe-hub/internal/logger"
	"github.com/azhengyongqin/transcribe-hub/sdk"
)

var (
	mode        string
	workerName  string
	concurrency int
)

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Transcription worker",
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)

	runCmd.Flags().StringVar(&mode, "mode", "", "Claim mode: db or api (default WORKER_MODE)")
	runCmd.Flags().StringVar(&workerName, "name", "", "Worker name (default WORKER_NAME or hostname)")
	runCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Concurrent tasks (default WORKER_CONCURRENCY)")
}

// loadConfig 加载 .env 与配置，并按配置初始化日志
func loadConfig() (*config.Config, error) {
	logger.Init(false, "info")

	envFile, err := sdk.LoadEnv()
	if err != nil {
		logger.L.Warn().Err(err).Msg("加载 .env 失败")
	} else if envFile != "" {
		logger.L.Info().Str("file", envFile).Msg("已加载 .env")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Log.Production, cfg.Log.Level)
	return cfg, nil
}
