package sdk

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var (
	envLoaded bool
	envLoadMu sync.Mutex
)

// LoadEnv 从当前目录向上查找第一个 .env 文件并加载；已存在的环境变量不会被覆盖
func LoadEnv() (string, error) {
	envLoadMu.Lock()
	defer envLoadMu.Unlock()

	if envLoaded {
		return "", nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	possiblePaths := []string{
		filepath.Join(wd, ".env"),
		filepath.Join(wd, "..", ".env"),
		filepath.Join(wd, "..", "..", ".env"),
	}

	var envPath string
	for _, path := range possiblePaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			envPath = absPath
			break
		}
	}

	// 没有 .env 文件时只使用环境变量
	if envPath == "" {
		envLoaded = true
		return "", nil
	}

	if err := godotenv.Load(envPath); err != nil {
		return "", err
	}

	log.Debug().Str("path", envPath).Msg("已加载环境变量文件")
	envLoaded = true
	return envPath, nil
}
