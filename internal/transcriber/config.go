package transcriber

import (
	"fmt"

	"github.com/azhengyongqin/transcribe-hub/internal/config"
)

// FromConfig 按 PROVIDER_KIND 创建转写客户端
func FromConfig(cfg config.ProviderConfig) (*Client, error) {
	var p Provider
	switch cfg.Kind {
	case "", "gemini":
		p = NewGemini(GeminiOptions{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	case "whisper":
		p = NewWhisper(cfg.BaseURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Kind)
	}

	return NewClient(p, Options{
		InlineMaxBytes:  cfg.InlineMaxBytes,
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.MaxPollAttempts,
		DefaultLanguage: cfg.DefaultLanguage,
		Structured:      true,
		Generate:        Policy{Attempts: cfg.GenerateAttempts, Delay: cfg.GenerateDelay},
		Upload:          Policy{Attempts: cfg.UploadAttempts, Delay: cfg.UploadDelay},
	}), nil
}
