package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrProbeUnavailable ffprobe 不可用
var ErrProbeUnavailable = errors.New("ffprobe unavailable")

// Prober 读取音频时长
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// commandResult 进程执行结果
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner 抽象进程执行，便于测试替换
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		return res, err
	}
	return res, nil
}

// FFProbe 基于 ffprobe 命令的 Prober
type FFProbe struct {
	bin    string
	runner commandRunner
}

// NewFFProbe 创建 ffprobe 探测器；bin 为空时使用 PATH 中的 ffprobe
func NewFFProbe(bin string) *FFProbe {
	if bin == "" {
		bin = "ffprobe"
	}
	return &FFProbe{bin: bin, runner: &execRunner{}}
}

// Duration 返回媒体时长。找不到 ffprobe 时返回 ErrProbeUnavailable。
func (p *FFProbe) Duration(ctx context.Context, path string) (time.Duration, error) {
	if _, ok := p.runner.(*execRunner); ok {
		if _, err := exec.LookPath(p.bin); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrProbeUnavailable, err)
		}
	}

	res, err := p.runner.Run(ctx, p.bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe exit %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return parseDuration(res.Stdout)
}

func parseDuration(out string) (time.Duration, error) {
	s := strings.TrimSpace(out)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("ffprobe returned no duration")
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", s, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
