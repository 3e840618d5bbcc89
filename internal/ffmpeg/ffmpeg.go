// Package ffmpeg 封装对外部编码器的全部交互：PATH 探测、时长探测、
// concat 脚本物化与合并驱动。引擎只做流拷贝拼接，绝不重编码。
package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/Sunrisies/merge-mp4/internal/domain"
)

// EncoderName 是期望出现在 PATH 上的编码器可执行名。
const EncoderName = "ffmpeg"

// probeTimeout 是单文件时长探测的软上限。
const probeTimeout = 30 * time.Second

// 进度契约里的两种 stderr 行。
var (
	durationRe = regexp.MustCompile(`Duration:\s+(\d{2}):(\d{2}):(\d{2}\.\d{2})`)
	timeRe     = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2}\.\d{2})`)
)

// LookPath 在 PATH 上定位编码器并返回解析后的路径。
// 每次合并都重新探测，不缓存：用户可能在会话中途才安装。
func LookPath() (string, error) {
	p, err := exec.LookPath(EncoderName)
	if err != nil {
		return "", domain.NewError(domain.ErrCodeEncoderMissing,
			"未找到 ffmpeg，请确保已安装并添加到系统 PATH 中")
	}
	return p, nil
}

// ProbeDuration 以探测模式调用编码器（ffmpeg -i <input>），从 stderr
// 解析 Duration 行并换算为秒。
//
// 注意：探测模式下编码器以非零码退出是预期行为（没有输出目标），
// 这里只认 stderr 内容，不看退出码。
func ProbeDuration(ctx context.Context, encoder, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, encoder, "-i", path)
	hideWindow(cmd)

	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return 0, domain.NewPathError(domain.ErrCodeProbe, "时长探测超时", path, ctx.Err())
	}

	if secs, ok := matchClock(durationRe, stderr.String()); ok {
		return secs, nil
	}
	return 0, domain.NewPathError(domain.ErrCodeProbe, "无法从编码器输出解析时长", path, runErr)
}

// parseTimeLine 从编码器运行输出的一行里解析 time= 时间戳（秒）。
func parseTimeLine(line string) (float64, bool) {
	return matchClock(timeRe, line)
}

func matchClock(re *regexp.Regexp, s string) (float64, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	hh, _ := strconv.ParseFloat(m[1], 64)
	mm, _ := strconv.ParseFloat(m[2], 64)
	ss, _ := strconv.ParseFloat(m[3], 64)
	return hh*3600 + mm*60 + ss, true
}
