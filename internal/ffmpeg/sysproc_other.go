//go:build !windows

package ffmpeg

import "os/exec"

// 非 Windows 平台没有控制台窗口问题。
func hideWindow(_ *exec.Cmd) {}
