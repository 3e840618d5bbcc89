package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/Sunrisies/merge-mp4/internal/domain"
)

// Emitter 是合并驱动的事件出口（task.Handle 满足该接口）。
// 驱动只发事件，不做任何输出；每次调用恰好产生一个终态。
type Emitter interface {
	Emit(domain.Event)
	Finish(domain.Event)
}

// Merge 驱动一次流拷贝拼接：
//
//	预检 → 探测编码器 → 累计总时长 → 物化 concat 脚本 → 运行并跟踪 stderr
//
// 进度划分：探测阶段占 0–10%，运行阶段占 10–100%（其中运行内部
// 封顶 99%，只有进程干净退出才补到 100）。已发射百分比单调不减，
// 低于水位的样本被抑制。
//
// 取消：ctx 结束即杀掉子进程，清空剩余 stderr 后以 cancelled 终态收尾。
func Merge(ctx context.Context, inputs []string, output string, em Emitter, log logrus.FieldLogger) {
	if err := preflight(inputs, output); err != nil {
		finishErr(ctx, em, err)
		return
	}

	// 水位线：保证 Progress 序列单调不减。
	last := 0.0
	progress := func(pct float64) {
		if pct <= last {
			return
		}
		last = pct
		em.Emit(domain.Event{Type: domain.EventProgress, Percent: pct})
	}
	status := func(msg string) {
		em.Emit(domain.Event{Type: domain.EventStatus, Message: msg})
	}

	// Probing：定位编码器。
	status("检查编码器环境...")
	encoder, err := LookPath()
	if err != nil {
		finishErr(ctx, em, err)
		return
	}

	// Summing：逐文件探测时长，探测阶段映射到前 10%。
	status("计算视频总时长...")
	var totalDuration float64
	for i, in := range inputs {
		if ctx.Err() != nil {
			finishCancelled(em)
			return
		}
		d, err := ProbeDuration(ctx, encoder, in)
		if err != nil {
			finishErr(ctx, em, err)
			return
		}
		totalDuration += d
		progress(float64(i+1) / float64(len(inputs)) * 10)
	}

	// Scripting：物化 concat 脚本；任何结局都要删掉它。
	script, err := WriteConcatScript(inputs)
	if err != nil {
		finishErr(ctx, em, err)
		return
	}
	defer script.Close()

	// Running：concat demuxer + 流拷贝。
	status("启动 FFmpeg 合并...")
	cmd := exec.CommandContext(ctx, encoder,
		"-f", "concat", "-safe", "0", "-i", script.Path, "-c", "copy", "-y", output)
	hideWindow(cmd)
	cmd.Stdout = io.Discard

	stderr, err := cmd.StderrPipe()
	if err != nil {
		finishErr(ctx, em, domain.NewError(domain.ErrCodeSpawn, "无法接管编码器 stderr："+err.Error()))
		return
	}
	if err := cmd.Start(); err != nil {
		finishErr(ctx, em, domain.NewError(domain.ErrCodeSpawn, "启动 FFmpeg 失败："+err.Error()))
		return
	}
	log.WithFields(logrus.Fields{"pid": cmd.Process.Pid, "output": output}).Debug("编码器已启动")

	// stderr 逐行跟踪：每行原样透出；time= 行换算为百分比。
	// 取消时 CommandContext 会杀进程，这个循环以 EOF 自然结束（清空残余输出）。
	sc := bufio.NewScanner(stderr)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		status(line)

		if t, ok := parseTimeLine(line); ok && totalDuration > 0 {
			progress(math.Min(t/totalDuration, 0.99)*90 + 10)
		}
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		finishCancelled(em)
		return
	}
	if waitErr != nil {
		var ee *exec.ExitError
		if errors.As(waitErr, &ee) {
			finishErr(ctx, em, domain.NewError(domain.ErrCodeProcess,
				fmt.Sprintf("FFmpeg 进程异常退出，退出码: %d", ee.ExitCode())))
			return
		}
		finishErr(ctx, em, domain.NewError(domain.ErrCodeSpawn, "等待 FFmpeg 进程失败："+waitErr.Error()))
		return
	}

	progress(100)
	em.Finish(domain.Event{Type: domain.EventSuccess, Message: "文件已保存到: " + output})
}

// preflight 在任何进程被派生之前验证参数。
func preflight(inputs []string, output string) error {
	if len(inputs) == 0 {
		return domain.NewError(domain.ErrCodePath, "输入列表为空")
	}
	for _, in := range inputs {
		fi, err := os.Stat(in)
		if err != nil {
			return domain.NewPathError(domain.ErrCodePath, "文件不存在", in, err)
		}
		if !fi.Mode().IsRegular() {
			return domain.NewPathError(domain.ErrCodePath, "不是文件", in, nil)
		}
	}
	parent := filepath.Dir(output)
	if fi, err := os.Stat(parent); err != nil || !fi.IsDir() {
		return domain.NewPathError(domain.ErrCodePath, "输出目录不存在", parent, err)
	}
	return nil
}

// finishErr 发出 Error 终态。ctx 已结束时一律归并为 cancelled：
// 取消会杀掉在途子进程，随之而来的探测/派生失败只是取消的回声。
func finishErr(ctx context.Context, em Emitter, err error) {
	if ctx.Err() != nil {
		finishCancelled(em)
		return
	}
	code := domain.Code(err)
	if code == "" {
		code = domain.ErrCodeProcess
	}
	em.Finish(domain.Event{Type: domain.EventError, Code: code, Message: err.Error()})
}

func finishCancelled(em Emitter) {
	em.Finish(domain.Event{Type: domain.EventError, Code: domain.ErrCodeCancelled, Message: "已取消"})
}
