package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sunrisies/merge-mp4/internal/domain"
)

// eventRenderer 把任务事件翻译成交互终端上的进度行。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：引擎只发事件，CLI 决定如何展示
// - 进度按整点去抖：同一百分点只打印一次，编码器的逐行输出走 Debug 日志
type eventRenderer struct {
	w           io.Writer
	interactive bool
	log         logrus.FieldLogger

	lastPercent int
}

func newEventRenderer(w io.Writer, interactive bool, log logrus.FieldLogger) *eventRenderer {
	return &eventRenderer{w: w, interactive: interactive, log: log, lastPercent: -1}
}

func (r *eventRenderer) render(e domain.Event) {
	switch e.Type {
	case domain.EventScanProgress:
		r.renderScan(e.Scan)
	case domain.EventStatus:
		r.renderStatus(e.Message)
	case domain.EventProgress:
		r.renderProgress(e.Percent)
	case domain.EventSuccess:
		r.println(e.Message)
	case domain.EventError:
		r.println(fmt.Sprintf("失败（%s）：%s", e.Code, e.Message))
	}
}

func (r *eventRenderer) renderScan(p *domain.ScanProgress) {
	if p == nil {
		return
	}
	if p.Total == 0 {
		r.println("目录下没有 MP4 文件")
		return
	}
	r.println(fmt.Sprintf("扫描 %d/%d  %s", p.Current, p.Total, p.CurrentFile))
}

// renderStatus 区分阶段提示与编码器的原始输出行：
// 阶段提示逐条展示，原始行（含 "="，例如 frame=.. time=..）只进 Debug 日志。
func (r *eventRenderer) renderStatus(msg string) {
	if strings.Contains(msg, "=") {
		r.log.Debug(msg)
		return
	}
	r.println(msg)
}

func (r *eventRenderer) renderProgress(percent float64) {
	p := int(percent)
	if p == r.lastPercent {
		return
	}
	r.lastPercent = p
	r.println(fmt.Sprintf("进度：%d%%", p))
}

func (r *eventRenderer) println(s string) {
	if !r.interactive || r.w == nil {
		return
	}
	fmt.Fprintln(r.w, s)
}
