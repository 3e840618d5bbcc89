// Package engine 是 MP4 批处理引擎的对外门面：扫描、合并、删除、取消
// 与配置读写。所有失败要么是同步返回值，要么是任务通道上的终态事件，
// 绝不跨 API 抛出。
package engine

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Sunrisies/merge-mp4/internal/config"
	"github.com/Sunrisies/merge-mp4/internal/domain"
	"github.com/Sunrisies/merge-mp4/internal/ffmpeg"
	"github.com/Sunrisies/merge-mp4/internal/remove"
	"github.com/Sunrisies/merge-mp4/internal/scan"
	"github.com/Sunrisies/merge-mp4/internal/task"
)

// Engine 持有配置存储、删除服务与当前活动任务。
// 同类任务（扫描/合并）同时至多一个；另一个在跑时启动返回 busy。
type Engine struct {
	cfg     *config.Store
	log     logrus.FieldLogger
	rm      remove.Service
	workers int

	mu     sync.Mutex
	scanH  *task.Handle
	mergeH *task.Handle
}

// New 构造引擎。workers <= 0 时取可用核数。
func New(cfg *config.Store, log logrus.FieldLogger, workers int) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{cfg: cfg, log: log, workers: workers}
}

// Scan 启动一次目录扫描任务。结果向量随终态事件一次性交付。
func (e *Engine) Scan(dir string) (*task.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if active(e.scanH) {
		return nil, domain.NewError(domain.ErrCodeBusy, "已有扫描任务进行中")
	}

	h := task.NewHandle(task.KindScan)
	e.scanH = h
	e.log.WithFields(logrus.Fields{"task": h.ID, "dir": dir}).Debug("扫描任务启动")

	go e.runScan(h, dir)
	return h, nil
}

func (e *Engine) runScan(h *task.Handle, dir string) {
	records, failed, err := scan.Scan(dir, e.workers, h.Cancelled, func(p domain.ScanProgress) {
		h.Emit(domain.Event{Type: domain.EventScanProgress, Scan: &p})
	}, e.log)

	switch {
	case err != nil:
		h.Finish(domain.Event{Type: domain.EventError, Code: domain.Code(err), Message: err.Error()})
	case h.Cancelled():
		// 取消也是唯一的 Error 终态路径；部分结果照常交付。
		h.Finish(domain.Event{
			Type: domain.EventError, Code: domain.ErrCodeCancelled,
			Message: "已取消", Files: records,
		})
	default:
		msg := fmt.Sprintf("扫描完成：%d 个文件", len(records))
		if failed > 0 {
			msg += fmt.Sprintf("（%d 个解析失败已跳过）", failed)
		}
		h.Finish(domain.Event{Type: domain.EventSuccess, Message: msg, Files: records})
	}
}

// Merge 启动一次合并任务。
func (e *Engine) Merge(inputs []string, output string) (*task.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if active(e.mergeH) {
		return nil, domain.NewError(domain.ErrCodeBusy, "已有合并任务进行中")
	}

	h := task.NewHandle(task.KindMerge)
	e.mergeH = h
	e.log.WithFields(logrus.Fields{"task": h.ID, "inputs": len(inputs), "output": output}).Debug("合并任务启动")

	go ffmpeg.Merge(h.Context(), inputs, output, h, e.log)
	return h, nil
}

// Cancel 置任务的取消标志（合并同时杀掉子进程）。幂等，不等待。
func (e *Engine) Cancel(h *task.Handle) {
	if h != nil {
		h.Cancel()
	}
}

// Delete 删除单个文件。门面视角同步。
func (e *Engine) Delete(path string) error { return e.rm.Delete(path) }

// BatchDelete 逐条删除并聚合结果，绝不在首个失败处短路。
func (e *Engine) BatchDelete(paths []string) remove.BatchResult { return e.rm.BatchDelete(paths) }

// Deleting 报告 path 是否有删除在途（供调用方去抖）。
func (e *Engine) Deleting(path string) bool { return e.rm.InFlight(path) }

// Config 返回配置快照（读穿透）。
func (e *Engine) Config() config.Config { return e.cfg.Snapshot() }

// UpdateConfig 以 mutator 修改配置并写穿透到磁盘。
func (e *Engine) UpdateConfig(mutate func(*config.Config)) error { return e.cfg.Update(mutate) }

// SetOutputDirectory 记住输出目录（改 + 存一步完成）。
func (e *Engine) SetOutputDirectory(dir string) error { return e.cfg.SetOutputDirectory(dir) }

// SetLastInputDirectory 记住最近一次输入目录。
func (e *Engine) SetLastInputDirectory(dir string) error { return e.cfg.SetLastInputDirectory(dir) }

// SetLastQueryDirectory 记住最近一次查询目录。
func (e *Engine) SetLastQueryDirectory(dir string) error { return e.cfg.SetLastQueryDirectory(dir) }

// active 判断句柄是否仍在运行（终态后 Done 关闭）。
func active(h *task.Handle) bool {
	if h == nil {
		return false
	}
	select {
	case <-h.Done():
		return false
	default:
		return true
	}
}
