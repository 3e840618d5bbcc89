// Package task 提供任务运行时：每个活动任务一条有界事件通道、
// 一个协作式取消标志与配套的 context。
package task

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Sunrisies/merge-mp4/internal/domain"
)

// EventBuffer 是每任务事件通道的容量。
const EventBuffer = 100

// Kind 标识任务类别。每类同时至多一个活动任务（由 engine 保证）。
type Kind string

const (
	KindScan  Kind = "scan"
	KindMerge Kind = "merge"
)

// Handle 是对一次运行中任务的不透明引用。
//
// 生命周期：在 scan/merge 启动时创建；终态事件发出（或取消被确认）后
// 事件通道关闭，Handle 随之结束。
type Handle struct {
	ID   string
	Kind Kind

	ctx    context.Context
	cancel context.CancelFunc
	flag   atomic.Bool

	mu     sync.Mutex
	closed bool
	events chan domain.Event
	done   chan struct{}
}

// NewHandle 创建一个新任务句柄。
func NewHandle(kind Kind) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handle{
		ID:     uuid.NewString(),
		Kind:   kind,
		ctx:    ctx,
		cancel: cancel,
		events: make(chan domain.Event, EventBuffer),
		done:   make(chan struct{}),
	}
}

// Events 返回事件通道的接收端。终态事件之后通道关闭。
func (h *Handle) Events() <-chan domain.Event { return h.events }

// Context 返回随取消一起结束的 context（合并用它杀掉子进程）。
func (h *Handle) Context() context.Context { return h.ctx }

// Cancel 置取消标志并结束 context。幂等，不等待任务退出。
func (h *Handle) Cancel() {
	h.flag.Store(true)
	h.cancel()
}

// Cancelled 报告取消标志（扫描在每个文件的工作单元前检查）。
func (h *Handle) Cancelled() bool { return h.flag.Load() }

// Done 在终态事件发出后关闭。
func (h *Handle) Done() <-chan struct{} { return h.done }

// Emit 发送一条非终态事件。通道满时阻塞（背压）；任务被取消后
// 消费方可能已离开，此时事件被丢弃而不是永久阻塞。
// 终态之后的 Emit 是 no-op（终态必须是最后一条）。
func (h *Handle) Emit(e domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.events <- e:
	case <-h.ctx.Done():
		// 尽力而为：取消后仍有余量就投递，否则丢弃。
		select {
		case h.events <- e:
		default:
		}
	}
}

// Finish 发送终态事件并关闭通道。恰好生效一次，后续调用被忽略。
// 终态必达：缓冲满时丢弃最旧的进度事件为终态腾位。
// 发射方是单 goroutine，closed 置位后不会再有并发 Emit。
func (h *Handle) Finish(e domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	for {
		select {
		case h.events <- e:
		default:
			select {
			case <-h.events:
			default:
			}
			continue
		}
		break
	}

	// 先关 done 再关 events：消费方看到通道关闭时，句柄必然已经离开活动态。
	close(h.done)
	close(h.events)
	h.cancel()
}
