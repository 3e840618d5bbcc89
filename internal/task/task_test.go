package task

import (
	"testing"
	"time"

	"github.com/Sunrisies/merge-mp4/internal/domain"
)

func TestHandle_FIFOAndTerminalCloses(t *testing.T) {
	h := NewHandle(KindMerge)

	h.Emit(domain.Event{Type: domain.EventStatus, Message: "一"})
	h.Emit(domain.Event{Type: domain.EventProgress, Percent: 10})
	h.Finish(domain.Event{Type: domain.EventSuccess, Message: "完成"})

	var got []domain.Event
	for e := range h.Events() {
		got = append(got, e)
	}
	if len(got) != 3 {
		t.Fatalf("期望 3 条事件，实际 %d", len(got))
	}
	if got[0].Message != "一" || got[1].Percent != 10 {
		t.Fatalf("事件必须保持发射顺序：%+v", got)
	}
	if !got[2].Terminal() {
		t.Fatalf("最后一条必须是终态")
	}

	select {
	case <-h.Done():
	default:
		t.Fatalf("终态后 Done 必须已关闭")
	}
}

func TestHandle_EmitAfterFinishDropped(t *testing.T) {
	h := NewHandle(KindScan)
	h.Finish(domain.Event{Type: domain.EventError, Code: domain.ErrCodeScanIO})
	// 不允许 panic，也不允许出现在终态之后。
	h.Emit(domain.Event{Type: domain.EventStatus, Message: "迟到"})

	var got []domain.Event
	for e := range h.Events() {
		got = append(got, e)
	}
	if len(got) != 1 || !got[0].Terminal() {
		t.Fatalf("终态必须是最后一条：%+v", got)
	}
}

func TestHandle_FinishExactlyOnce(t *testing.T) {
	h := NewHandle(KindMerge)
	h.Finish(domain.Event{Type: domain.EventSuccess})
	h.Finish(domain.Event{Type: domain.EventError, Code: domain.ErrCodeProcess})

	n := 0
	for range h.Events() {
		n++
	}
	if n != 1 {
		t.Fatalf("期望恰好一个终态，实际 %d 条事件", n)
	}
}

func TestHandle_CancelIdempotent(t *testing.T) {
	h := NewHandle(KindScan)
	if h.Cancelled() {
		t.Fatalf("新句柄不应处于取消态")
	}
	h.Cancel()
	h.Cancel()
	if !h.Cancelled() {
		t.Fatalf("取消标志必须置位")
	}
	select {
	case <-h.Context().Done():
	default:
		t.Fatalf("取消必须结束 context")
	}
}

func TestHandle_CancelledEmitDoesNotBlock(t *testing.T) {
	h := NewHandle(KindMerge)
	// 填满缓冲，模拟消费方离开。
	for i := 0; i < EventBuffer; i++ {
		h.Emit(domain.Event{Type: domain.EventStatus})
	}
	h.Cancel()

	doneCh := make(chan struct{})
	go func() {
		h.Emit(domain.Event{Type: domain.EventStatus, Message: "取消后"})
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("取消后 Emit 不允许永久阻塞")
	}
}

func TestHandle_FinishEvictsForTerminalWhenFull(t *testing.T) {
	h := NewHandle(KindScan)
	for i := 0; i < EventBuffer; i++ {
		h.Emit(domain.Event{Type: domain.EventProgress, Percent: float64(i)})
	}
	h.Finish(domain.Event{Type: domain.EventSuccess, Message: "完成"})

	var got []domain.Event
	for e := range h.Events() {
		got = append(got, e)
	}
	if len(got) != EventBuffer {
		t.Fatalf("腾位应只丢一条进度：期望 %d 条，实际 %d", EventBuffer, len(got))
	}
	last := got[len(got)-1]
	if !last.Terminal() || last.Message != "完成" {
		t.Fatalf("缓冲满时终态也必须送达：%+v", last)
	}
}

func TestHandle_UniqueIDs(t *testing.T) {
	a, b := NewHandle(KindScan), NewHandle(KindScan)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("任务 ID 必须非空且唯一：%q vs %q", a.ID, b.ID)
	}
}
