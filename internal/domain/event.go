package domain

// EventType 标识任务事件通道上的事件种类。
type EventType string

const (
	// EventScanProgress 扫描：每处理完一个候选文件发一条。
	EventScanProgress EventType = "scan_progress"
	// EventStatus 合并：阶段提示或 encoder 的 stderr 原始行。
	EventStatus EventType = "status"
	// EventProgress 合并：百分比 ∈ [0,100]，同一任务内单调不减。
	EventProgress EventType = "progress"
	// EventSuccess 终态：每个任务恰好一个终态事件。
	EventSuccess EventType = "success"
	// EventError 终态：包含 error_code（取消也走这条路径，code=cancelled）。
	EventError EventType = "error"
)

// ScanProgress 是扫描进度快照。
//
// 约束：
// - Total 在首个事件后固定
// - Current 单调不减，且 Current <= Total
// - 每个候选文件至多产生一条
type ScanProgress struct {
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	CurrentFile string `json:"current_file"`
}

// Event 是任务通道上的统一事件（tagged union：按 Type 取字段）。
//
// 消费方必须容忍未知的 Status 文本；稳定语义只由 Type 与 Code 承载。
type Event struct {
	Type    EventType `json:"type"`
	Percent float64   `json:"percent,omitempty"`
	Message string    `json:"message,omitempty"`
	Code    string    `json:"code,omitempty"` // 仅 EventError：error_code

	Scan *ScanProgress `json:"scan,omitempty"` // 仅 EventScanProgress

	// Files 仅在扫描的终态上携带（结果向量随终态一次性交付；取消时为部分结果）。
	Files []FileRecord `json:"files,omitempty"`
}

// Terminal 判断事件是否为终态（每个任务恰好一个）。
func (e Event) Terminal() bool {
	return e.Type == EventSuccess || e.Type == EventError
}
