package domain

// FileRecord 描述一次扫描得到的 MP4 文件（扫描阶段做 stat + 读容器头，不读媒体数据）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute，且在解析时刻存在
// - 扫描成功后记录不可变；从列表删除即销毁
type FileRecord struct {
	AbsPath string `json:"abs_path"`
	Name    string `json:"name"` // 展示名（basename）
	Size    int64  `json:"size"`
	ModUnix int64  `json:"mod_unix"` // 0 = 修改时间未知

	// 视频轨属性。Width/Height 为 0 表示未知（纯音频 MP4 合法）。
	Width    uint16 `json:"width"`
	Height   uint16 `json:"height"`
	Codec    string `json:"codec"`    // 例如 "H.264 / AVC"；无法识别时为原始 four-CC 或 "未知"
	Duration string `json:"duration"` // 已格式化："MM:SS" 或 "HH:MM:SS"
}
