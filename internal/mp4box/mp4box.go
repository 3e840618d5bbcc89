// Package mp4box 读取 ISO base media（MP4）容器头，提取第一条视频轨的
// 宽高与编码标识，以及整体时长。只读 box 结构，不触碰媒体数据。
package mp4box

import (
	"os"

	mp4 "github.com/abema/go-mp4"

	"github.com/Sunrisies/merge-mp4/internal/domain"
)

// Info 是单个文件的容器头解析结果。
type Info struct {
	Width           uint16
	Height          uint16
	Codec           string
	DurationSeconds float64
}

// CodecUnknown 是无法识别编码时的展示值。
const CodecUnknown = "未知"

// four-CC → 展示名。未命中的 four-CC 原样透出。
func codecName(fourCC string) string {
	switch fourCC {
	case "avc1", "avc3":
		return "H.264 / AVC"
	case "hev1", "hvc1":
		return "H.265 / HEVC"
	case "vp09":
		return "VP9"
	case "":
		return CodecUnknown
	default:
		return fourCC
	}
}

type trackState struct {
	width  uint16
	height uint16
	video  bool
	fourCC string
}

// ReadInfo 打开 path 并解析其 MP4 box 层级。
//
// - 时长取 mvhd.duration / mvhd.timescale
// - 宽高取第一条 handler 为 vide 的 trak 的 tkhd（16.16 定点转整）
// - 编码取该 trak stsd 下第一个 sample entry 的 four-CC
// - 非 MP4 输入返回 header_parse_error，绝不静默当作 0 时长
func ReadInfo(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, domain.NewPathError(domain.ErrCodeHeaderParse, "打开文件失败", path, err)
	}
	defer f.Close()

	var (
		mvhd   *mp4.Mvhd
		tracks []*trackState
		cur    *trackState
	)

	_, err = mp4.ReadBoxStructure(f, func(h *mp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case mp4.BoxTypeMoov(), mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl(), mp4.BoxTypeStsd():
			return h.Expand()

		case mp4.BoxTypeTrak():
			cur = &trackState{}
			tracks = append(tracks, cur)
			return h.Expand()

		case mp4.BoxTypeMvhd():
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			mvhd = box.(*mp4.Mvhd)

		case mp4.BoxTypeTkhd():
			if cur == nil || !underParent(h, mp4.BoxTypeTrak()) {
				return nil, nil
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			tkhd := box.(*mp4.Tkhd)
			// tkhd 宽高是 16.16 定点数。
			cur.width = uint16(tkhd.Width >> 16)
			cur.height = uint16(tkhd.Height >> 16)

		case mp4.BoxTypeHdlr():
			// 只认 trak/mdia/hdlr；moov/udta/meta 下也有 hdlr。
			if cur == nil || !underParent(h, mp4.BoxTypeMdia()) {
				return nil, nil
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			hdlr := box.(*mp4.Hdlr)
			if hdlr.HandlerType == [4]byte{'v', 'i', 'd', 'e'} {
				cur.video = true
			}

		default:
			// stsd 的直接子 box 是 sample entry，其类型即编码 four-CC。
			// 未注册的类型（如 vp09）同样会被枚举到，这里不读 payload。
			if cur != nil && cur.fourCC == "" && underParent(h, mp4.BoxTypeStsd()) {
				cur.fourCC = h.BoxInfo.Type.String()
			}
		}
		return nil, nil
	})
	if err != nil {
		return Info{}, domain.NewPathError(domain.ErrCodeHeaderParse, "解析 MP4 box 结构失败", path, err)
	}
	if mvhd == nil {
		return Info{}, domain.NewPathError(domain.ErrCodeHeaderParse, "未找到 moov/mvhd（不是合法的 MP4）", path, nil)
	}

	info := Info{Codec: CodecUnknown}
	if ts := mvhd.Timescale; ts > 0 {
		info.DurationSeconds = float64(mvhd.GetDuration()) / float64(ts)
	}

	// 只取第一条视频轨。
	for _, t := range tracks {
		if !t.video {
			continue
		}
		info.Width = t.width
		info.Height = t.height
		info.Codec = codecName(t.fourCC)
		break
	}
	return info, nil
}

// underParent 判断当前 box 的直接父 box 类型。
func underParent(h *mp4.ReadHandle, parent mp4.BoxType) bool {
	if len(h.Path) < 2 {
		return false
	}
	return h.Path[len(h.Path)-2] == parent
}
