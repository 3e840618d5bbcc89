// Package mp4test 在内存中手工编码最小可解析的 MP4 box 结构，供测试使用。
// 只保证 box 头与 moov 子树合法，不包含任何媒体数据。
package mp4test

import "encoding/binary"

func u16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// box 编码一个 box：4 字节大端 size + 4 字节类型 + payload。
func box(typ string, payload ...[]byte) []byte {
	body := cat(payload...)
	return cat(u32(uint32(8+len(body))), []byte(typ), body)
}

func ftyp() []byte {
	return box("ftyp", []byte("isom"), u32(0x200), []byte("isomiso2mp41"))
}

// mvhd：version 0，timescale/duration 可控。
func mvhd(timescale, duration uint32) []byte {
	return box("mvhd",
		u32(0),                  // version+flags
		u32(0), u32(0),          // creation/modification
		u32(timescale),
		u32(duration),
		u32(0x00010000),         // rate 1.0
		u16(0x0100), u16(0),     // volume + reserved
		u32(0), u32(0),          // reserved
		matrix(),
		make([]byte, 24),        // pre_defined
		u32(2),                  // next_track_ID
	)
}

func matrix() []byte {
	return cat(
		u32(0x00010000), u32(0), u32(0),
		u32(0), u32(0x00010000), u32(0),
		u32(0), u32(0), u32(0x40000000),
	)
}

// tkhd：version 0，宽高按 16.16 定点编码。
func tkhd(width, height uint16) []byte {
	return box("tkhd",
		u32(0x000007),           // version+flags (enabled)
		u32(0), u32(0),          // creation/modification
		u32(1),                  // track_ID
		u32(0),                  // reserved
		u32(0),                  // duration
		u32(0), u32(0),          // reserved
		u16(0), u16(0), u16(0), u16(0), // layer/alt/volume/reserved
		matrix(),
		u32(uint32(width)<<16),
		u32(uint32(height)<<16),
	)
}

func hdlr(handler string) []byte {
	return box("hdlr",
		u32(0),            // version+flags
		u32(0),            // pre_defined
		[]byte(handler),   // handler_type
		make([]byte, 12),  // reserved
		[]byte("Handler\x00"),
	)
}

// sampleEntry 编码一个 visual/audio sample entry 的壳（78 字节零体 + four-CC）。
// 解析方只读 four-CC，不展开其内容。
func sampleEntry(fourCC string) []byte {
	return box(fourCC, make([]byte, 78))
}

func stsd(fourCC string) []byte {
	return box("stsd",
		u32(0), // version+flags
		u32(1), // entry_count
		sampleEntry(fourCC),
	)
}

func trak(width, height uint16, handler, fourCC string) []byte {
	return box("trak",
		tkhd(width, height),
		box("mdia",
			hdlr(handler),
			box("minf",
				box("stbl",
					stsd(fourCC),
				),
			),
		),
	)
}

// BuildVideo 生成带一条视频轨的最小 MP4。durationMs 配 timescale=1000。
func BuildVideo(width, height uint16, fourCC string, durationMs uint32) []byte {
	return cat(
		ftyp(),
		box("moov",
			mvhd(1000, durationMs),
			trak(width, height, "vide", fourCC),
		),
	)
}

// BuildAudioOnly 生成只有音频轨的最小 MP4。
func BuildAudioOnly(durationMs uint32) []byte {
	return cat(
		ftyp(),
		box("moov",
			mvhd(1000, durationMs),
			trak(0, 0, "soun", "mp4a"),
		),
	)
}

// BuildTwoTracks 生成先音频后视频两条轨的 MP4（验证“第一条视频轨”语义）。
func BuildTwoTracks(width, height uint16, fourCC string, durationMs uint32) []byte {
	return cat(
		ftyp(),
		box("moov",
			mvhd(1000, durationMs),
			trak(0, 0, "soun", "mp4a"),
			trak(width, height, "vide", fourCC),
		),
	)
}
