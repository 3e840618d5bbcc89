package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Sunrisies/merge-mp4/internal/domain"
	"github.com/Sunrisies/merge-mp4/internal/mp4box/mp4test"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func never() bool { return false }

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("写入 %s 失败：%v", name, err)
	}
}

func TestScan_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("x"))
	writeFile(t, dir, "b.txt", []byte("y"))

	var got []domain.ScanProgress
	records, failed, err := Scan(dir, 4, never, func(p domain.ScanProgress) { got = append(got, p) }, testLogger())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(records) != 0 || failed != 0 {
		t.Fatalf("期望空结果，实际 %d 条、%d 失败", len(records), failed)
	}
	// 空目录：恰好一条 total=0 的快照。
	if len(got) != 1 || got[0].Total != 0 || got[0].Current != 0 {
		t.Fatalf("期望一条 total=0 的进度，实际 %+v", got)
	}
}

func TestScan_CaseInsensitiveFilter(t *testing.T) {
	dir := t.TempDir()
	video := mp4test.BuildVideo(1280, 720, "avc1", 1000)
	writeFile(t, dir, "A.mp4", video)
	writeFile(t, dir, "b.MP4", video)
	writeFile(t, dir, "c.Mp4", video)
	writeFile(t, dir, "d.txt", []byte("x"))

	records, failed, err := Scan(dir, 4, never, func(domain.ScanProgress) {}, testLogger())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if failed != 0 {
		t.Fatalf("不期望解析失败：%d", failed)
	}
	if len(records) != 3 {
		t.Fatalf("期望 3 条记录，实际 %d", len(records))
	}
	for _, r := range records {
		if r.Name == "d.txt" {
			t.Fatalf("d.txt 不允许入选")
		}
	}
}

func TestScan_RecordFields(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sample.mp4", mp4test.BuildVideo(1920, 1080, "avc1", 65480))

	records, _, err := Scan(dir, 1, never, func(domain.ScanProgress) {}, testLogger())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(records) != 1 {
		t.Fatalf("期望 1 条记录，实际 %d", len(records))
	}
	r := records[0]
	if r.Width != 1920 || r.Height != 1080 {
		t.Errorf("期望 1920x1080，实际 %dx%d", r.Width, r.Height)
	}
	if r.Codec != "H.264 / AVC" {
		t.Errorf("期望 H.264 / AVC，实际 %q", r.Codec)
	}
	if r.Duration != "01:05" {
		t.Errorf("期望时长 01:05，实际 %q", r.Duration)
	}
	if !filepath.IsAbs(r.AbsPath) {
		t.Errorf("AbsPath 必须是绝对路径：%q", r.AbsPath)
	}
	if r.Size <= 0 || r.ModUnix == 0 {
		t.Errorf("期望 stat 字段非空：size=%d mod=%d", r.Size, r.ModUnix)
	}
}

func TestScan_ProgressOrderedAndComplete(t *testing.T) {
	dir := t.TempDir()
	const n = 40
	video := mp4test.BuildVideo(640, 360, "avc1", 2000)
	for i := 0; i < n; i++ {
		writeFile(t, dir, fmt.Sprintf("v%03d.mp4", i), video)
	}

	var got []domain.ScanProgress
	records, _, err := Scan(dir, 8, never, func(p domain.ScanProgress) { got = append(got, p) }, testLogger())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(records) != n {
		t.Fatalf("期望 %d 条记录，实际 %d", n, len(records))
	}
	if len(got) != n {
		t.Fatalf("期望每个文件恰好一条进度，实际 %d 条", len(got))
	}
	for i, p := range got {
		if p.Total != n {
			t.Fatalf("Total 必须固定为 %d，实际 %d", n, p.Total)
		}
		if p.Current != i+1 {
			t.Fatalf("Current 必须按枚举序递增：第 %d 条是 %d", i, p.Current)
		}
		if want := fmt.Sprintf("v%03d.mp4", i); p.CurrentFile != want {
			t.Fatalf("进度必须按枚举序发射：期望 %q，实际 %q", want, p.CurrentFile)
		}
	}
}

func TestScan_ParseFailureIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.mp4", []byte("junk that is not a container"))
	writeFile(t, dir, "good.mp4", mp4test.BuildVideo(1280, 720, "avc1", 3000))

	var emitted int
	records, failed, err := Scan(dir, 2, never, func(domain.ScanProgress) { emitted++ }, testLogger())
	if err != nil {
		t.Fatalf("单文件失败必须非致命：%v", err)
	}
	if failed != 1 {
		t.Fatalf("期望 1 个解析失败，实际 %d", failed)
	}
	if len(records) != 1 || records[0].Name != "good.mp4" {
		t.Fatalf("期望只保留 good.mp4，实际 %+v", records)
	}
	// 失败文件同样占一条进度。
	if emitted != 2 {
		t.Fatalf("期望 2 条进度，实际 %d", emitted)
	}
}

func TestScan_EnumerationFailure(t *testing.T) {
	_, _, err := Scan(filepath.Join(t.TempDir(), "missing"), 2, never, func(domain.ScanProgress) {}, testLogger())
	if domain.Code(err) != domain.ErrCodeScanIO {
		t.Fatalf("期望 scan_io_error，实际 %v", err)
	}
}

func TestScan_CancelMidway(t *testing.T) {
	dir := t.TempDir()
	const n = 60
	video := mp4test.BuildVideo(640, 360, "avc1", 2000)
	for i := 0; i < n; i++ {
		writeFile(t, dir, fmt.Sprintf("v%03d.mp4", i), video)
	}

	var flag atomic.Bool
	var got []domain.ScanProgress
	records, _, err := Scan(dir, 4, flag.Load, func(p domain.ScanProgress) {
		got = append(got, p)
		if p.Current == 10 {
			flag.Store(true)
		}
	}, testLogger())
	if err != nil {
		t.Fatalf("取消不是错误：%v", err)
	}
	if len(records) >= n {
		t.Fatalf("期望部分结果，实际 %d", len(records))
	}
	// 已发射序列必须仍是枚举序的连续前缀。
	for i, p := range got {
		if p.Current != i+1 {
			t.Fatalf("取消后前缀被破坏：第 %d 条 Current=%d", i, p.Current)
		}
	}
	// 结果向量是未取消结果的前缀。
	for i, r := range records {
		if want := fmt.Sprintf("v%03d.mp4", i); r.Name != want {
			t.Fatalf("结果必须是前缀：第 %d 条是 %q", i, r.Name)
		}
	}
}
