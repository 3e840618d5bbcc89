package fsx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomicReplace_CreateAndOverwrite(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFileAtomicReplace(dir, "config.json", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("首次写入失败：%v", err)
	}
	if err := WriteFileAtomicReplace(dir, "config.json", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("覆盖写入失败：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("读取失败：%v", err)
	}
	if string(b) != `{"a":2}` {
		t.Fatalf("期望覆盖后的内容，实际 %q", b)
	}

	// 临时文件不允许残留。
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("期望目录下只有目标文件，实际 %d 个条目", len(entries))
	}
}

func TestWriteFileAtomicReplace_CreatesParent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "merge-mp4")

	if err := WriteFileAtomicReplace(dir, "config.json", []byte("{}")); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		t.Fatalf("期望文件存在：%v", err)
	}
}

func TestWriteFileAtomicReplace_RenameFailedNoDst(t *testing.T) {
	dir := t.TempDir()

	boom := errors.New("boom")
	renameFunc = func(string, string) error { return boom }
	defer func() { renameFunc = os.Rename }()

	if err := WriteFileAtomicReplace(dir, "config.json", []byte("{}")); !errors.Is(err, boom) {
		t.Fatalf("期望 rename 错误透传，实际 %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); !os.IsNotExist(err) {
		t.Fatalf("rename 失败后不允许产生目标文件")
	}
}

func TestRemoveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}

	if err := RemoveFile(path); err != nil {
		t.Fatalf("删除失败：%v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("期望文件被删除")
	}
}

func TestRemoveFile_NotExist(t *testing.T) {
	if err := RemoveFile(filepath.Join(t.TempDir(), "missing.mp4")); !os.IsNotExist(err) {
		t.Fatalf("期望 os.ErrNotExist，实际 %v", err)
	}
}

func TestRemoveFile_RefuseDir(t *testing.T) {
	dir := t.TempDir()
	err := RemoveFile(dir)
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望类型冲突错误，实际 %v", err)
	}
	if _, statErr := os.Stat(dir); statErr != nil {
		t.Fatalf("目录不允许被删除：%v", statErr)
	}
}
