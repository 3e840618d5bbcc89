// Package fsx 封装引擎需要的少量文件系统原语：原子写与单文件删除。
package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// 通过可替换的函数指针，让测试能稳定模拟删除/重命名失败。
var (
	renameFunc = os.Rename
	removeFunc = os.Remove
)

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// RemoveFile 删除单个常规文件。
//
// 约束：拒绝删除目录（删除列表里的条目永远是扫描产出的文件）；
// 路径不存在原样返回 os 错误，由上层映射为 delete_error。
func RemoveFile(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return &PathTypeConflictError{Path: path, Want: "file", Got: "dir"}
	}
	return removeFunc(path)
}

// WriteFileAtomicReplace 在 dir 下原子写入 name（临时文件 + rename），存在则覆盖。
//
// - 临时文件必须与目标文件在同目录，以保证 rename 的原子性
// - 临时文件 Sync；目录 Sync 为 best-effort（平台语义差异大，失败不报错）
//
// 这保证崩溃时配置文件要么是旧内容要么是新内容，绝不是截断的 JSON。
func WriteFileAtomicReplace(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dst := filepath.Join(dir, name)

	// 同目录临时文件（前缀带 '.'，避免污染目录视图）。
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := writeAll(tmp, data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := renameFunc(tmpName, dst); err != nil {
		return err
	}

	_ = syncDirBestEffort(dir)
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func syncDirBestEffort(dir string) error {
	// Windows 上目录 Sync 的语义与支持情况不稳定，直接跳过。
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
