package ffmpeg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sunrisies/merge-mp4/internal/domain"
)

// Script 是已物化的 concat 脚本。无论合并结果如何都必须 Close 掉。
type Script struct {
	Path string
}

// Close 删除脚本文件。可重复调用。
func (s *Script) Close() error {
	if s.Path == "" {
		return nil
	}
	err := os.Remove(s.Path)
	s.Path = ""
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// WriteConcatScript 把输入路径规范化后物化为 concat demuxer 脚本：
// 每行一条 `file '<绝对路径>'`。
//
// - 规范化 = 绝对化 + 展开符号链接 + 去除 . / ..；失败 => path_error，整个合并中止
// - 路径里出现字面单引号 => path_error。concat demuxer 对单引号没有
//   可移植的转义方案，基线策略是拒绝而不是猜
func WriteConcatScript(inputs []string) (*Script, error) {
	lines := make([]string, 0, len(inputs))
	for _, in := range inputs {
		abs, err := canonicalize(in)
		if err != nil {
			return nil, domain.NewPathError(domain.ErrCodePath, "无法解析文件路径", in, err)
		}
		if strings.ContainsRune(abs, '\'') {
			return nil, domain.NewPathError(domain.ErrCodePath, "路径包含单引号，concat 脚本无法安全表示", abs, nil)
		}
		lines = append(lines, fmt.Sprintf("file '%s'\n", abs))
	}

	f, err := os.CreateTemp("", "merge-mp4-concat-*.txt")
	if err != nil {
		return nil, domain.NewError(domain.ErrCodeSpawn, "创建临时 concat 脚本失败："+err.Error())
	}
	s := &Script{Path: f.Name()}

	for _, line := range lines {
		if _, err := f.WriteString(line); err != nil {
			_ = f.Close()
			_ = s.Close()
			return nil, domain.NewPathError(domain.ErrCodeSpawn, "写入 concat 脚本失败", s.Path, err)
		}
	}
	if err := f.Close(); err != nil {
		_ = s.Close()
		return nil, domain.NewPathError(domain.ErrCodeSpawn, "关闭 concat 脚本失败", s.Path, err)
	}
	return s, nil
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
