// Package config 实现进程级配置存储：三个可选目录路径，JSON 落盘。
//
// 位置固定：<平台配置根>/merge-mp4/config.json。
// 写入统一走原子替换（临时文件 + rename），崩溃不会留下截断的 JSON。
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/Sunrisies/merge-mp4/internal/domain"
	"github.com/Sunrisies/merge-mp4/internal/infra/fsx"
)

const (
	appDirName = "merge-mp4"
	fileName   = "config.json"
)

// 可替换的函数指针：测试需要把配置根指到 TempDir。
var userConfigDir = os.UserConfigDir

// Config 是配置文件的 wire 结构。字段名对外稳定；未设置序列化为 null。
type Config struct {
	OutputDirectory    *string `json:"output_directory"`
	LastInputDirectory *string `json:"last_input_directory"`
	LastQueryDirectory *string `json:"last_query_directory"`
}

// Store 持有内存快照并串行化写入（单写者纪律：读者读快照，写者持锁改+落盘）。
type Store struct {
	mu  sync.Mutex
	cur Config
}

// FilePath 返回配置文件绝对路径。
func FilePath() (string, error) {
	root, err := userConfigDir()
	if err != nil {
		return "", domain.NewPathError(domain.ErrCodeConfigIO, "无法定位平台配置目录", "", err)
	}
	return filepath.Join(root, appDirName, fileName), nil
}

// Load 读取配置并返回 Store。
//
// - 文件不存在：返回默认值（全部未设置），不算错误
// - 文件存在但不是合法 JSON：config_corrupt
func Load() (*Store, error) {
	path, err := FilePath()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Store{}, nil
		}
		return nil, domain.NewPathError(domain.ErrCodeConfigIO, "读取配置文件失败", path, err)
	}

	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, domain.NewPathError(domain.ErrCodeConfigCorrupt, "配置文件不是合法 JSON", path, err)
	}
	return &Store{cur: c}, nil
}

// Snapshot 返回当前配置的拷贝（读者永远不与写者共享可变内存）。
func (s *Store) Snapshot() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneConfig(s.cur)
}

// Save 把当前快照落盘（确保父目录存在；失败映射为 config_io_error）。
func (s *Store) Save() error {
	s.mu.Lock()
	c := cloneConfig(s.cur)
	s.mu.Unlock()
	return writeConfig(c)
}

// SetOutputDirectory 修改输出目录并立即持久化（改 + 存一步完成）。
func (s *Store) SetOutputDirectory(dir string) error {
	return s.update(func(c *Config) { c.OutputDirectory = &dir })
}

// SetLastInputDirectory 修改最近输入目录并立即持久化。
func (s *Store) SetLastInputDirectory(dir string) error {
	return s.update(func(c *Config) { c.LastInputDirectory = &dir })
}

// SetLastQueryDirectory 修改最近查询目录并立即持久化。
func (s *Store) SetLastQueryDirectory(dir string) error {
	return s.update(func(c *Config) { c.LastQueryDirectory = &dir })
}

// Update 以 mutator 修改配置并持久化；落盘失败则回滚内存快照。
func (s *Store) Update(mutate func(*Config)) error {
	return s.update(mutate)
}

func (s *Store) update(mutate func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := cloneConfig(s.cur)
	next := cloneConfig(s.cur)
	mutate(&next)

	if err := writeConfig(next); err != nil {
		s.cur = prev
		return err
	}
	s.cur = next
	return nil
}

func writeConfig(c Config) error {
	path, err := FilePath()
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return domain.NewPathError(domain.ErrCodeConfigIO, "序列化配置失败", path, err)
	}
	if err := fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), b); err != nil {
		return domain.NewPathError(domain.ErrCodeConfigIO, "写入配置文件失败", path, err)
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := Config{}
	if c.OutputDirectory != nil {
		v := *c.OutputDirectory
		out.OutputDirectory = &v
	}
	if c.LastInputDirectory != nil {
		v := *c.LastInputDirectory
		out.LastInputDirectory = &v
	}
	if c.LastQueryDirectory != nil {
		v := *c.LastQueryDirectory
		out.LastQueryDirectory = &v
	}
	return out
}
