// Package scan 实现目录扫描流水线：枚举候选 MP4、并行解析容器头、
// 按枚举序串行发射进度、响应协作式取消。
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Sunrisies/merge-mp4/internal/domain"
	"github.com/Sunrisies/merge-mp4/internal/format"
	"github.com/Sunrisies/merge-mp4/internal/mp4box"
)

type candidate struct {
	name string
	abs  string
}

type result struct {
	idx     int
	rec     domain.FileRecord
	err     error
	skipped bool // 取消后未解析直接放弃
}

// Scan 扫描 dir（只一层，不递归），返回解析成功的文件记录与解析失败计数。
//
// 规则（硬约束）：
// - 候选 = 常规文件且扩展名大小写不敏感等于 .mp4；total 在枚举后固定
// - 解析并行（workers 个 worker），进度按枚举序串行发射，Current 单调不减，
//   每个候选至多一条
// - cancelled 在每个候选派发前检查；命中则停止派发，已在途的照常完成，
//   返回已发射前缀（部分结果，不算错误）
// - 目录枚举失败 => scan_io_error，无部分结果
// - 单文件解析失败 => 记日志并跳过（非致命），计入 failed
func Scan(dir string, workers int, cancelled func() bool, emit func(domain.ScanProgress), log logrus.FieldLogger) (records []domain.FileRecord, failed int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, domain.NewPathError(domain.ErrCodeScanIO, "无法枚举目录", dir, err)
	}

	candidates := collectCandidates(dir, entries)
	total := len(candidates)

	// 空目录也要让消费方拿到 total=0 的一次快照，否则进度条无从初始化。
	if total == 0 {
		emit(domain.ScanProgress{Current: 0, Total: 0})
		return []domain.FileRecord{}, 0, nil
	}

	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	// results 无缓冲：发射端消费多快，解析端才能跑多远，
	// 取消信号因此能在常数个在途任务内生效。
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				// 每个文件的工作单元前检查取消标志。
				if cancelled() {
					results <- result{idx: idx, skipped: true}
					continue
				}
				rec, e := parseOne(candidates[idx])
				results <- result{idx: idx, rec: rec, err: e}
			}
		}()
	}

	go func() {
		for idx := range candidates {
			if cancelled() {
				break
			}
			jobs <- idx
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	// 重排序发射器：解析乱序完成，按枚举序逐个放行。
	// 派发的下标集合永远是 [0, n) 的前缀，所以放行结果也是连续前缀；
	// 遇到第一个被放弃的下标即停止发射（之后的结果只消费不输出）。
	pending := make(map[int]result, workers)
	next := 0
	halted := false
	records = make([]domain.FileRecord, 0, total)

	for r := range results {
		if halted {
			continue
		}
		pending[r.idx] = r
		for {
			cur, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)

			if cur.skipped {
				halted = true
				break
			}

			if cur.err != nil {
				failed++
				log.WithFields(logrus.Fields{
					"path":  candidates[next].abs,
					"error": cur.err,
				}).Warn("解析 MP4 头失败，跳过该文件")
			} else {
				records = append(records, cur.rec)
			}

			emit(domain.ScanProgress{
				Current:     next + 1,
				Total:       total,
				CurrentFile: candidates[next].name,
			})
			next++
		}
	}

	return records, failed, nil
}

func collectCandidates(dir string, entries []fs.DirEntry) []candidate {
	out := make([]candidate, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".mp4") {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(dir, name))
		if err != nil {
			abs = filepath.Join(dir, name)
		}
		out = append(out, candidate{name: name, abs: abs})
	}
	return out
}

func parseOne(c candidate) (domain.FileRecord, error) {
	fi, err := os.Stat(c.abs)
	if err != nil {
		return domain.FileRecord{}, domain.NewPathError(domain.ErrCodeHeaderParse, "stat 失败", c.abs, err)
	}

	info, err := mp4box.ReadInfo(c.abs)
	if err != nil {
		return domain.FileRecord{}, err
	}

	return domain.FileRecord{
		AbsPath:  c.abs,
		Name:     c.name,
		Size:     fi.Size(),
		ModUnix:  fi.ModTime().Unix(),
		Width:    info.Width,
		Height:   info.Height,
		Codec:    info.Codec,
		Duration: format.Seconds(info.DurationSeconds),
	}, nil
}
