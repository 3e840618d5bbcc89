// Package remove 实现单文件与批量删除：逐条尝试、聚合失败，
// 并暴露 in-flight 集合供调用方对重复点击去抖。
package remove

import (
	"sync"

	"github.com/Sunrisies/merge-mp4/internal/domain"
	"github.com/Sunrisies/merge-mp4/internal/infra/fsx"
)

// Failure 记录批量删除中单条失败的路径与原因。
type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// BatchResult 是批量删除的聚合结果。批量操作绝不在首个失败处短路。
type BatchResult struct {
	Succeeded int       `json:"succeeded"`
	Failures  []Failure `json:"failures"`
}

// Service 是删除服务。零值可用。
type Service struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// InFlight 报告 path 是否有删除在途（供 UI 去抖）。
func (s *Service) InFlight(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[path]
	return ok
}

// begin 把 path 标记为在途；已在途返回 false。
func (s *Service) begin(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == nil {
		s.inflight = make(map[string]struct{})
	}
	if _, ok := s.inflight[path]; ok {
		return false
	}
	s.inflight[path] = struct{}{}
	return true
}

func (s *Service) end(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, path)
}

// Delete 删除单个文件。失败映射为 delete_error 并携带操作系统原话。
// 同一路径已有删除在途时直接拒绝（幂等去抖）。
func (s *Service) Delete(path string) error {
	if !s.begin(path) {
		return domain.NewPathError(domain.ErrCodeDelete, "该文件已有删除操作在途", path, nil)
	}
	defer s.end(path)

	if err := fsx.RemoveFile(path); err != nil {
		return domain.NewPathError(domain.ErrCodeDelete, "删除失败", path, err)
	}
	return nil
}

// BatchDelete 逐条删除 paths，尝试每一条并聚合结果。
func (s *Service) BatchDelete(paths []string) BatchResult {
	out := BatchResult{Failures: []Failure{}}
	for _, p := range paths {
		if err := s.Delete(p); err != nil {
			out.Failures = append(out.Failures, Failure{Path: p, Reason: err.Error()})
			continue
		}
		out.Succeeded++
	}
	return out
}
