package client

import (
	"sync"

	"dee-studio/internal/domain/entity"
)

// Session 会话内的生成结果集合
// 会话开始时创建，显式清空或会话结束时丢弃，不跨会话持久化
type Session struct {
	mu      sync.Mutex
	results []*entity.GenerationResult
}

// NewSession 创建空会话
func NewSession() *Session {
	return &Session{}
}

// Append 追加一条生成结果
func (s *Session) Append(result *entity.GenerationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
}

// Results 返回当前结果的快照，新结果在前
func (s *Session) Results() []*entity.GenerationResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entity.GenerationResult, len(s.results))
	for i, r := range s.results {
		out[len(s.results)-1-i] = r
	}
	return out
}

// Len 返回结果条数
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// Clear 清空会话
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = nil
}
