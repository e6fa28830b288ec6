package client_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dee-studio/internal/domain/entity"
	"dee-studio/pkg/client"
)

func TestSessionAppendAndOrder(t *testing.T) {
	s := client.NewSession()
	s.Append(&entity.GenerationResult{Seed: 1})
	s.Append(&entity.GenerationResult{Seed: 2})
	s.Append(&entity.GenerationResult{Seed: 3})

	results := s.Results()
	require.Len(t, results, 3)
	assert.Equal(t, int64(3), results[0].Seed, "newest first")
	assert.Equal(t, int64(1), results[2].Seed)
}

func TestSessionClear(t *testing.T) {
	s := client.NewSession()
	s.Append(&entity.GenerationResult{Seed: 1})
	require.Equal(t, 1, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Results())
}

func TestSessionConcurrentAppend(t *testing.T) {
	s := client.NewSession()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			s.Append(&entity.GenerationResult{Seed: seed})
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
}
