package widget

import (
	"sync"
	"testing"
	"time"

	"github.com/ashureev/scripture-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAppendPreservesOrder(t *testing.T) {
	t.Parallel()

	l := NewLog()
	now := time.Now()
	assert.Equal(t, 1, l.Append(domain.NewMessage(domain.RoleAgent, "hello", now)))
	assert.Equal(t, 2, l.Append(domain.NewMessage(domain.RoleUser, "hi", now)))
	assert.Equal(t, 3, l.Append(domain.NewMessage(domain.RoleAgent, "how can I help", now)))

	all := l.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"hello", "hi", "how can I help"}, []string{all[0].Content, all[1].Content, all[2].Content})

	// Mutating the copy does not reach the log.
	all[0].Content = "changed"
	assert.Equal(t, "hello", l.All()[0].Content)
}

func TestLogSince(t *testing.T) {
	t.Parallel()

	l := NewLog()
	for _, c := range []string{"a", "b", "c"} {
		l.Append(domain.NewMessage(domain.RoleUser, c, time.Now()))
	}

	assert.Len(t, l.Since(0), 3)
	tail := l.Since(2)
	require.Len(t, tail, 1)
	assert.Equal(t, "c", tail[0].Content)
	assert.Empty(t, l.Since(3))
	assert.Empty(t, l.Since(10))
	assert.Len(t, l.Since(-1), 3)
}

func TestLogConcurrentAppend(t *testing.T) {
	t.Parallel()

	l := NewLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Append(domain.NewMessage(domain.RoleUser, "x", time.Now()))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, l.Len())
}
