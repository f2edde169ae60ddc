package snapshot

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
)

func TestStoreStartsEmpty(t *testing.T) {
	var s Store
	snap, ok := s.Current()
	assert.False(t, ok)
	assert.Nil(t, snap)
	assert.False(t, s.Ready())
}

func TestStorePublishReplaces(t *testing.T) {
	s := NewStore()
	first := &domain.Snapshot{CycleID: "a"}
	second := &domain.Snapshot{CycleID: "b"}

	s.Publish(first)
	got, ok := s.Current()
	require.True(t, ok)
	assert.Same(t, first, got)

	s.Publish(nil)
	got, _ = s.Current()
	assert.Same(t, first, got, "nil publish must not clear the store")

	s.Publish(second)
	got, _ = s.Current()
	assert.Same(t, second, got)
	assert.True(t, s.Ready())
}

// cycleSnapshot builds a snapshot whose every field is derived from n, so a
// reader can detect a value mixing two cycles.
func cycleSnapshot(n int) *domain.Snapshot {
	tag := fmt.Sprintf("cycle-%d", n)
	return &domain.Snapshot{
		CycleID: tag,
		Latest:  []domain.Article{{Title: tag}},
		Related: []domain.ThemeArticles{
			{ThemeID: n, Articles: []domain.Article{{Title: tag}}},
		},
	}
}

func TestStoreConcurrentPublishAndRead(t *testing.T) {
	s := NewStore()
	s.Publish(cycleSnapshot(0))

	const writers, cycles, readers = 4, 200, 8
	var wg sync.WaitGroup
	errs := make(chan string, readers)

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 1; i <= cycles; i++ {
				s.Publish(cycleSnapshot(w*cycles + i))
			}
		}(w)
	}

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < cycles*writers; i++ {
				snap, ok := s.Current()
				if !ok {
					errs <- "store became empty"
					return
				}
				tag := snap.CycleID
				if snap.Latest[0].Title != tag || snap.Related[0].Articles[0].Title != tag ||
					fmt.Sprintf("cycle-%d", snap.Related[0].ThemeID) != tag {
					errs <- "observed mixed snapshot " + tag
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}
