package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/kaziapp/taggraph/internal/config"
	"github.com/kaziapp/taggraph/internal/logger"
	"github.com/kaziapp/taggraph/internal/search"
	"github.com/kaziapp/taggraph/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
// TagIndex is nil when search is disabled.
type SearchIndexHandle struct {
	*search.TagIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.TagIndex == nil {
		return nil
	}
	return h.Close()
}

// ProvideSearchIndex provides the Bleve tag suggestion index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Search index disabled")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.NewTagIndex(search.Options{
		DataPath: cfg.SearchPath(),
		Logger:   log.WithComponent("search"),
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{TagIndex: index}, nil
}

// TriggerSearchReindexIfNeeded rebuilds an empty index in the background when
// the store already holds tags. Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	if indexHandle.TagIndex == nil {
		return
	}
	if docCount, _ := indexHandle.DocumentCount(); docCount > 0 {
		return
	}

	storeHandle := do.MustInvoke[*StoreHandle](i)
	tagService := do.MustInvoke[*service.TagService](i)
	log := do.MustInvoke[*logger.Logger](i)

	tags, err := storeHandle.ListTags(context.Background())
	if err != nil || len(tags) == 0 {
		return
	}

	log.Info("Search index is empty but tags exist, triggering initial reindex", "tag_count", len(tags))

	go func() {
		if _, err := tagService.ReindexTags(context.Background()); err != nil {
			log.Error("Initial reindex failed", "error", err)
		}
	}()
}
