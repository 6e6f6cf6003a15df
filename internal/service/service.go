// Package service implements the tag and object graph operations on top of a
// store. Services validate input, translate store failures into domain errors,
// and publish change events and search updates on a best-effort basis.
package service

import (
	"context"
	"log/slog"

	"github.com/kaziapp/taggraph/internal/domain"
	domainerrors "github.com/kaziapp/taggraph/internal/errors"
	"github.com/kaziapp/taggraph/internal/search"
	"github.com/kaziapp/taggraph/internal/sse"
	"github.com/kaziapp/taggraph/internal/store"
)

// EventEmitter receives change notifications. *sse.Manager implements it.
type EventEmitter interface {
	Emit(sse.Event)
}

// TagIndex is the suggestion index kept in step with tag writes.
// *search.TagIndex implements it.
type TagIndex interface {
	IndexTag(doc *search.TagDocument) error
	DeleteTag(tagID string) error
	Suggest(ctx context.Context, p search.SuggestParams) ([]search.Suggestion, error)
	Rebuild(docs []*search.TagDocument) error
}

type noopEmitter struct{}

func (noopEmitter) Emit(sse.Event) {}

func emitterOrNoop(e EventEmitter) EventEmitter {
	if e == nil {
		return noopEmitter{}
	}
	return e
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}

// mapStoreError converts store sentinels into domain errors. notFoundMsg is
// used for ErrNotFound when the store supplied no more specific message;
// opMsg describes the failed operation for storage errors.
func mapStoreError(err error, notFoundMsg, opMsg string) error {
	if err == nil {
		return nil
	}

	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) {
		return err
	}

	var storeErr *store.Error
	switch {
	case domainerrors.Is(err, store.ErrNotFound):
		msg := notFoundMsg
		if domainerrors.As(err, &storeErr) && storeErr.Message != store.ErrNotFound.Message {
			msg = storeErr.Message
		}
		return domainerrors.NotFound(msg)
	case domainerrors.Is(err, store.ErrAlreadyExists):
		msg := "already exists"
		if domainerrors.As(err, &storeErr) {
			msg = storeErr.Message
		}
		return domainerrors.Conflict(msg)
	case domainerrors.Is(err, store.ErrInvalidInput):
		msg := "invalid input"
		if domainerrors.As(err, &storeErr) {
			msg = storeErr.Message
		}
		return domainerrors.Validation(msg)
	case domainerrors.Is(err, context.Canceled), domainerrors.Is(err, context.DeadlineExceeded):
		return domainerrors.Persistence(err, opMsg+": request canceled")
	default:
		return domainerrors.Persistence(err, opMsg)
	}
}

// validateItem checks an item reference against the registered item types.
func validateItem(types itemTypeValidator, item domain.ItemRef) error {
	if !item.ValidID() {
		return domainerrors.ValidationWithDetails("invalid item id", map[string]string{
			"item_id": "must be 1-128 letters, digits, dots, dashes or underscores",
		})
	}
	return types.ValidateItemType(item.Type)
}

type itemTypeValidator interface {
	ValidateItemType(itemType string) error
}
