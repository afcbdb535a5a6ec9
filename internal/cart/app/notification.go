package app

import (
	"context"
	"errors"
	"time"

	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/domain"
	"github.com/google/uuid"
)

type NotificationKind string

const (
	KindStockUnavailable NotificationKind = "stock_unavailable"
	KindAddFailed        NotificationKind = "add_failed"
	KindRemoveFailed     NotificationKind = "remove_failed"
	KindUpdateFailed     NotificationKind = "update_failed"
)

var (
	ErrQuantityUnavailable = errors.New("requested quantity unavailable")
	ErrAddFailed           = errors.New("failed to add product")
	ErrRemoveFailed        = errors.New("failed to remove product")
	ErrUpdateFailed        = errors.New("failed to update product amount")
)

var messages = map[NotificationKind]string{
	KindStockUnavailable: "Quantidade solicitada fora de estoque",
	KindAddFailed:        "Erro na adição do produto",
	KindRemoveFailed:     "Erro na remoção do produto",
	KindUpdateFailed:     "Erro na alteração de quantidade do produto",
}

type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	ProductID domain.ProductID `json:"product_id"`
	At        time.Time        `json:"at"`
}

func NewNotification(kind NotificationKind, id domain.ProductID, now time.Time) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   Message(kind),
		ProductID: id,
		At:        now.UTC(),
	}
}

func Message(kind NotificationKind) string {
	return messages[kind]
}

// KindOf maps an operation error back to the notification it raised.
func KindOf(err error) (NotificationKind, bool) {
	switch {
	case errors.Is(err, ErrQuantityUnavailable):
		return KindStockUnavailable, true
	case errors.Is(err, ErrAddFailed):
		return KindAddFailed, true
	case errors.Is(err, ErrRemoveFailed):
		return KindRemoveFailed, true
	case errors.Is(err, ErrUpdateFailed):
		return KindUpdateFailed, true
	}
	return "", false
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) {}
