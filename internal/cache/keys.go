package cache

import (
	"context"
	"fmt"
	"time"

	"pariposhan/internal/models"
)

const (
	ItemKeyPrefix    = "item:%s:%d"
	ProductKeyPrefix = "product:%d"
	DashboardKey     = "console:dashboard"
)

const (
	ItemTTL      = 10 * time.Minute
	ProductTTL   = 10 * time.Minute
	DashboardTTL = 30 * time.Second
)

func ItemKey(ref models.ItemRef) string {
	if ref.Kind == models.ItemKindProduct {
		return ProductKey(ref.ID)
	}
	return fmt.Sprintf(ItemKeyPrefix, ref.Kind, ref.ID)
}

func ProductKey(productID uint) string {
	return fmt.Sprintf(ProductKeyPrefix, productID)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateItem drops the cached document for ref and the console counts
// that may include it.
func InvalidateItem(ctx context.Context, ref models.ItemRef) {
	Invalidate(ctx, ItemKey(ref), DashboardKey)
}
