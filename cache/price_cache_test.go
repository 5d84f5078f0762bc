package cache

import (
	"context"
	"testing"

	"pricepilot/config"
	"pricepilot/models"

	"github.com/google/uuid"
)

func TestDisabledCacheIsNilAndSafe(t *testing.T) {
	cache, err := New(config.RedisConfig{})
	if err != nil {
		t.Fatalf("New with empty addr returned error: %v", err)
	}
	if cache != nil {
		t.Fatal("New with empty addr should return a nil cache")
	}

	// Every method must be a safe no-op on the nil cache.
	ctx := context.Background()
	if err := cache.SetLatest(ctx, &models.PriceRecord{ProductID: uuid.New(), Price: 999}); err != nil {
		t.Errorf("SetLatest on nil cache returned error: %v", err)
	}
	latest, err := cache.GetLatest(ctx, uuid.New())
	if err != nil {
		t.Errorf("GetLatest on nil cache returned error: %v", err)
	}
	if latest != nil {
		t.Errorf("GetLatest on nil cache = %+v, want nil", latest)
	}
	if err := cache.Close(); err != nil {
		t.Errorf("Close on nil cache returned error: %v", err)
	}
}
