package security

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestInFlightClaimsAndReleases(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRateLimiter(db)
	ctx := context.Background()

	mock.ExpectSetNX("verify:inflight:FT2209AB12", "1", 2*time.Minute).SetVal(true)
	mock.ExpectDel("verify:inflight:FT2209AB12").SetVal(1)

	won, release := r.InFlight(ctx, "FT2209AB12")
	assert.True(t, won)
	release()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInFlightLosesToHolder(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRateLimiter(db)

	mock.ExpectSetNX("verify:inflight:FT2209AB12", "1", 2*time.Minute).SetVal(false)

	won, _ := r.InFlight(context.Background(), "FT2209AB12")
	assert.False(t, won)
}

func TestInFlightToleratesRedisFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRateLimiter(db)

	mock.ExpectSetNX("verify:inflight:FT2209AB12", "1", 2*time.Minute).SetErr(assert.AnError)

	// the guard is advisory; a broken redis never blocks verification
	won, release := r.InFlight(context.Background(), "FT2209AB12")
	assert.True(t, won)
	release()
}

func TestInFlightWithoutRedis(t *testing.T) {
	r := NewRateLimiter(nil)

	won, release := r.InFlight(context.Background(), "FT2209AB12")
	assert.True(t, won)
	release()
}
