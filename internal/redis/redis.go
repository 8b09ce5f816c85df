// Package redis holds the short-lived pairing codes a display shows on
// screen while it waits to be claimed by an account.
package redis

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Rdb *redis.Client

// ErrCodeNotFound is returned when a pairing code is unknown or expired.
var ErrCodeNotFound = redis.Nil

const (
	pairingKeyPrefix = "pairing:"
	// PairingTTL bounds how long a code shown on screen stays claimable.
	PairingTTL = 10 * time.Minute
)

func Init(addr, username, password string) {
	Rdb = redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       0,
	})
}

// NewPairingCode generates a 6-digit code, maps it to the device serial
// and returns it. An existing code for another serial is simply shadowed
// if the digits collide; the TTL keeps the keyspace small.
func NewPairingCode(ctx context.Context, serial string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate pairing code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	if err := Rdb.Set(ctx, pairingKeyPrefix+code, serial, PairingTTL).Err(); err != nil {
		log.Error().Err(err).Str("serial", serial).Msg("failed to store pairing code")
		return "", err
	}
	return code, nil
}

// ClaimPairingCode resolves and consumes a code, returning the serial it
// was issued for. The delete makes each code single-use.
func ClaimPairingCode(ctx context.Context, code string) (string, error) {
	key := pairingKeyPrefix + code
	serial, err := Rdb.Get(ctx, key).Result()
	if err != nil {
		return "", err
	}
	if err := Rdb.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("failed to delete claimed pairing code")
	}
	return serial, nil
}
