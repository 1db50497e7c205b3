package postgres

import (
	"context"
	"crypto/subtle"
)

// StaticAPIKeyRepository accepts exactly one configured key. It serves
// deployments without a database.
type StaticAPIKeyRepository struct {
	key []byte
}

func NewStaticAPIKeyRepository(key string) *StaticAPIKeyRepository {
	return &StaticAPIKeyRepository{key: []byte(key)}
}

func (r *StaticAPIKeyRepository) IsValid(_ context.Context, key string) (bool, error) {
	if len(r.key) == 0 {
		return false, nil
	}
	return subtle.ConstantTimeCompare(r.key, []byte(key)) == 1, nil
}
