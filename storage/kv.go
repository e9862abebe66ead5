package storage

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// Store layers RLP-encoded structured values over a raw Database. Engines
// depend on the KV methods only, so a Store can front a persistent backend
// or a per-invocation Cache alike.
type Store struct {
	db Database
}

// NewStore wraps db.
func NewStore(db Database) *Store {
	return &Store{db: db}
}

// KVPut encodes value with RLP and writes it under key.
func (s *Store) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return s.db.Put(key, encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed.
func (s *Store) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := s.db.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes key.
func (s *Store) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return s.db.Delete(key)
}

// KVIterate walks every key under prefix in ascending order, handing the key
// suffix and the raw RLP payload to fn.
func (s *Store) KVIterate(prefix []byte, fn func(suffix []byte, decode func(out interface{}) error) bool) error {
	return s.db.Iterate(prefix, func(key, value []byte) bool {
		return fn(key[len(prefix):], func(out interface{}) error {
			return rlp.DecodeBytes(value, out)
		})
	})
}
