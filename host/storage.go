package host

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// Storage is a contract's view of one durability class. Keys are scoped to
// the contract; values are RLP encoded.
type Storage struct {
	env        *Env
	durability Durability
	ttl        uint64
}

func (s Storage) key(key string) string {
	return s.env.contract.Hex() + "/" + s.durability.String() + "/" + key
}

func (s Storage) load(key string) (*Entry, error) {
	entry, err := s.env.tx.get(s.env.ctx, s.key(key))
	if err != nil {
		return nil, fmt.Errorf("could not load %q: %w", key, err)
	}
	if entry == nil || !entry.Live(s.env.now) {
		return nil, nil
	}
	return entry, nil
}

func (s Storage) Has(key string) (bool, error) {
	entry, err := s.load(key)
	return entry != nil, err
}

// Get decodes the value stored under key into out. It returns false when the
// key is absent or expired.
func (s Storage) Get(key string, out any) (bool, error) {
	entry, err := s.load(key)
	if err != nil || entry == nil {
		return false, err
	}
	if err := rlp.DecodeBytes(entry.Value, out); err != nil {
		return false, fmt.Errorf("could not decode %q: %w", key, err)
	}
	return true, nil
}

// Set stores value under key. A live temporary entry keeps its expiry; a new
// one expires ttl ticks from now.
func (s Storage) Set(key string, value any) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("could not encode %q: %w", key, err)
	}

	entry := Entry{Value: raw, Durability: s.durability}
	if s.durability == Temporary {
		existing, err := s.load(key)
		if err != nil {
			return err
		}
		if existing != nil {
			entry.ExpiresAt = existing.ExpiresAt
		} else {
			entry.ExpiresAt = s.env.now + s.ttl
		}
	}

	s.env.tx.set(s.key(key), entry)
	return nil
}

func (s Storage) Remove(key string) {
	s.env.tx.remove(s.key(key))
}
