package kv

import "go.dedis.ch/jellybean/core/store"

// bucketSnapshot exposes a bucket as a store snapshot for the duration of a
// database transaction.
//
// - implements store.Snapshot
type bucketSnapshot struct {
	bucket Bucket
}

// NewSnapshot returns a snapshot that reads and writes the bucket. It must not
// be used outside of the transaction that provided the bucket.
func NewSnapshot(b Bucket) store.Snapshot {
	return bucketSnapshot{bucket: b}
}

// Get implements store.Readable. It returns a copy of the value so that it
// survives the transaction.
func (s bucketSnapshot) Get(key []byte) ([]byte, error) {
	value := s.bucket.Get(key)
	if value == nil {
		return nil, nil
	}

	buffer := make([]byte, len(value))
	copy(buffer, value)

	return buffer, nil
}

// Set implements store.Writable.
func (s bucketSnapshot) Set(key, value []byte) error {
	return s.bucket.Set(key, value)
}

// Delete implements store.Writable.
func (s bucketSnapshot) Delete(key []byte) error {
	return s.bucket.Delete(key)
}
