// Package subjectlock serializes mutating operations per data subject.
//
// All writes touching one subject (consent recording, request filing and
// transitions, deletion scheduling) must run one at a time; writes for
// different subjects proceed in parallel. Instead of a single global lock,
// operations are distributed across N mutex shards keyed by a hash of the
// subject ID, which bounds memory and keeps contention low under load.
package subjectlock

import (
	"sync"

	id "tutela/pkg/domain"
)

const numShards = 128

// Table is a sharded per-subject mutex table. The zero value is ready to use.
type Table struct {
	shards [numShards]sync.Mutex
}

// Lock acquires the shard guarding subjectID and returns the unlock function.
// Callers must release on all exit paths:
//
//	unlock := locks.Lock(subjectID)
//	defer unlock()
func (t *Table) Lock(subjectID id.SubjectID) func() {
	shard := &t.shards[shardFor(subjectID)]
	shard.Lock()
	return shard.Unlock
}

func shardFor(subjectID id.SubjectID) uint32 {
	return fnv1a(subjectID.String()) % numShards
}

// fnv1a gives better distribution than simple multiply-add hashing.
func fnv1a(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
