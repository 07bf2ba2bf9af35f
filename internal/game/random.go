package game

import (
	"hash/fnv"
	"math/rand"
	"time"
)

// DeterministicSeedValue derives a stable seed from a root seed and a label,
// so every room created from the same root seed replays identically.
func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(DeterministicSeedValue(rootSeed, label)))
}

// NewRoomRNG returns the RNG for a room. An empty root seed yields a
// time-seeded source.
func NewRoomRNG(rootSeed, roomID string) *rand.Rand {
	if rootSeed == "" {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return NewDeterministicRNG(rootSeed, "room/"+roomID)
}
