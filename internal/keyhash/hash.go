package keyhash

import (
	"encoding/binary"
	"hash/fnv"
	"hash/maphash"
	"sync"

	"github.com/goccy/go-reflect"
)

var (
	cacheMu sync.RWMutex
	cache   = map[reflect.Type]any{}

	seed = maphash.MakeSeed()
)

// For returns a hash function for the key type K.
// Integer and string kinds (including named types such as `type UserID int64`) are hashed with FNV-1a,
// so their hashes are stable across processes. Every other comparable type falls back to
// maphash.Comparable with a per-process seed.
// The returned function is cached per type.
func For[K comparable]() func(K) uint64 {
	var zero K
	typ := reflect.TypeOf(zero)
	if typ == nil {
		// K is an interface type; its dynamic types vary per key.
		return fallback[K]
	}

	cacheMu.RLock()
	f, ok := cache[typ]
	cacheMu.RUnlock()
	if ok {
		return f.(func(K) uint64)
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if f, ok := cache[typ]; ok {
		return f.(func(K) uint64)
	}

	h := create[K](typ.Kind())
	cache[typ] = h
	return h
}

func create[K comparable](kind reflect.Kind) func(K) uint64 {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(k K) uint64 {
			return hashUint64(uint64(reflect.ValueOf(k).Int()))
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(k K) uint64 {
			return hashUint64(reflect.ValueOf(k).Uint())
		}
	case reflect.String:
		return func(k K) uint64 {
			h := fnv.New64a()
			_, _ = h.Write([]byte(reflect.ValueOf(k).String()))
			return h.Sum64()
		}
	default:
		// floats (+0 == -0), pointers, channels, arrays, structs and interfaces
		return fallback[K]
	}
}

func hashUint64(v uint64) uint64 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	h := fnv.New64a()
	_, _ = h.Write(b[:])
	return h.Sum64()
}

func fallback[K comparable](k K) uint64 {
	return maphash.Comparable(seed, k)
}
