package hostfunc

import (
	"context"
	"errors"
	"path"
	"sort"
	"strconv"
	"sync"
)

var ErrNotInteger = errors.New("value is not an integer or out of range")

// Store is a small in-memory keyspace exposed to scripts as host commands.
type Store struct {
	data map[string]string
	mu   sync.RWMutex
}

func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

// Register installs the store's commands into r.
func (s *Store) Register(r *Registry) {
	r.Register("PING", s.Ping)
	r.Register("ECHO", s.Echo)
	r.Register("GET", s.Get)
	r.Register("SET", s.Set)
	r.Register("DEL", s.Del)
	r.Register("EXISTS", s.Exists)
	r.Register("INCR", s.Incr)
	r.Register("KEYS", s.Keys)
}

func (s *Store) Ping(ctx context.Context, args []string) (any, error) {
	if err := arity("ping", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return "PONG", nil
}

func (s *Store) Echo(ctx context.Context, args []string) (any, error) {
	if err := arity("echo", args, 1, 1); err != nil {
		return nil, err
	}
	return args[0], nil
}

// Get returns the value at key, or nil when the key is absent.
func (s *Store) Get(ctx context.Context, args []string) (any, error) {
	if err := arity("get", args, 1, 1); err != nil {
		return nil, err
	}

	s.mu.RLock()
	val, exists := s.data[args[0]]
	s.mu.RUnlock()

	if !exists {
		return nil, nil
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, args []string) (any, error) {
	if err := arity("set", args, 2, 2); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.data[args[0]] = args[1]
	s.mu.Unlock()

	return "OK", nil
}

// Del removes the given keys and returns how many existed.
func (s *Store) Del(ctx context.Context, args []string) (any, error) {
	if err := arity("del", args, 1, -1); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, key := range args {
		if _, ok := s.data[key]; ok {
			delete(s.data, key)
			n++
		}
	}
	return n, nil
}

func (s *Store) Exists(ctx context.Context, args []string) (any, error) {
	if err := arity("exists", args, 1, -1); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, key := range args {
		if _, ok := s.data[key]; ok {
			n++
		}
	}
	return n, nil
}

func (s *Store) Incr(ctx context.Context, args []string) (any, error) {
	if err := arity("incr", args, 1, 1); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	if cur, ok := s.data[args[0]]; ok {
		v, err := strconv.ParseInt(cur, 10, 64)
		if err != nil {
			return nil, ErrNotInteger
		}
		n = v
	}
	n++
	s.data[args[0]] = strconv.FormatInt(n, 10)
	return n, nil
}

// Keys returns the sorted keys matching a glob pattern.
func (s *Store) Keys(ctx context.Context, args []string) (any, error) {
	if err := arity("keys", args, 1, 1); err != nil {
		return nil, err
	}
	pattern := args[0]
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
