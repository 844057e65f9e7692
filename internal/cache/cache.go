// Package cache реализует TTL кэш с ограничением размера и single-flight.
//
// Кэш стоит перед сетевыми запросами к бирже и повторным расчётом
// сигналов: при всплеске одновременных запросов по одному ключу
// вычисление выполняется ровно один раз, остальные ждут результат.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCapacity - ограничение количества записей по умолчанию
const DefaultCapacity = 1000

// Stats представляет счётчики работы кэша
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int    `json:"size"`
}

// entry хранит значение с моментом создания и TTL
type entry[V any] struct {
	key       string
	value     V
	createdAt time.Time
	ttl       time.Duration
	elem      *list.Element
}

func (e *entry[V]) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.createdAt) >= e.ttl
}

// flight представляет вычисление в полёте.
// Инвариант: на ключ не более одного flight одновременно.
type flight[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Cache - потокобезопасный TTL кэш с LRU вытеснением
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*entry[V]
	lru      *list.List // front = последний использованный
	flights  map[string]*flight[V]

	hits      uint64
	misses    uint64
	evictions uint64

	logger zerolog.Logger
}

// New создаёт кэш с указанной ёмкостью.
// capacity <= 0 даёт DefaultCapacity.
func New[V any](capacity int, logger zerolog.Logger) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[V]{
		capacity: capacity,
		entries:  make(map[string]*entry[V]),
		lru:      list.New(),
		flights:  make(map[string]*flight[V]),
		logger:   logger.With().Str("component", "cache").Logger(),
	}
}

// GetOrCompute возвращает живое значение по ключу, либо вычисляет его.
//
// Single-flight: при отсутствии живой записи ровно один вызывающий
// запускает fn, остальные ждут его результат. Ошибка fn доставляется
// всем ожидающим, в кэш при этом ничего не записывается - следующий
// вызов повторит вычисление.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (V, error)) (V, error) {
	var zero V

	c.mu.Lock()

	if e, ok := c.entries[key]; ok {
		if !e.expired(time.Now()) {
			c.hits++
			c.lru.MoveToFront(e.elem)
			value := e.value
			c.mu.Unlock()
			return value, nil
		}
		c.removeLocked(e)
		c.evictions++
	}

	// Уже вычисляется - ждём чужой результат
	if f, ok := c.flights[key]; ok {
		c.hits++
		c.mu.Unlock()

		select {
		case <-f.done:
			return f.value, f.err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	c.misses++
	f := &flight[V]{done: make(chan struct{})}
	c.flights[key] = f
	c.mu.Unlock()

	value, err := fn(ctx)

	c.mu.Lock()
	delete(c.flights, key)
	if err == nil {
		c.storeLocked(key, value, ttl)
	}
	f.value = value
	f.err = err
	close(f.done)
	c.mu.Unlock()

	if err != nil {
		return zero, err
	}
	return value, nil
}

// Get возвращает живое значение без вычисления
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if e.expired(time.Now()) {
		c.removeLocked(e)
		c.evictions++
		c.misses++
		return zero, false
	}

	c.hits++
	c.lru.MoveToFront(e.elem)
	return e.value, true
}

// Set записывает значение, минуя single-flight
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeLocked(key, value, ttl)
}

// Clear удаляет все записи. Счётчики статистики сохраняются.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
	c.lru.Init()
}

// Stats возвращает снимок счётчиков
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
	}
}

// StartSweeper запускает фоновую очистку просроченных записей.
// Завершается при отмене контекста.
func (c *Cache[V]) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := c.sweep()
				if removed > 0 {
					c.logger.Debug().Int("removed", removed).Msg("cache sweep completed")
				}
			}
		}
	}()
}

// sweep удаляет все просроченные записи, возвращает их количество
func (c *Cache[V]) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for _, e := range c.entries {
		if e.expired(now) {
			c.removeLocked(e)
			c.evictions++
			removed++
		}
	}
	return removed
}

// storeLocked записывает значение и вытесняет LRU при переполнении.
// Вызывается под mu.
func (c *Cache[V]) storeLocked(key string, value V, ttl time.Duration) {
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.createdAt = time.Now()
		e.ttl = ttl
		c.lru.MoveToFront(e.elem)
		return
	}

	e := &entry[V]{
		key:       key,
		value:     value,
		createdAt: time.Now(),
		ttl:       ttl,
	}
	e.elem = c.lru.PushFront(e)
	c.entries[key] = e

	for len(c.entries) > c.capacity {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*entry[V]))
		c.evictions++
	}
}

// removeLocked удаляет запись. Вызывается под mu.
func (c *Cache[V]) removeLocked(e *entry[V]) {
	delete(c.entries, e.key)
	c.lru.Remove(e.elem)
}
