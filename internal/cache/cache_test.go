package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestCache(capacity int) *Cache[string] {
	return New[string](capacity, zerolog.Nop())
}

// ============ Базовые операции ============

func TestGetOrCompute_CachesValue(t *testing.T) {
	c := newTestCache(10)
	calls := 0

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute(context.Background(), "price:BTCUSDT", time.Minute, func(ctx context.Context) (string, error) {
			calls++
			return "45000", nil
		})
		if err != nil {
			t.Fatalf("итерация %d: %v", i, err)
		}
		if v != "45000" {
			t.Fatalf("итерация %d: ожидали '45000', получили %q", i, v)
		}
	}

	if calls != 1 {
		t.Errorf("живое значение не должно пересчитываться: %d вызовов", calls)
	}
}

func TestGetOrCompute_RecomputesAfterTTL(t *testing.T) {
	c := newTestCache(10)
	calls := 0

	compute := func(ctx context.Context) (string, error) {
		calls++
		return fmt.Sprintf("v%d", calls), nil
	}

	if _, err := c.GetOrCompute(context.Background(), "k", 10*time.Millisecond, compute); err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)

	v, err := c.GetOrCompute(context.Background(), "k", 10*time.Millisecond, compute)
	if err != nil {
		t.Fatal(err)
	}
	if v != "v2" {
		t.Errorf("после истечения TTL ожидали пересчёт: %q", v)
	}
	if calls != 2 {
		t.Errorf("ожидали 2 вычисления, получили %d", calls)
	}
}

func TestGetOrCompute_ErrorNotStored(t *testing.T) {
	c := newTestCache(10)
	calls := 0
	boom := errors.New("upstream down")

	_, err := c.GetOrCompute(context.Background(), "k", time.Minute, func(ctx context.Context) (string, error) {
		calls++
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("ожидали ошибку вычисления, получили %v", err)
	}

	// Следующий вызов повторяет вычисление
	v, err := c.GetOrCompute(context.Background(), "k", time.Minute, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("ожидали успешный повтор, получили %q, %v", v, err)
	}
	if calls != 2 {
		t.Errorf("ошибка не должна кэшироваться: %d вызовов", calls)
	}
}

// ============ Single-flight ============

func TestGetOrCompute_SingleFlight(t *testing.T) {
	c := newTestCache(10)

	var computeCalls int64
	started := make(chan struct{})
	release := make(chan struct{})

	const n = 20
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)

	// Первый caller входит в вычисление и блокируется
	go func() {
		_, _ = c.GetOrCompute(context.Background(), "k", time.Minute, func(ctx context.Context) (string, error) {
			atomic.AddInt64(&computeCalls, 1)
			close(started)
			<-release
			return "shared", nil
		})
	}()
	<-started

	// Остальные должны ждать его результат, не запуская вычисление
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), "k", time.Minute, func(ctx context.Context) (string, error) {
				atomic.AddInt64(&computeCalls, 1)
				return "duplicate", nil
			})
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt64(&computeCalls); got != 1 {
		t.Fatalf("вычисление должно выполниться ровно один раз, выполнилось %d", got)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != "shared" {
			t.Errorf("caller %d: ожидали 'shared', получили %q", i, results[i])
		}
	}
}

func TestGetOrCompute_ErrorPropagatesToWaiters(t *testing.T) {
	c := newTestCache(10)

	boom := errors.New("exchange unavailable")
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = c.GetOrCompute(context.Background(), "k", time.Minute, func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "", boom
		})
	}()
	<-started

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetOrCompute(context.Background(), "k", time.Minute, func(ctx context.Context) (string, error) {
				return "unexpected", nil
			})
		}(i)
	}

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < n; i++ {
		if !errors.Is(errs[i], boom) {
			t.Errorf("waiter %d должен получить ошибку вычисления, получил %v", i, errs[i])
		}
	}
}

func TestGetOrCompute_WaiterCancelled(t *testing.T) {
	c := newTestCache(10)

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	go func() {
		_, _ = c.GetOrCompute(context.Background(), "k", time.Minute, func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "late", nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetOrCompute(ctx, "k", time.Minute, func(ctx context.Context) (string, error) {
		return "unexpected", nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("отменённый waiter должен получить context.Canceled, получил %v", err)
	}
}

// ============ LRU вытеснение ============

func TestLRUEviction(t *testing.T) {
	c := newTestCache(3)

	for i := 1; i <= 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v", time.Minute)
	}

	// Обращение к k1 делает его последним использованным
	if _, ok := c.Get("k1"); !ok {
		t.Fatal("k1 должен быть в кэше")
	}

	// Четвёртая запись вытесняет самый старый (k2)
	c.Set("k4", "v", time.Minute)

	if _, ok := c.Get("k2"); ok {
		t.Error("k2 должен быть вытеснен как least-recently-used")
	}
	if _, ok := c.Get("k1"); !ok {
		t.Error("k1 недавно использовался и не должен вытесняться")
	}
	if _, ok := c.Get("k4"); !ok {
		t.Error("k4 только что записан")
	}

	stats := c.Stats()
	if stats.Size != 3 {
		t.Errorf("размер не должен превышать ёмкость: %d", stats.Size)
	}
	if stats.Evictions == 0 {
		t.Error("вытеснение должно учитываться в статистике")
	}
}

// ============ Статистика и очистка ============

func TestStats(t *testing.T) {
	c := newTestCache(10)

	c.Set("k", "v", time.Minute)

	if _, ok := c.Get("k"); !ok {
		t.Fatal("ожидали попадание")
	}
	if _, ok := c.Get("absent"); ok {
		t.Fatal("ожидали промах")
	}

	stats := c.Stats()
	if stats.Hits != 1 {
		t.Errorf("Hits: ожидали 1, получили %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses: ожидали 1, получили %d", stats.Misses)
	}
	if stats.Size != 1 {
		t.Errorf("Size: ожидали 1, получили %d", stats.Size)
	}
}

func TestClear(t *testing.T) {
	c := newTestCache(10)

	c.Set("k1", "v", time.Minute)
	c.Set("k2", "v", time.Minute)
	c.Get("k1")

	c.Clear()

	if stats := c.Stats(); stats.Size != 0 {
		t.Errorf("после Clear размер должен быть 0: %d", stats.Size)
	}
	// Счётчики переживают очистку
	if stats := c.Stats(); stats.Hits != 1 {
		t.Errorf("Clear не должен сбрасывать статистику: hits=%d", stats.Hits)
	}

	if _, ok := c.Get("k1"); ok {
		t.Error("после Clear записей быть не должно")
	}
}

func TestSweep_RemovesExpired(t *testing.T) {
	c := newTestCache(10)

	c.Set("fresh", "v", time.Minute)
	c.Set("stale1", "v", time.Millisecond)
	c.Set("stale2", "v", time.Millisecond)

	time.Sleep(5 * time.Millisecond)

	if removed := c.sweep(); removed != 2 {
		t.Errorf("ожидали удаление 2 просроченных записей, удалено %d", removed)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("живая запись не должна удаляться")
	}
}

func TestStartSweeper_StopsOnCancel(t *testing.T) {
	c := newTestCache(10)
	ctx, cancel := context.WithCancel(context.Background())

	c.StartSweeper(ctx, time.Millisecond)
	c.Set("k", "v", time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	cancel()

	if _, ok := c.Get("k"); ok {
		t.Error("sweeper должен был удалить просроченную запись")
	}
}

// ============ Бенчмарки ============

func BenchmarkGetOrCompute_Hit(b *testing.B) {
	c := newTestCache(100)
	ctx := context.Background()
	_, _ = c.GetOrCompute(ctx, "k", time.Hour, func(ctx context.Context) (string, error) {
		return "v", nil
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.GetOrCompute(ctx, "k", time.Hour, func(ctx context.Context) (string, error) {
			return "v", nil
		})
	}
}
