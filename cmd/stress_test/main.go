package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/purchasing/internal/adapter/storage"
	"github.com/rl1809/purchasing/internal/config"
	"github.com/rl1809/purchasing/internal/core/domain"
	"github.com/rl1809/purchasing/internal/core/service"
	"github.com/rl1809/purchasing/internal/port"
)

const (
	totalRequests  = 200
	itemsPerOrder  = 5
	duplicateCalls = 20
	stressBuyer    = "stress-test"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	db, err := sql.Open("mysql", cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.Ping(ctx); err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	if err := mysqlAdapter.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	var idempotency port.IdempotencyStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()
		idempotency = storage.NewRedisAdapter(rdb)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewOrderService(mysqlAdapter, idempotency,
		service.NewOrderIDGenerator(cfg.OrderIDPrefix, nil), service.DefaultOrderDefaults(), quiet)

	// Concurrent submissions
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ids          = make(map[string]struct{}, totalRequests)
		successCount atomic.Int32
		failCount    atomic.Int32
	)
	start := time.Now()
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			res, err := svc.CreateOrder(ctx, stressOrder(n, ""))
			if err != nil {
				failCount.Add(1)
				log.Printf("order %d failed: %v", n, err)
				return
			}
			successCount.Add(1)
			mu.Lock()
			ids[res.ID] = struct{}{}
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", successCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Distinct IDs:     %d\n", len(ids))
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if int(successCount.Load()) == len(ids) {
		fmt.Println("PASS: every created order has a distinct id")
	} else {
		fmt.Printf("FAIL: %d orders created but %d distinct ids\n", successCount.Load(), len(ids))
	}

	// Every order must have all of its items and exactly two timeline rows.
	broken := 0
	for id := range ids {
		var items, events int
		err := db.QueryRowContext(ctx, `
			SELECT
				(SELECT COUNT(*) FROM purchase_order_items i WHERE i.order_id = o.id),
				(SELECT COUNT(*) FROM purchase_order_timeline t WHERE t.order_id = o.id)
			FROM purchase_orders o WHERE o.order_number = ?`, id).Scan(&items, &events)
		if err != nil || items != itemsPerOrder || events != 2 {
			broken++
		}
	}
	if broken == 0 {
		fmt.Printf("PASS: all orders have %d items and 2 timeline rows\n", itemsPerOrder)
	} else {
		fmt.Printf("FAIL: %d orders are incomplete\n", broken)
	}

	if idempotency != nil {
		checkIdempotency(ctx, svc)
	}

	res, err := db.ExecContext(ctx, `DELETE FROM purchase_orders WHERE buyer = ?`, stressBuyer)
	if err == nil {
		n, _ := res.RowsAffected()
		fmt.Printf("Cleaned up %d orders\n", n)
	}
}

// checkIdempotency fires the same key concurrently; exactly one order may be
// created and every other call must replay it or report the key in flight.
func checkIdempotency(ctx context.Context, svc *service.OrderService) {
	key := uuid.NewString()

	var (
		wg       sync.WaitGroup
		created  atomic.Int32
		replayed atomic.Int32
		inFlight atomic.Int32
	)
	for i := 0; i < duplicateCalls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.CreateOrder(ctx, stressOrder(0, key))
			switch {
			case errors.Is(err, domain.ErrDuplicateRequest):
				inFlight.Add(1)
			case err != nil:
				log.Printf("idempotent call failed: %v", err)
			case res.Replayed:
				replayed.Add(1)
			default:
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	fmt.Printf("Idempotency:      created=%d replayed=%d in-flight=%d\n",
		created.Load(), replayed.Load(), inFlight.Load())
	if created.Load() == 1 {
		fmt.Println("PASS: one order per idempotency key")
	} else {
		fmt.Printf("FAIL: expected 1 order for key %s, got %d\n", key, created.Load())
	}
}

func stressOrder(n int, key string) service.CreateOrderInput {
	items := make([]service.LineItemInput, itemsPerOrder)
	for i := range items {
		items[i] = service.LineItemInput{
			SKU:       fmt.Sprintf("STRESS-%03d", i),
			Quantity:  decimal.NewFromInt(int64(i + 1)),
			UnitPrice: decimal.NewFromFloat(12.5),
		}
	}
	return service.CreateOrderInput{
		IdempotencyKey:    key,
		SupplierName:      fmt.Sprintf("Supplier %d", n%10),
		EstimatedDelivery: time.Now().AddDate(0, 0, 14),
		Warehouse:         "CDMX-01",
		Buyer:             stressBuyer,
		Items:             items,
	}
}
