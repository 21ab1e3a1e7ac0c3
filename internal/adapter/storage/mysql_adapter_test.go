package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/rl1809/purchasing/internal/config"
	"github.com/rl1809/purchasing/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = config.Load().MySQLDSN()
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := NewMySQLAdapter(db).Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSessionTimeZoneIsUTC(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	var tz string
	if err := db.QueryRow(`SELECT @@session.time_zone`).Scan(&tz); err != nil {
		t.Fatalf("query time zone: %v", err)
	}
	if tz != "+00:00" {
		t.Errorf("expected session time zone +00:00, got %q", tz)
	}
}

func testOrderID() string {
	return fmt.Sprintf("TEST-%d", time.Now().UnixNano())
}

func testOrder(id string, skus ...string) domain.PurchaseOrder {
	items := make([]domain.LineItem, 0, len(skus))
	for i, sku := range skus {
		items = append(items, domain.LineItem{
			Position:  i + 1,
			SKU:       sku,
			Quantity:  decimal.NewFromInt(int64(i + 1)),
			UnitPrice: decimal.RequireFromString("12.50"),
			Unit:      "PZA",
			TaxRate:   decimal.RequireFromString("0.16"),
		}.Price())
	}
	totals := domain.SumLines(items)
	return domain.PurchaseOrder{
		ID:                id,
		SupplierName:      "Ferretería Hidalgo",
		SupplierTaxID:     "FHI990101AA1",
		EstimatedDelivery: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Warehouse:         "Almacén Central",
		Buyer:             "test-buyer",
		PaymentTerms:      "Contado",
		Currency:          "MXN",
		Category:          "General",
		Subtotal:          totals.Subtotal,
		Tax:               totals.Tax,
		Total:             totals.Total,
		Status:            domain.OrderStatusPendingApproval,
		Items:             items,
		Timeline:          domain.InitialTimeline("test-buyer"),
	}
}

func cleanupOrder(ctx context.Context, db *sql.DB, id string) {
	db.ExecContext(ctx, `DELETE FROM purchase_orders WHERE order_number = ?`, id)
}

func TestCreateOrder_PersistsAllRows(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	id := testOrderID()
	defer cleanupOrder(ctx, db, id)

	saved, err := adapter.CreateOrder(ctx, testOrder(id, "A1", "B2", "C3"))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if saved.PK == 0 {
		t.Error("expected database-assigned primary key")
	}
	if saved.IssueDate.IsZero() {
		t.Error("expected server-assigned issue date")
	}

	var items, events int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchase_order_items WHERE order_id = ?`, saved.PK).Scan(&items)
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchase_order_timeline WHERE order_id = ?`, saved.PK).Scan(&events)
	if items != 3 {
		t.Errorf("expected 3 item rows, got %d", items)
	}
	if events != 2 {
		t.Errorf("expected 2 timeline rows, got %d", events)
	}

	var issueDate time.Time
	db.QueryRowContext(ctx, `SELECT issue_date FROM purchase_orders WHERE id = ?`, saved.PK).Scan(&issueDate)
	if !issueDate.Equal(saved.IssueDate) {
		t.Errorf("expected returned issue date %v to equal stored %v", saved.IssueDate, issueDate)
	}
}

func TestCreateOrder_RollsBackOnItemFailure(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	id := testOrderID()
	defer cleanupOrder(ctx, db, id)

	var itemsBefore, eventsBefore int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchase_order_items`).Scan(&itemsBefore)
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchase_order_timeline`).Scan(&eventsBefore)

	order := testOrder(id, "A1", "B2")
	// the second line reuses the first position and violates the unique key
	order.Items[1].Position = 1

	if _, err := adapter.CreateOrder(ctx, order); err == nil {
		t.Fatal("expected error for conflicting line item")
	}

	var headers, itemsAfter, eventsAfter int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchase_orders WHERE order_number = ?`, id).Scan(&headers)
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchase_order_items`).Scan(&itemsAfter)
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchase_order_timeline`).Scan(&eventsAfter)
	if headers != 0 {
		t.Errorf("expected header to be rolled back, found %d", headers)
	}
	if itemsAfter != itemsBefore {
		t.Errorf("expected no item rows to persist, before %d after %d", itemsBefore, itemsAfter)
	}
	if eventsAfter != eventsBefore {
		t.Errorf("expected no timeline rows to persist, before %d after %d", eventsBefore, eventsAfter)
	}
}

func TestCreateOrder_DuplicateID(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	id := testOrderID()
	defer cleanupOrder(ctx, db, id)

	if _, err := adapter.CreateOrder(ctx, testOrder(id, "A1")); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	_, err := adapter.CreateOrder(ctx, testOrder(id, "A1"))
	if !errors.Is(err, domain.ErrDuplicateOrderID) {
		t.Errorf("expected ErrDuplicateOrderID, got: %v", err)
	}
}

func TestGetOrder(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	id := testOrderID()
	defer cleanupOrder(ctx, db, id)

	want := testOrder(id, "A1", "B2")
	if _, err := adapter.CreateOrder(ctx, want); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	got, err := adapter.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected order, got nil")
	}
	if got.SupplierName != want.SupplierName || got.Status != domain.OrderStatusPendingApproval {
		t.Errorf("unexpected header: %+v", got)
	}
	if !got.Total.Equal(want.Total) {
		t.Errorf("expected total %s, got %s", want.Total, got.Total)
	}
	if len(got.Items) != 2 || got.Items[0].SKU != "A1" || got.Items[1].SKU != "B2" {
		t.Errorf("unexpected items: %+v", got.Items)
	}
	if !got.Items[1].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected quantity 2, got %s", got.Items[1].Quantity)
	}
	if len(got.Timeline) != 2 || got.Timeline[0].Stage != domain.StageCreated || got.Timeline[1].Stage != domain.StagePendingApproval {
		t.Errorf("unexpected timeline: %+v", got.Timeline)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	order, err := NewMySQLAdapter(db).GetOrder(context.Background(), "nonexistent-order")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Error("expected nil for nonexistent order")
	}
}

func TestListOrders_ItemCount(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	id := testOrderID()
	defer cleanupOrder(ctx, db, id)

	if _, err := adapter.CreateOrder(ctx, testOrder(id, "A1", "B2", "C3", "D4")); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	orders, err := adapter.ListOrders(ctx)
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	for _, o := range orders {
		if o.ID == id {
			if o.ItemCount != 4 {
				t.Errorf("expected item count 4, got %d", o.ItemCount)
			}
			return
		}
	}
	t.Errorf("order %s not listed", id)
}

func TestTransitionOrder(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	id := testOrderID()
	defer cleanupOrder(ctx, db, id)

	if _, err := adapter.CreateOrder(ctx, testOrder(id, "A1")); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	ev := domain.TimelineEvent{Stage: domain.StageApproved, Actor: "approver", Completed: true}
	if err := adapter.TransitionOrder(ctx, id, domain.OrderStatusPendingApproval, domain.OrderStatusApproved, ev); err != nil {
		t.Fatalf("TransitionOrder failed: %v", err)
	}

	got, _ := adapter.GetOrder(ctx, id)
	if got.Status != domain.OrderStatusApproved {
		t.Errorf("expected approved, got %s", got.Status)
	}
	if len(got.Timeline) != 3 || !got.Timeline[1].Completed || got.Timeline[2].Stage != domain.StageApproved {
		t.Errorf("unexpected timeline: %+v", got.Timeline)
	}

	err := adapter.TransitionOrder(ctx, id, domain.OrderStatusPendingApproval, domain.OrderStatusApproved, ev)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got: %v", err)
	}

	err = adapter.TransitionOrder(ctx, "nonexistent-order", domain.OrderStatusPendingApproval, domain.OrderStatusApproved, ev)
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestSupplierCRUD(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	first, err := adapter.CreateSupplier(ctx, domain.Supplier{Name: "test-supplier-a", TaxID: "AAA010101AAA"})
	if err != nil {
		t.Fatalf("CreateSupplier failed: %v", err)
	}
	second, err := adapter.CreateSupplier(ctx, domain.Supplier{Name: "test-supplier-b"})
	if err != nil {
		t.Fatalf("CreateSupplier failed: %v", err)
	}
	defer db.ExecContext(ctx, `DELETE FROM suppliers WHERE id IN (?, ?)`, first, second)

	list, err := adapter.ListSuppliers(ctx)
	if err != nil {
		t.Fatalf("ListSuppliers failed: %v", err)
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].ID >= list[i].ID {
			t.Fatalf("suppliers not in ascending id order at %d", i)
		}
	}

	s, err := adapter.GetSupplier(ctx, first)
	if err != nil || s == nil {
		t.Fatalf("GetSupplier failed: %v", err)
	}

	// unchanged values still count as a matched row
	rows, err := adapter.UpdateSupplier(ctx, *s)
	if err != nil {
		t.Fatalf("UpdateSupplier failed: %v", err)
	}
	if rows != 1 {
		t.Errorf("expected 1 matched row, got %d", rows)
	}

	rows, err = adapter.DeleteSupplier(ctx, second)
	if err != nil || rows != 1 {
		t.Errorf("expected 1 deleted row, got %d (err %v)", rows, err)
	}
	rows, err = adapter.DeleteSupplier(ctx, second)
	if err != nil {
		t.Fatalf("deleting a missing supplier should not fail: %v", err)
	}
	if rows != 0 {
		t.Errorf("expected 0 rows affected, got %d", rows)
	}

	missing, err := adapter.GetSupplier(ctx, -1)
	if err != nil || missing != nil {
		t.Errorf("expected nil supplier for missing id, got %+v (err %v)", missing, err)
	}
}
