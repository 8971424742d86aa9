package main

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"assetledger/internal/repository"
)

// ============================================================
// Тесты logStartupCounts
// ============================================================

func TestLogStartupCounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM assets`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM asset_orders`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM asset_trades`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(9))

	core, logs := observer.New(zapcore.InfoLevel)

	repo := repository.New(db, nil)
	assetRepo := repository.NewAssetRepository(repo)
	orderRepo := repository.NewOrderRepository(repo, assetRepo)
	tradeRepo := repository.NewTradeRepository(repo, assetRepo)

	logStartupCounts(zap.New(core), assetRepo, orderRepo, tradeRepo)

	entries := logs.FilterMessage("Repository ready").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 ready entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if got := ctx["assets"]; got != int64(3) {
		t.Errorf("assets: expected 3, got %v", got)
	}
	if got := ctx["orders"]; got != int64(12) {
		t.Errorf("orders: expected 12, got %v", got)
	}
	if got := ctx["trades"]; got != int64(9) {
		t.Errorf("trades: expected 9, got %v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLogStartupCounts_OmitsFailedCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM assets`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM asset_orders`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM asset_trades`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(9))

	core, logs := observer.New(zapcore.InfoLevel)

	repo := repository.New(db, nil)
	assetRepo := repository.NewAssetRepository(repo)
	orderRepo := repository.NewOrderRepository(repo, assetRepo)
	tradeRepo := repository.NewTradeRepository(repo, assetRepo)

	logStartupCounts(zap.New(core), assetRepo, orderRepo, tradeRepo)

	if got := logs.FilterMessage("Failed to count asset orders").Len(); got != 1 {
		t.Errorf("expected 1 warning for the failed count, got %d", got)
	}

	entries := logs.FilterMessage("Repository ready").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 ready entry, got %d", len(entries))
	}

	// Несосчитанная таблица не должна выдаваться за пустую
	ctx := entries[0].ContextMap()
	if _, ok := ctx["orders"]; ok {
		t.Error("failed count must not appear in the ready entry")
	}
	if got := ctx["assets"]; got != int64(3) {
		t.Errorf("assets: expected 3, got %v", got)
	}
	if got := ctx["trades"]; got != int64(9) {
		t.Errorf("trades: expected 9, got %v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
