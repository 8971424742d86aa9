package repository

import (
	"database/sql"
	"fmt"
)

// Операторы схемы. Идемпотентны: безопасно исполнять при каждом старте.
// transactions и issue_asset_transactions принадлежат внешнему реестру
// транзакций; здесь они создаются для соединения в RecentAssetIDs и
// читаются только им
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS assets (
		asset_id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		owner TEXT NOT NULL,
		asset_name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		quantity BIGINT NOT NULL,
		is_divisible BOOLEAN NOT NULL,
		is_unspendable BOOLEAN NOT NULL DEFAULT FALSE,
		creation_group_id INTEGER NOT NULL DEFAULT 0,
		reference BYTEA NOT NULL UNIQUE,
		reduced_asset_name TEXT NOT NULL UNIQUE
	)`,

	`CREATE TABLE IF NOT EXISTS asset_orders (
		asset_order_id BYTEA PRIMARY KEY,
		creator BYTEA NOT NULL,
		have_asset_id BIGINT NOT NULL,
		want_asset_id BIGINT NOT NULL,
		amount BIGINT NOT NULL,
		fulfilled BIGINT NOT NULL DEFAULT 0,
		price NUMERIC(38, 19) NOT NULL,
		ordered_when TIMESTAMPTZ NOT NULL,
		is_closed BOOLEAN NOT NULL DEFAULT FALSE,
		is_fulfilled BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_asset_orders_book
		ON asset_orders (have_asset_id, want_asset_id, is_closed, is_fulfilled)`,
	`CREATE INDEX IF NOT EXISTS idx_asset_orders_creator
		ON asset_orders (creator)`,

	`CREATE TABLE IF NOT EXISTS asset_trades (
		initiating_order_id BYTEA NOT NULL,
		target_order_id BYTEA NOT NULL,
		target_amount BIGINT NOT NULL,
		initiator_amount BIGINT NOT NULL,
		initiator_saving BIGINT NOT NULL DEFAULT 0,
		traded_when TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (initiating_order_id, target_order_id, target_amount, initiator_amount)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_asset_trades_traded_when
		ON asset_trades (traded_when)`,

	`CREATE TABLE IF NOT EXISTS account_balances (
		account TEXT NOT NULL,
		asset_id BIGINT NOT NULL,
		balance BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (account, asset_id)
	)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		signature BYTEA PRIMARY KEY,
		created_when TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS issue_asset_transactions (
		signature BYTEA PRIMARY KEY,
		asset_id BIGINT
	)`,
}

// CreateSchema создает таблицы и индексы слоя хранения
func CreateSchema(db *sql.DB) error {
	for _, statement := range schemaStatements {
		if _, err := db.Exec(statement); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	return nil
}
