package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderRecord представляет лежащий в книге ордер
//
// OrderID задается вызывающей стороной (хеш содержимого ордера) и
// служит первичным ключом. Price - фиксированный курс обмена; единица
// котирования пары определяется меньшим из двух asset_id (см.
// OrderRepository.GetOpenOrdersForTrading).
type OrderRecord struct {
	OrderID     []byte          `json:"order_id" db:"asset_order_id"`
	Creator     []byte          `json:"creator" db:"creator"` // публичный ключ создателя
	HaveAssetID int64           `json:"have_asset_id" db:"have_asset_id"`
	WantAssetID int64           `json:"want_asset_id" db:"want_asset_id"`
	Amount      int64           `json:"amount" db:"amount"`
	Fulfilled   int64           `json:"fulfilled" db:"fulfilled"` // 0 <= Fulfilled <= Amount
	Price       decimal.Decimal `json:"price" db:"price"`
	OrderedAt   time.Time       `json:"ordered_at" db:"ordered_when"`
	IsClosed    bool            `json:"is_closed" db:"is_closed"`
	IsFulfilled bool            `json:"is_fulfilled" db:"is_fulfilled"`

	// Имена активов, разрешаемые репозиторием при чтении (не колонки
	// таблицы asset_orders)
	HaveAssetName string `json:"have_asset_name" db:"-"`
	WantAssetName string `json:"want_asset_name" db:"-"`
}

// IsOpen сообщает, доступен ли ордер для сопоставления
func (o *OrderRecord) IsOpen() bool {
	return !o.IsClosed && !o.IsFulfilled
}

// Unfulfilled возвращает неисполненный остаток ордера
func (o *OrderRecord) Unfulfilled() int64 {
	return o.Amount - o.Fulfilled
}

// AggregatedDepthLevel - один ценовой уровень агрегированной книги:
// суммарный неисполненный объем всех открытых ордеров по этой цене
// для направленной пары. Производная строка, в хранилище не хранится.
type AggregatedDepthLevel struct {
	Price            decimal.Decimal `json:"price"`
	TotalUnfulfilled int64           `json:"total_unfulfilled"`
	LastUpdated      time.Time       `json:"last_updated"`
}
