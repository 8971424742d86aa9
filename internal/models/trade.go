package models

import "time"

// TradeRecord представляет исполненную сделку
//
// Собственного первичного ключа у сделки нет: идентичность - составной
// ключ (InitiatingOrderID, TargetOrderID, TargetAmount, InitiatorAmount).
// Направленная пара сделки определяется have/want инициирующего ордера.
type TradeRecord struct {
	InitiatingOrderID []byte    `json:"initiating_order_id" db:"initiating_order_id"`
	TargetOrderID     []byte    `json:"target_order_id" db:"target_order_id"`
	TargetAmount      int64     `json:"target_amount" db:"target_amount"`
	InitiatorAmount   int64     `json:"initiator_amount" db:"initiator_amount"`
	InitiatorSaving   int64     `json:"initiator_saving" db:"initiator_saving"`
	TradedAt          time.Time `json:"traded_at" db:"traded_when"`

	// Пара и имена активов, разрешаемые репозиторием при чтении
	HaveAssetID   int64  `json:"have_asset_id" db:"-"`
	WantAssetID   int64  `json:"want_asset_id" db:"-"`
	HaveAssetName string `json:"have_asset_name" db:"-"`
	WantAssetName string `json:"want_asset_name" db:"-"`
}

// RecentTradeSnapshot - одна из не более чем двух последних сделок
// торговавшейся пары (кросс-парная сводка). Производная строка.
type RecentTradeSnapshot struct {
	HaveAssetID int64     `json:"have_asset_id"`
	WantAssetID int64     `json:"want_asset_id"`
	OtherAmount int64     `json:"other_amount"`
	Amount      int64     `json:"amount"`
	TradedAt    time.Time `json:"traded_at"`
}
