package models

// HolderSnapshot - унаследованная запись снимка баланса держателя из
// миграции старой цепочки. Чистый контейнер данных без поведения;
// слоем хранения не обрабатывается.
type HolderSnapshot struct {
	Address              string `json:"address" db:"address"`
	LegacyBalance        int64  `json:"legacy_balance" db:"legacy_balance"`
	ConvertedBalance     int64  `json:"converted_balance" db:"converted_balance"`
	FinalConvertedAmount int64  `json:"final_converted_amount" db:"final_converted_amount"`
	FinalBlockHeight     int    `json:"final_block_height" db:"final_block_height"`
}
