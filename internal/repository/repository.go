package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// RepositoryError - единственный вид ошибки на границе слоя хранения.
// Оборачивает низкоуровневую ошибку хранилища вместе с человекочитаемой
// причиной. Отсутствие записи ошибкой не является: методы чтения
// возвращают (nil, nil) либо пустой срез.
type RepositoryError struct {
	Reason string
	Err    error
}

func (e *RepositoryError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// repositoryError оборачивает ошибку хранилища в RepositoryError
func repositoryError(reason string, err error) error {
	return &RepositoryError{Reason: reason, Err: err}
}

// checkpointLock - глобальный барьер записи процесса. Каждая запись
// (Saver.Execute, deleteRows) и контрольная точка хранилища удерживают
// его на время одного выражения, чтобы периодический снимок не
// чередовался с записью. Барьер один на процесс, не на таблицу:
// корректность снимков важнее пропускной способности записи.
var checkpointLock sync.Mutex

// Repository - шлюз к реляционному хранилищу: владеет пулом соединений
// и общими помощниками, которыми пользуются все репозитории сущностей
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

// New создает шлюз хранилища поверх открытого пула соединений
func New(db *sql.DB, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, logger: logger}
}

// DB возвращает пул соединений для объемлющих границ транзакций
func (r *Repository) DB() *sql.DB {
	return r.db
}

// exists проверяет наличие хотя бы одной строки по условию.
// whereClause использует плейсхолдеры $1..$n
func (r *Repository) exists(table, whereClause string, args ...interface{}) (bool, error) {
	query := "SELECT TRUE FROM " + table + " WHERE " + whereClause + " LIMIT 1"

	var found bool
	err := r.db.QueryRow(query, args...).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return found, nil
}

// deleteRows удаляет строки по условию под глобальным барьером записи
// и возвращает количество удаленных строк
func (r *Repository) deleteRows(table, whereClause string, args ...interface{}) (int64, error) {
	query := "DELETE FROM " + table + " WHERE " + whereClause

	checkpointLock.Lock()
	defer checkpointLock.Unlock()

	result, err := r.db.Exec(query, args...)
	if err != nil {
		WriteErrorsTotal.WithLabelValues(table).Inc()
		return 0, err
	}

	WritesTotal.WithLabelValues(table).Inc()

	return result.RowsAffected()
}

// limitOffsetSQL добавляет LIMIT/OFFSET к собираемому запросу.
// Значения <= 0 опускаются (без ограничения / без сдвига)
func limitOffsetSQL(sb *strings.Builder, limit, offset int) {
	if limit > 0 {
		fmt.Fprintf(sb, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(sb, " OFFSET %d", offset)
	}
}

// boolLiteral возвращает SQL-литерал булева значения для условий,
// собираемых без плейсхолдеров
func boolLiteral(value bool) string {
	if value {
		return "TRUE"
	}
	return "FALSE"
}
