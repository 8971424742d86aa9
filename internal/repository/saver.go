package repository

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BindValue - закрытое множество видов значений, которые умеет
// привязывать Saver. Закрытый тип-сумма вместо произвольного
// interface{}: особые случаи (десятичные числа с масштабом, метки
// времени в UTC) перечислены исчерпывающе и проверяются компилятором.
type BindValue interface {
	// sqlArg возвращает значение в форме, пригодной для драйвера
	sqlArg() interface{}
}

// Int64 - целочисленное значение колонки
type Int64 int64

func (v Int64) sqlArg() interface{} { return int64(v) }

// Text - строковое значение колонки
type Text string

func (v Text) sqlArg() interface{} { return string(v) }

// Bytes - двоичное значение колонки
type Bytes []byte

func (v Bytes) sqlArg() interface{} { return []byte(v) }

// Bool - булево значение колонки
type Bool bool

func (v Bool) sqlArg() interface{} { return bool(v) }

// Null - явный NULL
type Null struct{}

func (Null) sqlArg() interface{} { return nil }

// Decimal - десятичное значение произвольной точности. Привязывается
// строкой с сохранением заявленного масштаба (хвостовые нули), а не
// только численного значения: String() обрезает хвостовые нули, поэтому
// число знаков после запятой восстанавливается из экспоненты
type Decimal decimal.Decimal

func (v Decimal) sqlArg() interface{} {
	d := decimal.Decimal(v)
	if d.Exponent() < 0 {
		return d.StringFixed(-d.Exponent())
	}
	return d.String()
}

// Timestamp - метка времени. Перед привязкой нормализуется к UTC
// независимо от часового пояса сессии
type Timestamp time.Time

func (v Timestamp) sqlArg() interface{} { return time.Time(v).UTC() }

// Saver строит и исполняет единый идемпотентный оператор
// "вставить или обновить" из накопленных пар колонка/значение:
//
//	saver := NewSaver("assets", "asset_id")
//	saver.Bind("asset_id", Int64(1)).Bind("owner", Text(owner))
//	err := saver.Execute(repo)
//
// Выражение имеет вид
//
//	INSERT INTO t (c1..cn) VALUES ($1..$n)
//	ON CONFLICT (key..) DO UPDATE SET c1=$n+1, ..., cn=$2n
//
// и исполняется одним обращением к хранилищу: отдельной проверки
// существования нет, гонки между проверкой и записью тоже. Каждое
// значение привязывается дважды - для вставки и для обновления.
type Saver struct {
	table        string
	conflictCols []string
	columns      []string
	values       []BindValue
}

// NewSaver создает Saver для таблицы. conflictColumns - колонки
// первичного либо уникального ключа, по конфликту которых выполняется
// обновление
func NewSaver(table string, conflictColumns ...string) *Saver {
	return &Saver{table: table, conflictCols: conflictColumns}
}

// Bind добавляет пару колонка/значение; возвращает тот же Saver для
// сцепления вызовов
func (s *Saver) Bind(column string, value BindValue) *Saver {
	s.columns = append(s.columns, column)
	s.values = append(s.values, value)
	return s
}

// formatUpsertSQL собирает текст оператора с плейсхолдерами
func (s *Saver) formatUpsertSQL() string {
	n := len(s.columns)

	var sb strings.Builder
	sb.Grow(1024)

	sb.WriteString("INSERT INTO ")
	sb.WriteString(s.table)
	sb.WriteString(" (")

	for i, column := range s.columns {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(column)
	}

	sb.WriteString(") VALUES (")

	for i := 0; i < n; i++ {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("$")
		sb.WriteString(strconv.Itoa(i + 1))
	}

	sb.WriteString(") ON CONFLICT (")
	sb.WriteString(strings.Join(s.conflictCols, ", "))
	sb.WriteString(") DO UPDATE SET ")

	for i, column := range s.columns {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(column)
		sb.WriteString(" = $")
		sb.WriteString(strconv.Itoa(n + i + 1))
	}

	return sb.String()
}

// Execute компилирует оператор из накопленных привязок и исполняет его
// под глобальным барьером записи
func (s *Saver) Execute(r *Repository) error {
	query := s.formatUpsertSQL()

	args := make([]interface{}, 0, len(s.values)*2)
	for _, value := range s.values {
		args = append(args, value.sqlArg())
	}
	for _, value := range s.values {
		args = append(args, value.sqlArg())
	}

	checkpointLock.Lock()
	defer checkpointLock.Unlock()

	if _, err := r.db.Exec(query, args...); err != nil {
		WriteErrorsTotal.WithLabelValues(s.table).Inc()
		return err
	}

	WritesTotal.WithLabelValues(s.table).Inc()

	return nil
}
