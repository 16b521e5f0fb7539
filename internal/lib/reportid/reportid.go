// Package reportid строит устойчивый идентификатор отчёта сканирования.
//
// Идентификатор детерминирован: одинаковая тройка (ключ анализатора,
// нормализованный URL, отметка времени с точностью до минуты) всегда даёт
// один и тот же результат, в любом процессе. Хеш не криптографический,
// используется только как компактный идентификатор.
package reportid

import (
	"hash/fnv"
	"strconv"
	"strings"
	"time"
)

// isoMinuteLayout — сериализация отметки времени после округления.
// Миллисекунды выводятся явно, чтобы идентификаторы совпадали с теми,
// что считались по строкам вида "2024-01-01T10:15:00.000Z".
const isoMinuteLayout = "2006-01-02T15:04:05.000Z"

// Make возвращает идентификатор отчёта вида "r_" + 16 hex-символов.
//
// Отметка времени округляется вниз до начала минуты в UTC. Если startedAt
// не разбирается как RFC3339, строка используется как есть (деградированный
// режим). Пустой ключ, URL или отметка времени дают пустой результат —
// вызывающая сторона не должна кешировать такой идентификатор.
func Make(analyzerKey, normalizedURL, startedAt string) string {
	ts := roundToMinute(startedAt)
	if analyzerKey == "" || normalizedURL == "" || ts == "" {
		return ""
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(analyzerKey + "|" + normalizedURL + "|" + ts))

	var b strings.Builder
	b.WriteString("r_")
	hex := strconv.FormatUint(h.Sum64(), 16)
	for i := len(hex); i < 16; i++ {
		b.WriteByte('0')
	}
	b.WriteString(hex)
	return b.String()
}

func roundToMinute(startedAt string) string {
	parsed, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return startedAt
	}
	return parsed.UTC().Truncate(time.Minute).Format(isoMinuteLayout)
}
