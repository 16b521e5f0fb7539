// Package urlnorm приводит произвольный пользовательский URL к канонической
// форме, пригодной для детерминированного хеширования идентификатора отчёта.
//
// Каноническая форма: схема и хост в нижнем регистре, порт сохраняется только
// если указан явно, одиночный завершающий слэш пути убирается (корневой путь
// становится пустым), строка запроса сохраняется как есть. Пустой результат
// означает, что адрес нормализовать не удалось.
package urlnorm

import (
	"net/url"
	"strings"
)

// Normalize возвращает каноническую форму rawURL или пустую строку,
// если на входе пустая строка.
//
// Если схема отсутствует, подставляется https. При ошибке разбора
// применяется деградированный режим: у исходной строки просто убирается
// завершающий слэш. Строка запроса не сортируется и не меняется —
// результат зависит только от сырого ввода.
func Normalize(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(trimmed, "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Fragment = ""

	return u.String()
}
