package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
)

// ErrMalformedEntry возвращается для JSON-записи без URL
var ErrMalformedEntry = errors.New("malformed cache entry")

// Entry проекция записи ссылки, достаточная для ответа редиректом
type Entry struct {
	URL  string `json:"url"`
	Type int    `json:"type"`
}

// Encode сериализует запись в JSON {"url": ..., "type": 301|302}
func Encode(e Entry) ([]byte, error) {
	return json.Marshal(Entry{URL: e.URL, Type: normalizeType(e.Type)})
}

// decoded результат разбора сырого значения: структурированная или устаревшая запись
type decoded interface {
	entry() Entry
}

// structuredEntry запись в формате JSON
type structuredEntry struct {
	url        string
	statusCode int
}

func (s structuredEntry) entry() Entry {
	return Entry{URL: s.url, Type: normalizeType(s.statusCode)}
}

// legacyEntry запись, сохранённая строкой URL без JSON-обёртки
type legacyEntry struct {
	url string
}

func (l legacyEntry) entry() Entry {
	return Entry{URL: l.url, Type: http.StatusMovedPermanently}
}

// Decode разбирает значение из кэша. Строка без JSON-обёртки считается URL с типом 301.
func Decode(raw []byte) (Entry, error) {
	d, err := parse(raw)
	if err != nil {
		return Entry{}, err
	}
	return d.entry(), nil
}

func parse(raw []byte) (decoded, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrMalformedEntry
	}
	switch trimmed[0] {
	case '"':
		var url string
		if err := json.Unmarshal(trimmed, &url); err == nil && url != "" {
			return legacyEntry{url: url}, nil
		}
		return legacyEntry{url: string(trimmed)}, nil
	case '{':
	default:
		return legacyEntry{url: string(trimmed)}, nil
	}

	var stored struct {
		URL  string `json:"url"`
		Type int    `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &stored); err != nil {
		// не JSON: старый формат с голой строкой
		return legacyEntry{url: string(trimmed)}, nil
	}
	if stored.URL == "" {
		return nil, ErrMalformedEntry
	}
	return structuredEntry{url: stored.URL, statusCode: stored.Type}, nil
}

func normalizeType(t int) int {
	if t == http.StatusFound {
		return http.StatusFound
	}
	return http.StatusMovedPermanently
}
