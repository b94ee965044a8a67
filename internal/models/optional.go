package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// OptionalTime различает отсутствующее поле, явный null и значение времени
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

// UnmarshalJSON вызывается только если поле присутствует в JSON
func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}

// MarshalJSON сериализует значение или null
func (o OptionalTime) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
