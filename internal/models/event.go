package models

import (
	"encoding/json"
	"time"
)

// ProviderEvent — верифицированное событие платёжного провайдера,
// подготовленное HTTP-слоем для реконсилера. Подпись к этому моменту
// уже проверена.
type ProviderEvent struct {
	ID     string
	Type   string
	Object EventObject
}

// EventObject — минимальный набор полей из data.object, который
// читает реконсилер.
type EventObject struct {
	ID                string            `json:"id"`
	Customer          FlexibleID        `json:"customer"`
	Status            string            `json:"status"`
	CurrentPeriodEnd  int64             `json:"current_period_end"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	Mode              string            `json:"mode"`
	Metadata          map[string]string `json:"metadata"`
	Plan              struct {
		Interval string `json:"interval"`
	} `json:"plan"`
}

// PeriodEnd переводит current_period_end из epoch-секунд в time.Time (UTC).
// Нулевое значение провайдера остаётся нулевым time.Time.
func (o EventObject) PeriodEnd() time.Time {
	if o.CurrentPeriodEnd == 0 {
		return time.Time{}
	}
	return time.Unix(o.CurrentPeriodEnd, 0).UTC()
}

// FlexibleID разбирает поле, которое провайдер присылает либо строкой
// ("cus_123"), либо развёрнутым объектом ({"id": "cus_123", ...}).
type FlexibleID string

// UnmarshalJSON реализует json.Unmarshaler.
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*f = FlexibleID(obj.ID)
	return nil
}

// ProcessedEvent — строка журнала дедупликации вебхуков. Наличие строки
// означает, что событие с таким id повторно применять нельзя.
type ProcessedEvent struct {
	EventID     string
	EventType   string
	ProcessedAt time.Time
}
