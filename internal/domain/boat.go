package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type Boat struct {
	ID              string        `json:"id"`
	OwnerID         string        `json:"owner_id"`
	Name            string        `json:"name"`
	Model           string        `json:"model"`
	DailyPriceCents int64         `json:"daily_price_cents"`
	Equipment       EquipmentList `json:"equipment"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// EquipmentList normalizes the equipment field at the boundary. Older
// listings stored it as a comma-separated string, newer ones as a JSON
// array; inward of this type it is always a clean []string.
type EquipmentList []string

func (e *EquipmentList) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*e = normalizeEquipment(items)
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = normalizeEquipment(strings.Split(raw, ","))
	return nil
}

func normalizeEquipment(items []string) EquipmentList {
	out := make(EquipmentList, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
