package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Push channel event names. The wire names are shared with the existing
// kitchen and waiter frontends.
const (
	EventJoinUserRoom  = "join_user_room"
	EventOrderReady    = "pedido:listo"
	EventTablesChanged = "mesas:actualizado"
)

// Envelope is the frame exchanged on the websocket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OrderReady is the payload of EventOrderReady.
type OrderReady struct {
	Table   string `json:"table"`
	Product string `json:"product"`
	UserID  uint   `json:"user_id,omitempty"`
}

// UnmarshalJSON accepts the table label as a JSON string or a JSON number;
// both forms are in use on the wire.
func (o *OrderReady) UnmarshalJSON(data []byte) error {
	type plain OrderReady
	aux := struct {
		Table json.RawMessage `json:"table"`
		*plain
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := bytes.TrimSpace(aux.Table)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		o.Table = ""
	case raw[0] == '"':
		return json.Unmarshal(raw, &o.Table)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("order ready table: %w", err)
		}
		o.Table = n.String()
	}
	return nil
}
