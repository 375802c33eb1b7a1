package confirmation

import (
	"encoding/json"
	"fmt"
)

// KeyValueMap holds free-form order details carried between screens.
type KeyValueMap map[string]any

// Clone returns a shallow copy; a nil map clones to an empty one.
func (m KeyValueMap) Clone() KeyValueMap {
	out := make(KeyValueMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type OrderItem struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`
	Quantity    int     `json:"quantity,omitempty"`
}

// VehicleRef identifies a vehicle already registered to the user.
type VehicleRef struct {
	ID          string `json:"id"`
	PlateNumber string `json:"plateNumber,omitempty"`
	Make        string `json:"make,omitempty"`
	Model       string `json:"model,omitempty"`
	Category    string `json:"category,omitempty"`
}

// OrderRequest is the state a previous screen hands to the confirmation screen.
type OrderRequest struct {
	Items      []OrderItem
	Type       RequestType
	Amount     float64
	Details    KeyValueMap
	VehicleRef *VehicleRef
	// Extra holds every other top-level key of the incoming state. It is
	// carried forward untouched.
	Extra KeyValueMap
}

// Outcome is what the order summary reports back when the user confirms.
type Outcome struct {
	Total        float64     `json:"total"`
	Items        []OrderItem `json:"items"`
	OrderDetails KeyValueMap `json:"orderDetails"`
}

// Keys of the incoming navigation state with a dedicated field.
const (
	keyItems      = "items"
	keyType       = "type"
	keyAmount     = "amount"
	keyDetails    = "details"
	keyVehicleRef = "vehicleRef"
)

func isReservedKey(k string) bool {
	switch k {
	case keyItems, keyType, keyAmount, keyDetails, keyVehicleRef:
		return true
	}
	return false
}

// RequestFromState decodes incoming navigation state. Absent fields default to
// no items, the Default type and empty details.
func RequestFromState(state map[string]json.RawMessage) (OrderRequest, error) {
	req := OrderRequest{
		Items:   []OrderItem{},
		Type:    Default,
		Details: KeyValueMap{},
		Extra:   KeyValueMap{},
	}
	for k, raw := range state {
		if isNull(raw) {
			continue
		}
		var err error
		switch k {
		case keyItems:
			err = json.Unmarshal(raw, &req.Items)
		case keyType:
			var tag string
			if err = json.Unmarshal(raw, &tag); err == nil {
				req.Type = ParseRequestType(tag)
			}
		case keyAmount:
			err = json.Unmarshal(raw, &req.Amount)
		case keyDetails:
			err = json.Unmarshal(raw, &req.Details)
		case keyVehicleRef:
			var ref VehicleRef
			if err = json.Unmarshal(raw, &ref); err == nil {
				req.VehicleRef = &ref
			}
		default:
			var v any
			if err = json.Unmarshal(raw, &v); err == nil {
				req.Extra[k] = v
			}
		}
		if err != nil {
			return OrderRequest{}, fmt.Errorf("confirmation: decode state field %q: %w", k, err)
		}
	}
	if req.Items == nil {
		req.Items = []OrderItem{}
	}
	if req.Details == nil {
		req.Details = KeyValueMap{}
	}
	return req, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
