package confirmation

import "encoding/json"

// Routes the confirmation flow navigates between.
const (
	RouteConfirmRequest = "/licenses/confirm-request"
	RouteRenewLicense   = "/licenses/renew"
	RouteLicensePayment = "/licenses/payment"
	RouteRegisterCar    = "/add-car"
)

// DefaultPaperType is applied to vehicle-paper details that do not name one.
const DefaultPaperType = "Private"

// NavigationIntent is the transition a successful confirmation asks for.
type NavigationIntent struct {
	Route   string `json:"route"`
	Payload any    `json:"payload"`
}

// RequestState is the navigation state carried into the renew screen and,
// without a vehicle, through the vehicle registration continuation.
type RequestState struct {
	VehicleRef *VehicleRef
	Type       RequestType
	Amount     float64
	Details    KeyValueMap
	Items      []OrderItem
	Extra      KeyValueMap
}

// MarshalJSON flattens Extra into the top level next to the named fields.
func (s RequestState) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+5)
	for k, v := range s.Extra {
		if !isReservedKey(k) {
			out[k] = v
		}
	}
	if s.VehicleRef != nil {
		out[keyVehicleRef] = s.VehicleRef
	}
	out[keyType] = s.Type
	out[keyAmount] = s.Amount
	out[keyDetails] = nonNilMap(s.Details)
	out[keyItems] = nonNilItems(s.Items)
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *RequestState) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	req, err := RequestFromState(raw)
	if err != nil {
		return err
	}
	*s = stateFromRequest(req)
	return nil
}

// Request turns the state back into the input of a confirmation screen.
func (s RequestState) Request() OrderRequest {
	return OrderRequest{
		Items:      nonNilItems(s.Items),
		Type:       s.Type,
		Amount:     s.Amount,
		Details:    nonNilMap(s.Details),
		VehicleRef: s.VehicleRef,
		Extra:      nonNilMap(s.Extra),
	}
}

func stateFromRequest(req OrderRequest) RequestState {
	return RequestState{
		VehicleRef: req.VehicleRef,
		Type:       req.Type,
		Amount:     req.Amount,
		Details:    req.Details,
		Items:      req.Items,
		Extra:      req.Extra,
	}
}

// Continuation tells the vehicle registration screen where to send the user
// once a vehicle exists, and with which state.
type Continuation struct {
	Path  string       `json:"path"`
	State RequestState `json:"state"`
	// Token is the signed form of Path and State; resuming requires it.
	Token string `json:"token"`
}

// RegisterVehiclePayload is the state handed to the vehicle registration screen.
type RegisterVehiclePayload struct {
	Next Continuation `json:"next"`
}

// NextStepPayload is sent to a configured next route: the order details with
// type, amount and items laid over them.
type NextStepPayload struct {
	OrderDetails KeyValueMap
	Type         RequestType
	Amount       float64
	Items        []OrderItem
}

func (p NextStepPayload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.OrderDetails)+3)
	for k, v := range p.OrderDetails {
		out[k] = v
	}
	out[keyType] = p.Type
	out[keyAmount] = p.Amount
	out[keyItems] = nonNilItems(p.Items)
	return json.Marshal(out)
}

func nonNilMap(m KeyValueMap) KeyValueMap {
	if m == nil {
		return KeyValueMap{}
	}
	return m
}

func nonNilItems(items []OrderItem) []OrderItem {
	if items == nil {
		return []OrderItem{}
	}
	return items
}
