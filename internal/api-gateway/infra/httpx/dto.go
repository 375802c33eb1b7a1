package httpx

import (
	"github.com/jcmexdev/portal-flows/internal/api-gateway/core/domain/entity"
	"github.com/jcmexdev/portal-flows/internal/confirmation"
)

type RequestTypeResponse struct {
	Type        string              `json:"type"`
	Config      confirmation.Config `json:"config"`
	Layout      confirmation.Layout `json:"layout"`
	HeadingText string              `json:"headingText"`
}

type ScreenResponse struct {
	ID         string                   `json:"id"`
	Type       string                   `json:"type"`
	Layout     confirmation.Layout      `json:"layout"`
	Items      []confirmation.OrderItem `json:"items"`
	Details    confirmation.KeyValueMap `json:"details"`
	VehicleRef *confirmation.VehicleRef `json:"vehicleRef,omitempty"`
	Amount     float64                  `json:"amount"`
	Total      float64                  `json:"total"`
	Processing bool                     `json:"processing"`
	ButtonText string                   `json:"buttonText"`
	NextRoute  string                   `json:"nextRoute,omitempty"`
}

type ConfirmResponse struct {
	Result        confirmation.Result         `json:"result"`
	Notifications []confirmation.Notification `json:"notifications"`
	Screen        ScreenResponse              `json:"screen"`
}

type NotificationsResponse struct {
	Notifications []confirmation.Notification `json:"notifications"`
}

type ResumeRequest struct {
	Token      string                   `json:"token"`
	VehicleRef *confirmation.VehicleRef `json:"vehicleRef"`
}

type OTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code,omitempty"`
}

type TwoFactorRequest struct {
	ChallengeID string `json:"challengeId"`
	Code        string `json:"code,omitempty"`
}

type RememberedEmailResponse struct {
	Email string `json:"email"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapScreenToResponse(s *entity.Screen) ScreenResponse {
	c := s.Controller
	req := c.Request()
	items := req.Items
	if items == nil {
		items = []confirmation.OrderItem{}
	}
	details := req.Details
	if details == nil {
		details = confirmation.KeyValueMap{}
	}
	return ScreenResponse{
		ID:         s.ID,
		Type:       req.Type.String(),
		Layout:     confirmation.LayoutFor(c.Config()),
		Items:      items,
		Details:    details,
		VehicleRef: req.VehicleRef,
		Amount:     req.Amount,
		Total:      confirmation.Total(items),
		Processing: c.IsProcessing(),
		ButtonText: c.ButtonText(),
		NextRoute:  c.Config().NextRoute,
	}
}
