package confirmation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestType(t *testing.T) {
	tests := []struct {
		raw  string
		want RequestType
	}{
		{"vehicle_paper", VehiclePaper},
		{"drivers_license", DriversLicense},
		{"default", Default},
		{"", Default},
		{"  vehicle_paper ", Default},
		{" drivers_license", Default},
		{"Vehicle_Paper", Default},
		{"plate_number", Default},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRequestType(tt.raw))
		})
	}
}

func TestCatalog_UnknownTypesResolveToDefault(t *testing.T) {
	want := DefaultCatalog.Resolve(Default)
	for _, raw := range []string{"", "unknown", "traffic_fine", "DRIVERS_LICENSE"} {
		assert.Equal(t, want, DefaultCatalog.Resolve(ParseRequestType(raw)), raw)
	}
	assert.Equal(t, want, DefaultCatalog.Resolve(RequestType("not-parsed")))
}

func TestCatalog_KnownTypesOverrideDefault(t *testing.T) {
	vp := DefaultCatalog.Resolve(VehiclePaper)
	assert.Equal(t, "Confirm Vehicle Papers", vp.Title)
	assert.Equal(t, RouteRenewLicense, vp.NextRoute)

	dl := DefaultCatalog.Resolve(DriversLicense)
	assert.Equal(t, "Confirm License", dl.Title)
	assert.Equal(t, RouteLicensePayment, dl.NextRoute)

	def := DefaultCatalog.Resolve(Default)
	assert.Equal(t, "Confirm Request", def.Title)
	assert.Empty(t, def.NextRoute)
}

func TestNewCatalog_OverridesKeepBaseline(t *testing.T) {
	c := NewCatalog(map[RequestType]Config{
		Default:      {NextRoute: "/x"},
		VehiclePaper: {SubTitle: "Check your papers"},
	})

	def := c.Resolve(Default)
	assert.Equal(t, "Confirm Request", def.Title)
	assert.Equal(t, "/x", def.NextRoute)

	vp := c.Resolve(VehiclePaper)
	assert.Equal(t, "Confirm Vehicle Papers", vp.Title)
	assert.Equal(t, "Check your papers", vp.SubTitle)
	assert.Equal(t, RouteRenewLicense, vp.NextRoute)

	// The built-in table is untouched.
	assert.Empty(t, DefaultCatalog.Resolve(Default).NextRoute)
}

func TestRequestFromState_Defaults(t *testing.T) {
	req, err := RequestFromState(nil)
	require.NoError(t, err)
	assert.Equal(t, Default, req.Type)
	assert.Equal(t, []OrderItem{}, req.Items)
	assert.Equal(t, KeyValueMap{}, req.Details)
	assert.Nil(t, req.VehicleRef)
}

func TestRequestFromState_SplitsExtra(t *testing.T) {
	var state map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "vehicle_paper",
		"amount": 1500,
		"items": [{"name": "Road worthiness", "amount": 1500}],
		"details": {"paperType": "Commercial"},
		"vehicleRef": {"id": "car-1", "plateNumber": "ABC-123"},
		"state": "Lagos",
		"lga": null
	}`), &state))

	req, err := RequestFromState(state)
	require.NoError(t, err)
	assert.Equal(t, VehiclePaper, req.Type)
	assert.Equal(t, 1500.0, req.Amount)
	require.Len(t, req.Items, 1)
	assert.Equal(t, "Road worthiness", req.Items[0].Name)
	assert.Equal(t, "Commercial", req.Details["paperType"])
	require.NotNil(t, req.VehicleRef)
	assert.Equal(t, "car-1", req.VehicleRef.ID)
	assert.Equal(t, KeyValueMap{"state": "Lagos"}, req.Extra)
}

func TestRequestFromState_BadField(t *testing.T) {
	_, err := RequestFromState(map[string]json.RawMessage{"items": json.RawMessage(`"nope"`)})
	assert.Error(t, err)
}
