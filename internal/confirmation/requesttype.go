// Package confirmation implements the order-confirmation flow shared by the
// licensing and vehicle-paper screens: it resolves how a request type is
// presented and decides where a confirmed order goes next.
package confirmation

// RequestType selects which confirmation and navigation policy applies.
type RequestType string

const (
	VehiclePaper   RequestType = "vehicle_paper"
	DriversLicense RequestType = "drivers_license"
	Default        RequestType = "default"
)

// RequestTypes lists every known tag in catalog order.
var RequestTypes = []RequestType{VehiclePaper, DriversLicense, Default}

// ParseRequestType maps a raw tag onto the closed set of request types.
// Matching is exact; empty and unrecognized tags become Default.
func ParseRequestType(raw string) RequestType {
	switch RequestType(raw) {
	case VehiclePaper:
		return VehiclePaper
	case DriversLicense:
		return DriversLicense
	default:
		return Default
	}
}

func (t RequestType) String() string { return string(t) }

// Config is the presentation and routing policy for one request type.
type Config struct {
	Title     string `json:"title" yaml:"title"`
	SubTitle  string `json:"subTitle" yaml:"sub_title"`
	NextRoute string `json:"nextRoute,omitempty" yaml:"next_route"`
}

// Catalog is an immutable request-type lookup table. The zero value is not
// usable; build one with NewCatalog or use DefaultCatalog.
type Catalog struct {
	entries map[RequestType]Config
}

var builtinConfigs = map[RequestType]Config{
	VehiclePaper: {
		Title:     "Confirm Vehicle Papers",
		SubTitle:  "Please review your vehicle papers order before proceeding",
		NextRoute: RouteRenewLicense,
	},
	DriversLicense: {
		Title:     "Confirm License",
		SubTitle:  "Please review your license details before proceeding",
		NextRoute: RouteLicensePayment,
	},
	Default: {
		Title:    "Confirm Request",
		SubTitle: "Please review your order before proceeding",
	},
}

// DefaultCatalog is the built-in table.
var DefaultCatalog = NewCatalog(nil)

// NewCatalog returns the built-in table with the given entries replacing the
// built-in ones field by field. Empty override fields keep the built-in value.
func NewCatalog(overrides map[RequestType]Config) *Catalog {
	entries := make(map[RequestType]Config, len(builtinConfigs))
	for t, c := range builtinConfigs {
		entries[t] = c
	}
	for t, o := range overrides {
		entries[t] = overlay(entries[t], o)
	}
	return &Catalog{entries: entries}
}

// Resolve returns the effective config for t. The Default entry is the
// baseline and the looked-up entry's non-empty fields override it, so every
// resolved config carries a title and subtitle.
func (c *Catalog) Resolve(t RequestType) Config {
	base := c.entries[Default]
	if t == Default {
		return base
	}
	entry, ok := c.entries[t]
	if !ok {
		return base
	}
	return overlay(base, entry)
}

func overlay(base, top Config) Config {
	if top.Title != "" {
		base.Title = top.Title
	}
	if top.SubTitle != "" {
		base.SubTitle = top.SubTitle
	}
	if top.NextRoute != "" {
		base.NextRoute = top.NextRoute
	}
	return base
}
