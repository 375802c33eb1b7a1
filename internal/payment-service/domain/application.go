package domain

import "math"

// Application is a driver's license application awaiting payment.
type Application struct {
	Slug         string
	LicenseClass string
	Fee          float64
	Status       ApplicationStatus
	Reference    string
}

type ApplicationStatus string

const (
	StatusPending         ApplicationStatus = "PENDING"
	StatusAwaitingPayment ApplicationStatus = "AWAITING_PAYMENT"
	StatusPaid            ApplicationStatus = "PAID"
)

// Accepts reports whether amount pays the fee, to the kobo.
func (a Application) Accepts(amount float64) bool {
	return math.Abs(a.Fee-amount) < 0.005
}

// SeedApplications is the local development data set.
func SeedApplications() []Application {
	return []Application{
		{Slug: "dl-new-class-b", LicenseClass: "B", Fee: 15000, Status: StatusPending},
		{Slug: "dl-renewal-class-c", LicenseClass: "C", Fee: 10500, Status: StatusPending},
		{Slug: "dl-replacement-paid", LicenseClass: "B", Fee: 7500, Status: StatusPaid},
	}
}
