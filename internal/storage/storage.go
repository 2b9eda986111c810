package storage

import (
	"context"
	"time"
)

// BuildingStore covers the landlord-facing entities. Lookups return
// (nil, nil) when a row is absent.
type BuildingStore interface {
	// Houses
	ListHouses(ctx context.Context) ([]House, error)
	GetHouse(ctx context.Context, id string) (*House, error)
	UpsertHouse(ctx context.Context, h House) error
	DeleteHouse(ctx context.Context, id string) error

	// Apartments
	ListApartments(ctx context.Context, houseID string) ([]Apartment, error)
	GetApartment(ctx context.Context, id string) (*Apartment, error)
	UpsertApartment(ctx context.Context, a Apartment) error
	DeleteApartment(ctx context.Context, id string) error

	// Tenants (Nebenkosten entries travel with the tenant)
	ListTenants(ctx context.Context, houseID string) ([]Tenant, error)
	GetTenant(ctx context.Context, id string) (*Tenant, error)
	UpsertTenant(ctx context.Context, t Tenant) error
	DeleteTenant(ctx context.Context, id string) error

	// Water meters
	ListMeters(ctx context.Context, houseID string) ([]WaterMeter, error)
	GetMeter(ctx context.Context, id string) (*WaterMeter, error)
	UpsertMeter(ctx context.Context, m WaterMeter) error
	DeleteMeter(ctx context.Context, id string) error

	// Meter readings. ListReadings spans all meters of a house;
	// LatestReading is the newest reading of one meter (for delta
	// computation on insert).
	ListReadings(ctx context.Context, houseID string) ([]MeterReading, error)
	ListMeterReadings(ctx context.Context, meterID string) ([]MeterReading, error)
	LatestReading(ctx context.Context, meterID string) (*MeterReading, error)
	UpsertReading(ctx context.Context, r MeterReading) error
	DeleteReading(ctx context.Context, id string) error

	// Finance records
	ListFinanceRecords(ctx context.Context, houseID string) ([]FinanceRecord, error)
	UpsertFinanceRecord(ctx context.Context, f FinanceRecord) error
	DeleteFinanceRecord(ctx context.Context, id string) error

	// Water invoices. GetInvoice matches on house and period start year.
	ListInvoices(ctx context.Context, houseID string) ([]WaterInvoice, error)
	GetInvoice(ctx context.Context, houseID string, year int) (*WaterInvoice, error)
	UpsertInvoice(ctx context.Context, inv WaterInvoice) error
}

// AuthStore covers users, API tokens and RBAC rules.
type AuthStore interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	CreateToken(ctx context.Context, token Token) error
	GetTokenByHash(ctx context.Context, hash string) (*Token, error)
	ListTokens(ctx context.Context, userID string) ([]Token, error)
	DeleteToken(ctx context.Context, id string) error
	UpdateTokenLastUsed(ctx context.Context, id string) error

	LoadCasbinRules(ctx context.Context) ([]CasbinRule, error)
	AddCasbinRule(ctx context.Context, rule CasbinRule) error
	RemoveCasbinRule(ctx context.Context, rule CasbinRule) error
}

// SettingsStore covers key/value settings and the email configuration.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	GetEmailConfig(ctx context.Context) (*EmailConfig, error)
	SaveEmailConfig(ctx context.Context, config EmailConfig) error
}

// JobStore covers background-job bookkeeping. Advisory locks are
// Postgres-backed; other backends grant them unconditionally
// (single-instance deployments).
type JobStore interface {
	AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error)
	UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error
}

// Storage abstracts persistence for the whole application.
type Storage interface {
	BuildingStore
	AuthStore
	SettingsStore
	JobStore

	Ping(ctx context.Context) error
	// Close releases any resources (no-op for in-memory).
	Close() error
}
