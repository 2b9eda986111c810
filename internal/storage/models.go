package storage

import "time"

// House is one managed building.
type House struct {
	ID         string `json:"id" gorm:"primaryKey;column:id"`
	Name       string `json:"name" gorm:"column:name"`
	Street     string `json:"street" gorm:"column:street"`
	City       string `json:"city" gorm:"column:city"`
	PostalCode string `json:"postal_code" gorm:"column:postal_code"`
}

// Apartment is one Wohnung inside a house.
type Apartment struct {
	ID      string  `json:"id" gorm:"primaryKey;column:id"`
	HouseID string  `json:"haus_id" gorm:"column:haus_id;index"`
	Name    string  `json:"name" gorm:"column:name"`
	AreaSQM float64 `json:"flaeche_qm" gorm:"column:flaeche_qm"`
}

// Tenant is a (current or former) resident. Einzug/Auszug are nil when
// unknown respectively still resident.
type Tenant struct {
	ID          string             `json:"id" gorm:"primaryKey;column:id"`
	ApartmentID string             `json:"wohnung_id" gorm:"column:wohnung_id;index"`
	Name        string             `json:"name" gorm:"column:name"`
	Email       string             `json:"email,omitempty" gorm:"column:email"`
	Einzug      *time.Time         `json:"einzug" gorm:"column:einzug"`
	Auszug      *time.Time         `json:"auszug" gorm:"column:auszug"`
	Kaltmiete   float64            `json:"kaltmiete" gorm:"column:kaltmiete"`
	Nebenkosten []NebenkostenEntry `json:"nebenkosten" gorm:"foreignKey:TenantID"`
}

// NebenkostenEntry is one utility-prepayment amount, effective from Date.
type NebenkostenEntry struct {
	ID       uint      `json:"-" gorm:"primaryKey;column:id"`
	TenantID string    `json:"-" gorm:"column:tenant_id;index"`
	Amount   float64   `json:"amount" gorm:"column:amount"`
	Date     time.Time `json:"date" gorm:"column:date"`
}

// WaterMeter is a water meter. ApartmentID is nil for meters not (yet)
// linked to a Wohnung; those never contribute to any apportionment.
type WaterMeter struct {
	ID          string  `json:"id" gorm:"primaryKey;column:id"`
	ApartmentID *string `json:"wohnung_id" gorm:"column:wohnung_id"`
	Number      string  `json:"nummer" gorm:"column:nummer"`
}

// MeterReading is one counter reading. Verbrauch is the delta to the
// previous reading of the same meter, computed on insert.
type MeterReading struct {
	ID           string    `json:"id" gorm:"primaryKey;column:id"`
	MeterID      string    `json:"wasser_zaehler_id" gorm:"column:wasser_zaehler_id;index"`
	Date         time.Time `json:"ablese_datum" gorm:"column:ablese_datum"`
	Zaehlerstand float64   `json:"zaehlerstand" gorm:"column:zaehlerstand"`
	Verbrauch    float64   `json:"verbrauch" gorm:"column:verbrauch"`
}

// FinanceRecord is one booked payment for a house.
type FinanceRecord struct {
	ID      string    `json:"id" gorm:"primaryKey;column:id"`
	HouseID string    `json:"haus_id" gorm:"column:haus_id;index"`
	Date    time.Time `json:"datum" gorm:"column:datum"`
	Amount  float64   `json:"betrag" gorm:"column:betrag"`
	Name    string    `json:"name" gorm:"column:name"`
	Notes   string    `json:"notiz,omitempty" gorm:"column:notiz"`
}

// WaterInvoice is the water utility's statement for a house and billing
// period: the externally entered (or PDF-parsed) building totals that
// price the apportionment. Zero totals are legal; pricing degrades to
// zero downstream and the report flags the gap as a data-completeness
// warning.
type WaterInvoice struct {
	ID               uint      `json:"id" gorm:"primaryKey;column:id"`
	HouseID          string    `json:"haus_id" gorm:"column:haus_id;index"`
	PeriodStart      time.Time `json:"period_start" gorm:"column:period_start"`
	PeriodEnd        time.Time `json:"period_end" gorm:"column:period_end"`
	TotalCost        float64   `json:"total_cost" gorm:"column:total_cost"`
	TotalConsumption float64   `json:"total_consumption" gorm:"column:total_consumption"`
	Source           string    `json:"source,omitempty" gorm:"column:source"` // "manual" or the parsed PDF path
}

// User represents a registered user in the system.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;column:id"`
	Username     string    `json:"username" gorm:"unique;column:username"`
	Email        string    `json:"email" gorm:"column:email"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	Role         string    `json:"role" gorm:"column:role"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// Token represents an API access token.
type Token struct {
	ID         string     `json:"id" gorm:"primaryKey;column:id"`
	UserID     string     `json:"user_id" gorm:"column:user_id"`
	Name       string     `json:"name" gorm:"column:name"`
	TokenHash  string     `json:"-" gorm:"column:token_hash"`
	Role       string     `json:"role" gorm:"column:role"`
	CreatedAt  time.Time  `json:"created_at" gorm:"column:created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" gorm:"column:expires_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" gorm:"column:last_used_at"`
}

// CasbinRule represents a policy rule for RBAC.
type CasbinRule struct {
	ID    uint   `gorm:"primaryKey"`
	PType string `json:"ptype" gorm:"column:ptype"`
	V0    string `json:"v0" gorm:"column:v0"`
	V1    string `json:"v1" gorm:"column:v1"`
	V2    string `json:"v2" gorm:"column:v2"`
	V3    string `json:"v3" gorm:"column:v3"`
	V4    string `json:"v4" gorm:"column:v4"`
	V5    string `json:"v5" gorm:"column:v5"`
}

// EmailConfig holds configuration for outgoing mail (payment reminders).
type EmailConfig struct {
	ID          string    `json:"id" gorm:"primaryKey;column:id"`
	Provider    string    `json:"provider" gorm:"column:provider"` // "smtp", "sendgrid", "gmail", "resend"
	Host        string    `json:"host,omitempty" gorm:"column:host"`
	Port        int       `json:"port,omitempty" gorm:"column:port"`
	Username    string    `json:"username,omitempty" gorm:"column:username"`
	Password    string    `json:"password,omitempty" gorm:"column:password"`
	FromAddress string    `json:"from_address" gorm:"column:from_address"`
	FromName    string    `json:"from_name" gorm:"column:from_name"`
	APIKey      string    `json:"api_key,omitempty" gorm:"column:api_key"`
	Encryption  string    `json:"encryption,omitempty" gorm:"column:encryption"` // "none", "ssl", "tls"
	Enabled     bool      `json:"enabled" gorm:"column:enabled"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// Setting is a single key/value configuration row.
type Setting struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// ScheduledJob records the last outcome of a background job.
type ScheduledJob struct {
	Name           string    `gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `gorm:"column:last_run_at"`
	LastDurationMs int64     `gorm:"column:last_duration_ms"`
	LastSuccess    int       `gorm:"column:last_success"`
	LastError      string    `gorm:"column:last_error"`
}
