package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests
// and simple single-process deployments.
type MemoryStorage struct {
	mu          sync.RWMutex
	houses      map[string]House
	apartments  map[string]Apartment
	tenants     map[string]Tenant
	meters      map[string]WaterMeter
	readings    map[string]MeterReading
	finances    map[string]FinanceRecord
	invoices    map[uint]WaterInvoice
	nextInvoice uint
	settings    map[string]string
	users       map[string]User
	tokens      map[string]Token
	emailConfig *EmailConfig
}

// NewMemory returns an empty MemoryStorage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		houses:     make(map[string]House),
		apartments: make(map[string]Apartment),
		tenants:    make(map[string]Tenant),
		meters:     make(map[string]WaterMeter),
		readings:   make(map[string]MeterReading),
		finances:   make(map[string]FinanceRecord),
		invoices:   make(map[uint]WaterInvoice),
		settings:   make(map[string]string),
		users:      make(map[string]User),
		tokens:     make(map[string]Token),
	}
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

// houseOfApartment resolves an apartment to its house; callers hold the lock.
func (m *MemoryStorage) houseOfApartment(apartmentID string) string {
	if a, ok := m.apartments[apartmentID]; ok {
		return a.HouseID
	}
	return ""
}

// Houses

func (m *MemoryStorage) ListHouses(ctx context.Context) ([]House, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]House, 0, len(m.houses))
	for _, h := range m.houses {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStorage) GetHouse(ctx context.Context, id string) (*House, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.houses[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (m *MemoryStorage) UpsertHouse(ctx context.Context, h House) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.houses[h.ID] = h
	return nil
}

func (m *MemoryStorage) DeleteHouse(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.houses, id)
	return nil
}

// Apartments

func (m *MemoryStorage) ListApartments(ctx context.Context, houseID string) ([]Apartment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Apartment
	for _, a := range m.apartments {
		if a.HouseID == houseID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStorage) GetApartment(ctx context.Context, id string) (*Apartment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.apartments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *MemoryStorage) UpsertApartment(ctx context.Context, a Apartment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apartments[a.ID] = a
	return nil
}

func (m *MemoryStorage) DeleteApartment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.apartments, id)
	return nil
}

// Tenants

func (m *MemoryStorage) ListTenants(ctx context.Context, houseID string) ([]Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Tenant
	for _, t := range m.tenants {
		if m.houseOfApartment(t.ApartmentID) == houseID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStorage) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *MemoryStorage) UpsertTenant(ctx context.Context, t Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = t
	return nil
}

func (m *MemoryStorage) DeleteTenant(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tenants, id)
	return nil
}

// Water meters

func (m *MemoryStorage) ListMeters(ctx context.Context, houseID string) ([]WaterMeter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []WaterMeter
	for _, wm := range m.meters {
		if wm.ApartmentID != nil && m.houseOfApartment(*wm.ApartmentID) == houseID {
			out = append(out, wm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStorage) GetMeter(ctx context.Context, id string) (*WaterMeter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wm, ok := m.meters[id]
	if !ok {
		return nil, nil
	}
	return &wm, nil
}

func (m *MemoryStorage) UpsertMeter(ctx context.Context, wm WaterMeter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meters[wm.ID] = wm
	return nil
}

func (m *MemoryStorage) DeleteMeter(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.meters, id)
	return nil
}

// Meter readings

func (m *MemoryStorage) ListReadings(ctx context.Context, houseID string) ([]MeterReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []MeterReading
	for _, r := range m.readings {
		wm, ok := m.meters[r.MeterID]
		if !ok || wm.ApartmentID == nil {
			continue
		}
		if m.houseOfApartment(*wm.ApartmentID) == houseID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryStorage) ListMeterReadings(ctx context.Context, meterID string) ([]MeterReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []MeterReading
	for _, r := range m.readings {
		if r.MeterID == meterID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryStorage) LatestReading(ctx context.Context, meterID string) (*MeterReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *MeterReading
	for _, r := range m.readings {
		if r.MeterID != meterID {
			continue
		}
		if latest == nil || r.Date.After(latest.Date) {
			cp := r
			latest = &cp
		}
	}
	return latest, nil
}

func (m *MemoryStorage) UpsertReading(ctx context.Context, r MeterReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings[r.ID] = r
	return nil
}

func (m *MemoryStorage) DeleteReading(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.readings, id)
	return nil
}

// Finance records

func (m *MemoryStorage) ListFinanceRecords(ctx context.Context, houseID string) ([]FinanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []FinanceRecord
	for _, f := range m.finances {
		if f.HouseID == houseID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryStorage) UpsertFinanceRecord(ctx context.Context, f FinanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finances[f.ID] = f
	return nil
}

func (m *MemoryStorage) DeleteFinanceRecord(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.finances, id)
	return nil
}

// Water invoices

func (m *MemoryStorage) ListInvoices(ctx context.Context, houseID string) ([]WaterInvoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []WaterInvoice
	for _, inv := range m.invoices {
		if inv.HouseID == houseID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })
	return out, nil
}

func (m *MemoryStorage) GetInvoice(ctx context.Context, houseID string, year int) (*WaterInvoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, inv := range m.invoices {
		if inv.HouseID == houseID && inv.PeriodStart.Year() == year {
			cp := inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) UpsertInvoice(ctx context.Context, inv WaterInvoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv.ID == 0 {
		// Replace an existing invoice for the same house and period year.
		for id, existing := range m.invoices {
			if existing.HouseID == inv.HouseID && existing.PeriodStart.Year() == inv.PeriodStart.Year() {
				inv.ID = id
				break
			}
		}
	}
	if inv.ID == 0 {
		m.nextInvoice++
		inv.ID = m.nextInvoice
	}
	m.invoices[inv.ID] = inv
	return nil
}

// Settings

func (m *MemoryStorage) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

func (m *MemoryStorage) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

// Users

func (m *MemoryStorage) CreateUser(ctx context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *MemoryStorage) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) ListUsers(ctx context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

// Tokens

func (m *MemoryStorage) CreateToken(ctx context.Context, token Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.ID] = token
	return nil
}

func (m *MemoryStorage) GetTokenByHash(ctx context.Context, hash string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tokens {
		if t.TokenHash == hash {
			return &t, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) ListTokens(ctx context.Context, userID string) ([]Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Token
	for _, t := range m.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MemoryStorage) DeleteToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, id)
	return nil
}

func (m *MemoryStorage) UpdateTokenLastUsed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[id]; ok {
		now := time.Now()
		t.LastUsedAt = &now
		m.tokens[id] = t
	}
	return nil
}

// Casbin rules: the in-memory backend does not persist them, the enforcer
// keeps its own state.

func (m *MemoryStorage) LoadCasbinRules(ctx context.Context) ([]CasbinRule, error) {
	return nil, nil
}

func (m *MemoryStorage) AddCasbinRule(ctx context.Context, rule CasbinRule) error { return nil }

func (m *MemoryStorage) RemoveCasbinRule(ctx context.Context, rule CasbinRule) error { return nil }

// Email config

func (m *MemoryStorage) GetEmailConfig(ctx context.Context) (*EmailConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.emailConfig == nil {
		return nil, nil
	}
	cfg := *m.emailConfig
	return &cfg, nil
}

func (m *MemoryStorage) SaveEmailConfig(ctx context.Context, config EmailConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailConfig = &config
	return nil
}

// Jobs & locks: a single in-memory instance always wins the lock.

func (m *MemoryStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	return true, nil
}

func (m *MemoryStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	return true, nil
}

func (m *MemoryStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	return nil
}
