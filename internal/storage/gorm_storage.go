package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type GormStorage struct {
	db *gorm.DB
}

func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var gormDialector gorm.Dialector
	switch driver {
	case "postgres":
		gormDialector = postgres.Open(dsn)
	case "sqlite":
		gormDialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := gorm.Open(gormDialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return &GormStorage{db: db}, nil
}

func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.AutoMigrate(
		&House{},
		&Apartment{},
		&Tenant{},
		&NebenkostenEntry{},
		&WaterMeter{},
		&MeterReading{},
		&FinanceRecord{},
		&WaterInvoice{},
		&User{},
		&Token{},
		&CasbinRule{},
		&EmailConfig{},
		&Setting{},
		&ScheduledJob{},
	)
}

// Houses

func (s *GormStorage) ListHouses(ctx context.Context) ([]House, error) {
	var houses []House
	result := s.db.WithContext(ctx).Order("id").Find(&houses)
	return houses, result.Error
}

func (s *GormStorage) GetHouse(ctx context.Context, id string) (*House, error) {
	var h House
	result := s.db.WithContext(ctx).First(&h, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &h, nil
}

func (s *GormStorage) UpsertHouse(ctx context.Context, h House) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&h).Error
}

func (s *GormStorage) DeleteHouse(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&House{}, "id = ?", id).Error
}

// Apartments

func (s *GormStorage) ListApartments(ctx context.Context, houseID string) ([]Apartment, error) {
	var apartments []Apartment
	result := s.db.WithContext(ctx).Order("id").Find(&apartments, "haus_id = ?", houseID)
	return apartments, result.Error
}

func (s *GormStorage) GetApartment(ctx context.Context, id string) (*Apartment, error) {
	var a Apartment
	result := s.db.WithContext(ctx).First(&a, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &a, nil
}

func (s *GormStorage) UpsertApartment(ctx context.Context, a Apartment) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&a).Error
}

func (s *GormStorage) DeleteApartment(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&Apartment{}, "id = ?", id).Error
}

// Tenants

func (s *GormStorage) ListTenants(ctx context.Context, houseID string) ([]Tenant, error) {
	var tenants []Tenant
	result := s.db.WithContext(ctx).
		Preload("Nebenkosten").
		Joins("JOIN apartments ON apartments.id = tenants.wohnung_id").
		Where("apartments.haus_id = ?", houseID).
		Order("tenants.id").
		Find(&tenants)
	return tenants, result.Error
}

func (s *GormStorage) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	var t Tenant
	result := s.db.WithContext(ctx).Preload("Nebenkosten").First(&t, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &t, nil
}

func (s *GormStorage) UpsertTenant(ctx context.Context, t Tenant) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Omit("Nebenkosten").Create(&t).Error; err != nil {
			return err
		}
		// Nebenkosten entries are replaced wholesale with the tenant.
		if err := tx.Delete(&NebenkostenEntry{}, "tenant_id = ?", t.ID).Error; err != nil {
			return err
		}
		for i := range t.Nebenkosten {
			t.Nebenkosten[i].ID = 0
			t.Nebenkosten[i].TenantID = t.ID
			if err := tx.Create(&t.Nebenkosten[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStorage) DeleteTenant(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&NebenkostenEntry{}, "tenant_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&Tenant{}, "id = ?", id).Error
	})
}

// Water meters

func (s *GormStorage) ListMeters(ctx context.Context, houseID string) ([]WaterMeter, error) {
	var meters []WaterMeter
	result := s.db.WithContext(ctx).
		Joins("JOIN apartments ON apartments.id = water_meters.wohnung_id").
		Where("apartments.haus_id = ?", houseID).
		Order("water_meters.id").
		Find(&meters)
	return meters, result.Error
}

func (s *GormStorage) GetMeter(ctx context.Context, id string) (*WaterMeter, error) {
	var m WaterMeter
	result := s.db.WithContext(ctx).First(&m, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &m, nil
}

func (s *GormStorage) UpsertMeter(ctx context.Context, m WaterMeter) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&m).Error
}

func (s *GormStorage) DeleteMeter(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&WaterMeter{}, "id = ?", id).Error
}

// Meter readings

func (s *GormStorage) ListReadings(ctx context.Context, houseID string) ([]MeterReading, error) {
	var readings []MeterReading
	result := s.db.WithContext(ctx).
		Joins("JOIN water_meters ON water_meters.id = meter_readings.wasser_zaehler_id").
		Joins("JOIN apartments ON apartments.id = water_meters.wohnung_id").
		Where("apartments.haus_id = ?", houseID).
		Order("meter_readings.ablese_datum").
		Find(&readings)
	return readings, result.Error
}

func (s *GormStorage) ListMeterReadings(ctx context.Context, meterID string) ([]MeterReading, error) {
	var readings []MeterReading
	result := s.db.WithContext(ctx).
		Order("ablese_datum").
		Find(&readings, "wasser_zaehler_id = ?", meterID)
	return readings, result.Error
}

func (s *GormStorage) LatestReading(ctx context.Context, meterID string) (*MeterReading, error) {
	var r MeterReading
	result := s.db.WithContext(ctx).
		Order("ablese_datum desc").
		First(&r, "wasser_zaehler_id = ?", meterID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &r, nil
}

func (s *GormStorage) UpsertReading(ctx context.Context, r MeterReading) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&r).Error
}

func (s *GormStorage) DeleteReading(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&MeterReading{}, "id = ?", id).Error
}

// Finance records

func (s *GormStorage) ListFinanceRecords(ctx context.Context, houseID string) ([]FinanceRecord, error) {
	var records []FinanceRecord
	result := s.db.WithContext(ctx).Order("datum").Find(&records, "haus_id = ?", houseID)
	return records, result.Error
}

func (s *GormStorage) UpsertFinanceRecord(ctx context.Context, f FinanceRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&f).Error
}

func (s *GormStorage) DeleteFinanceRecord(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&FinanceRecord{}, "id = ?", id).Error
}

// Water invoices

func (s *GormStorage) ListInvoices(ctx context.Context, houseID string) ([]WaterInvoice, error) {
	var invoices []WaterInvoice
	result := s.db.WithContext(ctx).Order("period_start").Find(&invoices, "haus_id = ?", houseID)
	return invoices, result.Error
}

func (s *GormStorage) GetInvoice(ctx context.Context, houseID string, year int) (*WaterInvoice, error) {
	invoices, err := s.ListInvoices(ctx, houseID)
	if err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		if inv.PeriodStart.Year() == year {
			cp := inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *GormStorage) UpsertInvoice(ctx context.Context, inv WaterInvoice) error {
	if inv.ID == 0 {
		existing, err := s.GetInvoice(ctx, inv.HouseID, inv.PeriodStart.Year())
		if err != nil {
			return err
		}
		if existing != nil {
			inv.ID = existing.ID
		}
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&inv).Error
}

// Settings

func (s *GormStorage) GetSetting(ctx context.Context, key string) (string, error) {
	var setting Setting
	result := s.db.WithContext(ctx).First(&setting, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return setting.Value, nil
}

func (s *GormStorage) SetSetting(ctx context.Context, key, value string) error {
	setting := Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&setting).Error
}

// Users

func (s *GormStorage) CreateUser(ctx context.Context, user User) error {
	return s.db.WithContext(ctx).Create(&user).Error
}

func (s *GormStorage) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	result := s.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *GormStorage) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	result := s.db.WithContext(ctx).First(&user, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *GormStorage) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	result := s.db.WithContext(ctx).Find(&users)
	return users, result.Error
}

// Tokens

func (s *GormStorage) CreateToken(ctx context.Context, token Token) error {
	return s.db.WithContext(ctx).Create(&token).Error
}

func (s *GormStorage) GetTokenByHash(ctx context.Context, hash string) (*Token, error) {
	var token Token
	result := s.db.WithContext(ctx).First(&token, "token_hash = ?", hash)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &token, nil
}

func (s *GormStorage) ListTokens(ctx context.Context, userID string) ([]Token, error) {
	var tokens []Token
	result := s.db.WithContext(ctx).Find(&tokens, "user_id = ?", userID)
	return tokens, result.Error
}

func (s *GormStorage) DeleteToken(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&Token{}, "id = ?", id).Error
}

func (s *GormStorage) UpdateTokenLastUsed(ctx context.Context, id string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&Token{}).Where("id = ?", id).Update("last_used_at", now).Error
}

// Casbin rules

func (s *GormStorage) LoadCasbinRules(ctx context.Context) ([]CasbinRule, error) {
	var rules []CasbinRule
	result := s.db.WithContext(ctx).Find(&rules)
	return rules, result.Error
}

func (s *GormStorage) AddCasbinRule(ctx context.Context, rule CasbinRule) error {
	return s.db.WithContext(ctx).Create(&rule).Error
}

func (s *GormStorage) RemoveCasbinRule(ctx context.Context, rule CasbinRule) error {
	return s.db.WithContext(ctx).Where(&rule).Delete(&CasbinRule{}).Error
}

// Email config

func (s *GormStorage) GetEmailConfig(ctx context.Context) (*EmailConfig, error) {
	var config EmailConfig
	result := s.db.WithContext(ctx).First(&config)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &config, nil
}

func (s *GormStorage) SaveEmailConfig(ctx context.Context, config EmailConfig) error {
	if config.ID == "" {
		config.ID = "default"
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&config).Error
}

// Close & Ping

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PoolStats exposes the underlying connection pool counters for metrics.
func (s *GormStorage) PoolStats() (total, idle, inUse int, ok bool) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return 0, 0, 0, false
	}
	stats := sqlDB.Stats()
	return stats.OpenConnections, stats.Idle, stats.InUse, true
}

// Jobs & locking

func (s *GormStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	if s.db.Dialector.Name() == "postgres" {
		var ok bool
		err := s.db.WithContext(ctx).Raw("SELECT pg_try_advisory_lock(?)", key).Scan(&ok).Error
		return ok, err
	}
	// SQLite has no advisory locks; assume a single instance.
	return true, nil
}

func (s *GormStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	if s.db.Dialector.Name() == "postgres" {
		var ok bool
		err := s.db.WithContext(ctx).Raw("SELECT pg_advisory_unlock(?)", key).Scan(&ok).Error
		return ok, err
	}
	return true, nil
}

func (s *GormStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	status := 0
	if success {
		status = 1
	}
	job := ScheduledJob{
		Name:           name,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    status,
		LastError:      errMsg,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&job).Error
}
