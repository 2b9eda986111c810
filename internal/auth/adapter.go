package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"

	"github.com/bher20/hausmeister/internal/storage"
)

// Adapter persists Casbin rules through storage.AuthStore so grants
// survive restarts on the database backends.
type Adapter struct {
	storage storage.AuthStore
}

func NewAdapter(s storage.AuthStore) *Adapter {
	return &Adapter{storage: s}
}

func (a *Adapter) LoadPolicy(m model.Model) error {
	rules, err := a.storage.LoadCasbinRules(context.Background())
	if err != nil {
		return err
	}
	for _, rule := range rules {
		parts := []string{rule.PType}
		for _, v := range []string{rule.V0, rule.V1, rule.V2, rule.V3, rule.V4, rule.V5} {
			if v == "" {
				break
			}
			parts = append(parts, v)
		}
		persist.LoadPolicyLine(strings.Join(parts, ", "), m)
	}
	return nil
}

// SavePolicy is unused; rules are persisted incrementally via
// AddPolicy/RemovePolicy.
func (a *Adapter) SavePolicy(m model.Model) error {
	return errors.New("not implemented")
}

func (a *Adapter) AddPolicy(sec string, ptype string, rule []string) error {
	return a.storage.AddCasbinRule(context.Background(), toRule(ptype, rule))
}

func (a *Adapter) RemovePolicy(sec string, ptype string, rule []string) error {
	return a.storage.RemoveCasbinRule(context.Background(), toRule(ptype, rule))
}

func (a *Adapter) RemoveFilteredPolicy(sec string, ptype string, fieldIndex int, fieldValues ...string) error {
	return errors.New("not implemented")
}

func toRule(ptype string, rule []string) storage.CasbinRule {
	r := storage.CasbinRule{PType: ptype}
	fields := []*string{&r.V0, &r.V1, &r.V2, &r.V3, &r.V4, &r.V5}
	for i, v := range rule {
		if i >= len(fields) {
			break
		}
		*fields[i] = v
	}
	return r
}
