package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"

	"github.com/bher20/billoptimizer/internal/storage"
)

// Adapter implements the Casbin persist.Adapter interface using storage.Storage.
type Adapter struct {
	storage storage.Storage
}

// NewAdapter returns a new Casbin adapter.
func NewAdapter(s storage.Storage) *Adapter {
	return &Adapter{storage: s}
}

// LoadPolicy loads all policy rules from the storage.
func (a *Adapter) LoadPolicy(m model.Model) error {
	rules, err := a.storage.LoadCasbinRules(context.Background())
	if err != nil {
		return err
	}
	for _, rule := range rules {
		fields := []string{rule.PType}
		for _, v := range ruleValues(rule) {
			if v != "" {
				fields = append(fields, v)
			}
		}
		persist.LoadPolicyLine(strings.Join(fields, ", "), m)
	}
	return nil
}

// SavePolicy is not supported; policies are written incrementally.
func (a *Adapter) SavePolicy(m model.Model) error {
	return errors.New("casbin adapter: SavePolicy not supported")
}

// AddPolicy adds a policy rule to the storage.
func (a *Adapter) AddPolicy(sec string, ptype string, rule []string) error {
	return a.storage.AddCasbinRule(context.Background(), toRule(ptype, rule))
}

// RemovePolicy removes a policy rule from the storage.
func (a *Adapter) RemovePolicy(sec string, ptype string, rule []string) error {
	return a.storage.RemoveCasbinRule(context.Background(), toRule(ptype, rule))
}

// RemoveFilteredPolicy removes the rules of ptype whose values, starting at
// fieldIndex, match fieldValues. Empty filter values match anything.
func (a *Adapter) RemoveFilteredPolicy(sec string, ptype string, fieldIndex int, fieldValues ...string) error {
	ctx := context.Background()
	rules, err := a.storage.LoadCasbinRules(ctx)
	if err != nil {
		return err
	}
	for _, r := range rules {
		if r.PType != ptype || !matchesFilter(ruleValues(r), fieldIndex, fieldValues) {
			continue
		}
		if err := a.storage.RemoveCasbinRule(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func matchesFilter(values []string, fieldIndex int, filter []string) bool {
	for i, want := range filter {
		idx := fieldIndex + i
		if want == "" {
			continue
		}
		if idx >= len(values) || values[idx] != want {
			return false
		}
	}
	return true
}

func ruleValues(r storage.CasbinRule) []string {
	return []string{r.V0, r.V1, r.V2, r.V3, r.V4, r.V5}
}

func toRule(ptype string, rule []string) storage.CasbinRule {
	r := storage.CasbinRule{PType: ptype}
	dst := []*string{&r.V0, &r.V1, &r.V2, &r.V3, &r.V4, &r.V5}
	for i, v := range rule {
		if i < len(dst) {
			*dst[i] = v
		}
	}
	return r
}
