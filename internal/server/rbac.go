package server

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

func rbacModel() model.Model {
	m := model.NewModel()
	m.AddDef("r", "r", "sub, obj, act")
	m.AddDef("p", "p", "sub, obj, act")
	m.AddDef("g", "g", "_, _")
	m.AddDef("e", "e", "some(where (p.eft == allow))")
	m.AddDef("m", "m", "g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == \"*\")")
	return m
}

// initEnforcer creates a Casbin enforcer. Admins may do everything; other
// authenticated users may read field definitions and work with forms,
// records, imports and exports. A policy file replaces these defaults.
func initEnforcer(policyPath string) (*casbin.Enforcer, error) {
	if policyPath != "" {
		return casbin.NewEnforcer(rbacModel(), fileadapter.NewAdapter(policyPath))
	}
	e, err := casbin.NewEnforcer(rbacModel())
	if err != nil {
		return nil, err
	}
	policies := [][]string{
		{"admin", "/v1/*", "*"},
		{"user", "/v1/fields/*", "GET"},
		{"user", "/v1/forms/*", "*"},
		{"user", "/v1/records/*", "*"},
		{"user", "/v1/imports/*", "*"},
		{"user", "/v1/exports/*", "GET"},
	}
	for _, p := range policies {
		if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, err
		}
	}
	return e, nil
}
