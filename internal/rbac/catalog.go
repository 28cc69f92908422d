package rbac

import (
	"fmt"
	"strings"

	"github.com/mtechcare/backoffice/internal/shared"
)

// ModuleCode identifies a functional area of the back office.
type ModuleCode string

const (
	ModuleAuth         ModuleCode = "AUTH"
	ModuleClients      ModuleCode = "CLIENTS"
	ModuleOrganization ModuleCode = "ORGANIZATION"
	ModuleReports      ModuleCode = "REPORTS"
	ModuleEnquire      ModuleCode = "ENQUIRE"
	ModuleDashboard    ModuleCode = "DASHBOARD"
	ModuleBilling      ModuleCode = "BILLING"
	ModuleTools        ModuleCode = "TOOLS"
)

var catalog = [...]ModuleCode{
	ModuleAuth,
	ModuleClients,
	ModuleOrganization,
	ModuleReports,
	ModuleEnquire,
	ModuleDashboard,
	ModuleBilling,
	ModuleTools,
}

var catalogIndex = func() map[ModuleCode]int {
	idx := make(map[ModuleCode]int, len(catalog))
	for i, code := range catalog {
		idx[code] = i
	}
	return idx
}()

var displayNames = map[ModuleCode]string{
	ModuleAuth:         "Admin & Access",
	ModuleClients:      "Clients",
	ModuleOrganization: "Organization",
	ModuleReports:      "Reports",
	ModuleEnquire:      "Enquiries",
	ModuleDashboard:    "Dashboard",
	ModuleBilling:      "Billing",
	ModuleTools:        "Tools",
}

// Valid reports whether the code belongs to the catalog.
func (c ModuleCode) Valid() bool {
	_, ok := catalogIndex[c]
	return ok
}

// DisplayName returns the human label shipped with the catalog.
func (c ModuleCode) DisplayName() string {
	return displayNames[c]
}

// Module is a catalog entry as exposed to admin tooling.
type Module struct {
	Code ModuleCode `json:"code"`
	Name *string    `json:"name"`
}

// ModuleSet is an ordered, duplicate-free set of catalog codes.
type ModuleSet []ModuleCode

// AllModules returns the full catalog in canonical order.
func AllModules() ModuleSet {
	out := make(ModuleSet, len(catalog))
	copy(out, catalog[:])
	return out
}

// CatalogModules returns the catalog as Module entries with built-in names.
func CatalogModules() []Module {
	out := make([]Module, 0, len(catalog))
	for _, code := range catalog {
		name := code.DisplayName()
		out = append(out, Module{Code: code, Name: &name})
	}
	return out
}

// IsValidModule reports whether code is a catalog member. Matching is exact.
func IsValidModule(code string) bool {
	return ModuleCode(code).Valid()
}

// NewModuleSet builds a set in catalog order. Unknown codes are dropped.
func NewModuleSet(codes ...ModuleCode) ModuleSet {
	seen := make([]bool, len(catalog))
	for _, code := range codes {
		if i, ok := catalogIndex[code]; ok {
			seen[i] = true
		}
	}
	out := make(ModuleSet, 0, len(codes))
	for i, present := range seen {
		if present {
			out = append(out, catalog[i])
		}
	}
	return out
}

// UnknownModuleError lists every code that failed catalog validation.
type UnknownModuleError struct {
	Codes []string
}

func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("invalid module codes: %s. Valid codes: %s", strings.Join(e.Codes, ", "), strings.Join(AllModules().Strings(), ", "))
}

// Unwrap lets errors.Is match shared.ErrValidation.
func (e *UnknownModuleError) Unwrap() error {
	return shared.ErrValidation
}

// ParseModules validates raw codes against the catalog.
func ParseModules(raw []string) (ModuleSet, error) {
	codes := make([]ModuleCode, 0, len(raw))
	var unknown []string
	for _, r := range raw {
		code := ModuleCode(r)
		if !code.Valid() {
			unknown = append(unknown, r)
			continue
		}
		codes = append(codes, code)
	}
	if len(unknown) > 0 {
		return nil, &UnknownModuleError{Codes: unknown}
	}
	return NewModuleSet(codes...), nil
}

// Contains reports membership.
func (s ModuleSet) Contains(code ModuleCode) bool {
	for _, c := range s {
		if c == code {
			return true
		}
	}
	return false
}

// Strings renders the set as plain strings. The result is never nil.
func (s ModuleSet) Strings() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = string(c)
	}
	return out
}
