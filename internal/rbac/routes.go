package rbac

import (
	"fmt"
	"strings"
)

// Operation names a protected endpoint. Name may be empty when only the
// group matters.
type Operation struct {
	Group string
	Name  string
}

// Op is shorthand for building an Operation.
func Op(group, name string) Operation {
	return Operation{Group: group, Name: name}
}

func (o Operation) String() string {
	if o.Name == "" {
		return o.Group
	}
	return o.Group + "." + o.Name
}

// RouteRule binds a module requirement to a group or to one operation.
type RouteRule struct {
	Operation
	Module ModuleCode
}

// Group declares a requirement shared by every operation in a group.
func Group(group string, module ModuleCode) RouteRule {
	return RouteRule{Operation: Operation{Group: group}, Module: module}
}

// Endpoint declares a requirement for one operation, overriding its group.
func Endpoint(group, name string, module ModuleCode) RouteRule {
	return RouteRule{Operation: Operation{Group: group, Name: name}, Module: module}
}

// RouteTable is the static map of module requirements, built once at startup.
type RouteTable struct {
	groups map[string]ModuleCode
	ops    map[Operation]ModuleCode
}

// NewRouteTable validates every rule against the catalog.
func NewRouteTable(rules ...RouteRule) (*RouteTable, error) {
	t := &RouteTable{
		groups: make(map[string]ModuleCode),
		ops:    make(map[Operation]ModuleCode),
	}
	var unknown []string
	for _, rule := range rules {
		if strings.TrimSpace(rule.Group) == "" {
			return nil, fmt.Errorf("rbac: route rule for %s has no group", rule.Module)
		}
		if !rule.Module.Valid() {
			unknown = append(unknown, string(rule.Module))
			continue
		}
		if rule.Name == "" {
			if _, dup := t.groups[rule.Group]; dup {
				return nil, fmt.Errorf("rbac: duplicate route rule for group %q", rule.Group)
			}
			t.groups[rule.Group] = rule.Module
			continue
		}
		if _, dup := t.ops[rule.Operation]; dup {
			return nil, fmt.Errorf("rbac: duplicate route rule for %s", rule.Operation)
		}
		t.ops[rule.Operation] = rule.Module
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("rbac: route table: %w", &UnknownModuleError{Codes: unknown})
	}
	return t, nil
}

// MustRouteTable is NewRouteTable that panics on error.
func MustRouteTable(rules ...RouteRule) *RouteTable {
	t, err := NewRouteTable(rules...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the module required by op. The operation entry wins over the
// group entry; ok is false when neither exists.
func (t *RouteTable) Lookup(op Operation) (ModuleCode, bool) {
	if t == nil {
		return "", false
	}
	if op.Name != "" {
		if code, ok := t.ops[op]; ok {
			return code, true
		}
	}
	code, ok := t.groups[op.Group]
	return code, ok
}

// Route groups used by the HTTP layer.
const (
	GroupAdminUsers   = "admin.users"
	GroupAdminModules = "admin.modules"
	GroupAdminRoles   = "admin.roles"
	GroupClients      = "clients"
	GroupOrganization = "organization"
	GroupReports      = "reports"
	GroupEnquiries    = "enquiries"
	GroupDashboard    = "dashboard"
	GroupBilling      = "billing"
	GroupTools        = "tools"
)

// DefaultRouteRules is the requirement map for the back office.
func DefaultRouteRules() []RouteRule {
	return []RouteRule{
		Group(GroupAdminUsers, ModuleAuth),
		Group(GroupAdminModules, ModuleAuth),
		Group(GroupAdminRoles, ModuleAuth),
		Group(GroupClients, ModuleClients),
		Group(GroupOrganization, ModuleOrganization),
		Group(GroupReports, ModuleReports),
		Group(GroupEnquiries, ModuleEnquire),
		Group(GroupDashboard, ModuleDashboard),
		Group(GroupBilling, ModuleBilling),
		Group(GroupTools, ModuleTools),
		// Sales figures sit on the dashboard but belong to reporting.
		Endpoint(GroupDashboard, "sales-report", ModuleReports),
	}
}
