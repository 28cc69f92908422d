package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertFile struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestAuthAlertRules(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "auth.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var rules alertFile
	if err := yaml.Unmarshal(data, &rules); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}

	if len(rules.Groups) == 0 {
		t.Fatal("expected at least one alert group")
	}

	var authGroup *alertGroup
	for i := range rules.Groups {
		if rules.Groups[i].Name == "auth" {
			authGroup = &rules.Groups[i]
			break
		}
	}
	if authGroup == nil {
		t.Fatal("auth alert group missing")
	}

	expected := map[string]struct {
		severity string
		runbook  string
	}{
		"LoginFailureSpike":  {severity: "warning", runbook: "docs/runbook-auth.md#login-failure-spike"},
		"AccessDeniedSpike":  {severity: "warning", runbook: "docs/runbook-auth.md#access-denied-spike"},
		"HighErrorRate":      {severity: "critical", runbook: "docs/runbook-auth.md#high-error-rate"},
		"LoginAuditFailures": {severity: "warning", runbook: "docs/runbook-auth.md#login-audit-failures"},
	}

	if len(authGroup.Rules) != len(expected) {
		t.Fatalf("expected %d rules, got %d", len(expected), len(authGroup.Rules))
	}

	for _, rule := range authGroup.Rules {
		want, ok := expected[rule.Alert]
		if !ok {
			t.Fatalf("unexpected rule %q", rule.Alert)
		}
		if rule.Labels["severity"] != want.severity {
			t.Fatalf("rule %s severity mismatch: %s", rule.Alert, rule.Labels["severity"])
		}
		if rule.Annotations["runbook"] != want.runbook {
			t.Fatalf("rule %s runbook mismatch: %s", rule.Alert, rule.Annotations["runbook"])
		}
		if rule.Annotations["summary"] == "" || rule.Annotations["description"] == "" {
			t.Fatalf("rule %s must include summary and description annotations", rule.Alert)
		}
		if !strings.Contains(rule.Expr, "mtechcare_") {
			t.Fatalf("rule %s must query a back office metric: %s", rule.Alert, rule.Expr)
		}
		if rule.For == "" {
			t.Fatalf("rule %s must define a hold duration", rule.Alert)
		}
	}
}
