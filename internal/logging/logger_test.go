package logging

import "testing"

func TestSetupRejectsUnknownValues(t *testing.T) {
	if err := Setup(Config{Level: "verbose", Format: "json"}); err == nil {
		t.Error("Expected error for unknown level")
	}
	if err := Setup(Config{Level: "info", Format: "xml"}); err == nil {
		t.Error("Expected error for unknown format")
	}
	if err := Setup(Config{Level: "debug", Format: "console"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestNamedExtendsPrefix(t *testing.T) {
	l := NewLogger("Coordinator").Named("flight")
	if l.prefix != "Coordinator.flight" {
		t.Errorf("Expected prefix 'Coordinator.flight', got '%s'", l.prefix)
	}
	// Must not panic with odd key/value counts.
	NewNop().Info("odd", "key")
}
