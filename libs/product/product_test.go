package product

import (
	"errors"
	"testing"
)

func TestRegisterEmitsFirstEvent(t *testing.T) {
	p, env, err := Register("ABC-12345", "Widget", "A widget")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if p.Version != 1 {
		t.Fatalf("expected version 1, got %d", p.Version)
	}
	if p.Status != LifecycleActive {
		t.Fatalf("expected active status, got %s", p.Status)
	}
	if env.Sequence != 1 {
		t.Fatalf("expected sequence 1, got %d", env.Sequence)
	}
	ev, ok := env.Event.(Registered)
	if !ok {
		t.Fatalf("expected Registered event, got %T", env.Event)
	}
	if ev.Name != "Widget" || ev.SkuID != "ABC-12345" {
		t.Fatalf("event carries wrong fields: %+v", ev)
	}
}

func TestRegisterRejectsBlankName(t *testing.T) {
	if _, _, err := Register("ABC-12345", "   ", ""); !errors.Is(err, ErrBlankName) {
		t.Fatalf("expected ErrBlankName, got %v", err)
	}
}

func TestUpdateNameBumpsVersion(t *testing.T) {
	p, _, err := Register("ABC-12345", "Widget", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	env, err := p.UpdateName("Gadget")
	if err != nil {
		t.Fatalf("update name failed: %v", err)
	}
	if p.Name != "Gadget" || p.Version != 2 {
		t.Fatalf("aggregate not updated: name=%q version=%d", p.Name, p.Version)
	}
	if env.Sequence != 2 {
		t.Fatalf("expected sequence 2, got %d", env.Sequence)
	}
	ev := env.Event.(NameUpdated)
	if ev.OldName != "Widget" || ev.NewName != "Gadget" {
		t.Fatalf("event carries wrong names: %+v", ev)
	}
}

func TestUpdateNameRejectsBlank(t *testing.T) {
	p, _, _ := Register("ABC-12345", "Widget", "")
	if _, err := p.UpdateName(""); !errors.Is(err, ErrBlankName) {
		t.Fatalf("expected ErrBlankName, got %v", err)
	}
	if p.Version != 1 {
		t.Fatalf("failed command must not bump version, got %d", p.Version)
	}
}

func TestUpdateDescriptionAllowsBlank(t *testing.T) {
	p, _, _ := Register("ABC-12345", "Widget", "old")
	env, err := p.UpdateDescription("")
	if err != nil {
		t.Fatalf("update description failed: %v", err)
	}
	ev := env.Event.(DescriptionUpdated)
	if ev.OldDescription != "old" || ev.NewDescription != "" {
		t.Fatalf("event carries wrong descriptions: %+v", ev)
	}
	if p.Version != 2 {
		t.Fatalf("expected version 2, got %d", p.Version)
	}
}

func TestRetireIsTerminal(t *testing.T) {
	p, _, _ := Register("ABC-12345", "Widget", "")
	env, err := p.Retire()
	if err != nil {
		t.Fatalf("retire failed: %v", err)
	}
	if p.Status != LifecycleRetired || p.Version != 2 {
		t.Fatalf("retire did not apply: status=%s version=%d", p.Status, p.Version)
	}
	if env.Sequence != 2 {
		t.Fatalf("expected sequence 2, got %d", env.Sequence)
	}

	if _, err := p.Retire(); !errors.Is(err, ErrRetired) {
		t.Fatalf("expected ErrRetired on double retire, got %v", err)
	}
	if _, err := p.UpdateName("New"); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive after retire, got %v", err)
	}
	if _, err := p.UpdateDescription("x"); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive after retire, got %v", err)
	}
}

func TestParseSkuID(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"ABC-12345", true},
		{"XYZ-00001", true},
		{"abc-12345", false},
		{"ABCD-1234", false},
		{"ABC-1234", false},
		{"ABC-123456", false},
		{"ABC12345", false},
		{"", false},
	}
	for _, tc := range cases {
		_, err := ParseSkuID(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("ParseSkuID(%q) unexpected error: %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseSkuID(%q) expected error", tc.in)
		}
	}
}

func TestNewViewValidation(t *testing.T) {
	base := View{
		ID:      NewProductID(),
		Version: 1,
		SkuID:   "ABC-12345",
		Name:    "Widget",
		Status:  LifecycleActive,
	}

	if _, err := NewView(base); err != nil {
		t.Fatalf("valid view rejected: %v", err)
	}

	broken := base
	broken.Name = "  "
	if _, err := NewView(broken); err == nil {
		t.Fatalf("expected error for blank name")
	}

	broken = base
	broken.Version = 0
	if _, err := NewView(broken); err == nil {
		t.Fatalf("expected error for zero version")
	}

	broken = base
	broken.Status = "UNKNOWN"
	if _, err := NewView(broken); err == nil {
		t.Fatalf("expected error for unknown status")
	}

	broken = base
	broken.ID = ProductID{}
	if _, err := NewView(broken); err == nil {
		t.Fatalf("expected error for missing id")
	}
}
