package setup

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func newTestPrompter(input string) (*Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	return NewPrompter(strings.NewReader(input), &out), &out
}

func TestPrompter_String(t *testing.T) {
	p, _ := newTestPrompter("\n\nvalue\n")
	if got := p.String("Name", "def"); got != "def" {
		t.Errorf("empty input = %q, want default", got)
	}
	if got := p.String("Name", ""); got != "value" {
		t.Errorf("required = %q, want value after re-prompt", got)
	}
}

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		input      string
		defaultYes bool
		want       bool
	}{
		{"\n", true, true},
		{"\n", false, false},
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", true, false},
		{"", true, true},
	}
	for _, tc := range tests {
		p, _ := newTestPrompter(tc.input)
		if got := p.Confirm("ok?", tc.defaultYes); got != tc.want {
			t.Errorf("Confirm(%q, %v) = %v, want %v", tc.input, tc.defaultYes, got, tc.want)
		}
	}
}

func TestPrompter_Select(t *testing.T) {
	p, out := newTestPrompter("0\nfoo\n2\n")
	idx, err := p.Select("Pick", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if idx != 1 {
		t.Errorf("idx = %d, want 1", idx)
	}
	if !strings.Contains(out.String(), "enter a number between 1 and 2") {
		t.Error("expected re-prompt on invalid input")
	}

	p, _ = newTestPrompter("")
	if _, err := p.Select("Pick", []string{"a"}); err == nil {
		t.Error("expected error at end of input")
	}
	if _, err := p.Select("Pick", nil); err == nil {
		t.Error("expected error without options")
	}
}

func TestPrompter_MultiSelect(t *testing.T) {
	p, _ := newTestPrompter("1,9\n3, 1\n")
	got, err := p.MultiSelect("Pick", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("MultiSelect: %v", err)
	}
	if len(got) != 2 || got[0] != 2 || got[1] != 0 {
		t.Errorf("got %v, want [2 0]", got)
	}
}

func TestPrompter_Float(t *testing.T) {
	p, _ := newTestPrompter("\nabc\n12.5\n")
	if got := p.Float("Radius", 100); got != 100 {
		t.Errorf("default = %v", got)
	}
	if got := p.Float("Radius", 100); got != 12.5 {
		t.Errorf("got %v, want 12.5 after re-prompt", got)
	}
}

func TestPrompter_Int64(t *testing.T) {
	p, _ := newTestPrompter("x\n-1001234\n")
	if got := p.Int64("Chat"); got != -1001234 {
		t.Errorf("got %d", got)
	}

	p, _ = newTestPrompter("")
	if got := p.Int64("Chat"); got != 0 {
		t.Errorf("end of input = %d, want 0", got)
	}
}

func TestPrompter_Duration(t *testing.T) {
	p, _ := newTestPrompter("soon\n90m\n")
	if got := p.Duration("TTL", time.Hour); got != 90*time.Minute {
		t.Errorf("got %v, want 90m", got)
	}
}

func TestPrompter_Optional(t *testing.T) {
	p, _ := newTestPrompter("\n  note \n")
	if got := p.Optional("Desc"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
	if got := p.Optional("Desc"); got != "note" {
		t.Errorf("got %q, want trimmed", got)
	}
}
