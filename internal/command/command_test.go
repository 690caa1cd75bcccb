package command

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"cursor.left", CursorLeft},
		{"file.save", Save},
		{"editor.quit", Quit},
		{"lsp.hover", LSPHover},
		{"noop", Noop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse(tt.name)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.name, err)
			}
			if cmd.Kind != tt.want {
				t.Errorf("Parse(%q).Kind = %v, want %v", tt.name, cmd.Kind, tt.want)
			}
		})
	}
}

func TestParseUnknown(t *testing.T) {
	if _, err := Parse("cursor.teleport"); err == nil {
		t.Error("expected error for unknown command name")
	}
}

func TestRoundTrip(t *testing.T) {
	for kind, name := range kindNames {
		cmd, err := Parse(name)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", name, err)
		}
		if cmd.Kind != kind {
			t.Errorf("Parse(%q).Kind = %v, want %v", name, cmd.Kind, kind)
		}
	}
}

func TestInsert(t *testing.T) {
	cmd := Insert('x')
	if cmd.Kind != InsertChar || cmd.Rune != 'x' {
		t.Errorf("Insert('x') = %+v", cmd)
	}
	if cmd.IsNoop() {
		t.Error("InsertChar should not be Noop")
	}
}
