package key

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		spec string
		want Event
	}{
		{"a", NewRuneEvent('a', ModNone)},
		{"A", NewRuneEvent('A', ModShift)},
		{"1", NewRuneEvent('1', ModNone)},
		{"@", NewRuneEvent('@', ModNone)},
		{"Enter", NewSpecialEvent(KeyEnter, ModNone)},
		{"esc", NewSpecialEvent(KeyEscape, ModNone)},
		{"Space", NewSpecialEvent(KeySpace, ModNone)},
		{"F5", NewSpecialEvent(KeyF5, ModNone)},
		{"C-s", NewRuneEvent('s', ModCtrl)},
		{"C-S", NewRuneEvent('s', ModCtrl)},
		{"C-S-p", NewRuneEvent('p', ModCtrl|ModShift)},
		{"A-Left", NewSpecialEvent(KeyLeft, ModAlt)},
		{"Ctrl+S", NewRuneEvent('s', ModCtrl)},
		{"Ctrl+Shift+P", NewRuneEvent('p', ModCtrl|ModShift)},
		{"Alt+F4", NewSpecialEvent(KeyF4, ModAlt)},
		{"<C-s>", NewRuneEvent('s', ModCtrl)},
		{"<CR>", NewSpecialEvent(KeyEnter, ModNone)},
		{"<Esc>", NewSpecialEvent(KeyEscape, ModNone)},
		{"<C-x>", NewRuneEvent('x', ModCtrl)},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := Parse(tt.spec)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.spec, err)
			}
			if !got.Equals(tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{"", "  ", "C-", "Q-x", "NotAKey", "Bogus+x", "<>"}

	for _, spec := range tests {
		if _, err := Parse(spec); err == nil {
			t.Errorf("Parse(%q) expected error", spec)
		}
	}
}

func TestParseSequence(t *testing.T) {
	seq, err := ParseSequence("C-x C-s")
	if err != nil {
		t.Fatalf("ParseSequence error = %v", err)
	}
	if seq.Len() != 2 {
		t.Fatalf("Len = %d, want 2", seq.Len())
	}
	if !seq.Events[0].Equals(NewRuneEvent('x', ModCtrl)) {
		t.Errorf("first event = %v", seq.Events[0])
	}
	if !seq.Events[1].Equals(NewRuneEvent('s', ModCtrl)) {
		t.Errorf("second event = %v", seq.Events[1])
	}
}

func TestParseSequenceSingle(t *testing.T) {
	seq, err := ParseSequence("g")
	if err != nil {
		t.Fatalf("ParseSequence error = %v", err)
	}
	if seq.Len() != 1 {
		t.Fatalf("Len = %d, want 1", seq.Len())
	}
}

func TestParseSequenceEmpty(t *testing.T) {
	if _, err := ParseSequence("   "); err == nil {
		t.Error("expected error for blank sequence")
	}
}
