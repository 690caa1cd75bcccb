package keymap

import "testing"

func TestNewLayerValid(t *testing.T) {
	l, err := NewLayer("test", []Binding{
		{Keys: "C-x C-s", Command: "file.save"},
		{Keys: "C-x C-c", Command: "editor.quit"},
		{Keys: "g g", Command: "cursor.bufferStart"},
	})
	if err != nil {
		t.Fatalf("NewLayer error = %v", err)
	}
	if l.Len() != 3 {
		t.Errorf("Len = %d, want 3", l.Len())
	}
	if l.Name() != "test" {
		t.Errorf("Name = %q", l.Name())
	}
}

func TestNewLayerErrors(t *testing.T) {
	tests := []struct {
		name     string
		bindings []Binding
	}{
		{
			"duplicate sequence",
			[]Binding{
				{Keys: "C-s", Command: "file.save"},
				{Keys: "C-s", Command: "search.forward"},
			},
		},
		{
			"terminal prefix of terminal",
			[]Binding{
				{Keys: "C-x", Command: "noop"},
				{Keys: "C-x C-s", Command: "file.save"},
			},
		},
		{
			"terminal extends terminal",
			[]Binding{
				{Keys: "C-x C-s", Command: "file.save"},
				{Keys: "C-x", Command: "noop"},
			},
		},
		{
			"invalid key spec",
			[]Binding{{Keys: "Q-x", Command: "noop"}},
		},
		{
			"unknown command",
			[]Binding{{Keys: "C-s", Command: "does.notExist"}},
		},
		{
			"empty keys",
			[]Binding{{Keys: "", Command: "noop"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLayer("bad", tt.bindings); err == nil {
				t.Error("expected configuration error")
			}
		})
	}
}

func TestDefaultKeymap(t *testing.T) {
	km := Default()
	if km.LayerCount() != 2 {
		t.Fatalf("LayerCount = %d, want 2", km.LayerCount())
	}
	if km.MaxSequenceLen() != 2 {
		t.Errorf("MaxSequenceLen = %d, want 2", km.MaxSequenceLen())
	}
}
