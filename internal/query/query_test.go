package query

import "testing"

func TestAccept(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "", wantOK: false},
		{in: "   ", wantOK: false},
		{in: "\t\n", wantOK: false},
		{in: "+TSRA", want: "+TSRA", wantOK: true},
		{in: "  heavy rain ", want: "  heavy rain ", wantOK: true},
	}

	for _, tt := range tests {
		got, ok := Accept(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Accept(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestExamplesAreCopies(t *testing.T) {
	ex := Examples()
	if len(ex) != 3 || ex[0].Query != "FG" {
		t.Fatalf("Examples() = %+v", ex)
	}
	ex[0].Query = "changed"
	if Examples()[0].Query != "FG" {
		t.Fatal("Examples() exposes internal slice")
	}
}
