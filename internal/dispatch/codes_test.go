package dispatch

import "testing"

func TestParseCode(t *testing.T) {
	tests := []struct {
		in      string
		want    Code
		wantErr bool
	}{
		{"a", CodePowerOn, false},
		{"B", CodePowerOff, false},
		{"toggle-a", CodeToggleA, false},
		{" Toggle-B ", CodeToggleB, false},
		{"power-on", CodePowerOn, false},
		{"e", 0, true},
		{"", 0, true},
		{"power", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCodeString(t *testing.T) {
	if got := CodePowerOn.String(); got != "a (power-on)" {
		t.Errorf("String() = %q", got)
	}
	if got := Code('z').String(); got != "0x7a (unknown)" {
		t.Errorf("String() = %q", got)
	}
	for _, c := range Codes {
		if !c.Valid() || c.Name() == "" {
			t.Errorf("code %v should be valid and named", c)
		}
	}
}
