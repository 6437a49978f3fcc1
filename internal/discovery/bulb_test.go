package discovery

import (
	"strings"
	"testing"
)

func TestBulbInfo_IDString(t *testing.T) {
	tests := []struct {
		id   uint64
		want string
	}{
		{0, "0x0000000000000000"},
		{0xb1d9e0, "0x0000000000b1d9e0"},
		{0x15243f, "0x000000000015243f"},
	}

	for _, tt := range tests {
		info := BulbInfo{ID: tt.id}
		if got := info.IDString(); got != tt.want {
			t.Errorf("IDString(%#x) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestBulbInfo_Location(t *testing.T) {
	info := DefaultBulbInfo()

	if got, want := info.Location("192.168.1.239"), "yeelight://192.168.1.239:55443"; got != want {
		t.Errorf("Location() = %q, want %q", got, want)
	}
	if got, want := info.Location("fe80::1"), "yeelight://[fe80::1]:55443"; got != want {
		t.Errorf("Location() = %q, want %q", got, want)
	}
}

func TestBulbInfo_TXT(t *testing.T) {
	info := DefaultBulbInfo()
	txt := info.TXT()

	if len(txt) != 5 {
		t.Fatalf("TXT() has %d records, want 5", len(txt))
	}
	if txt[0] != "id=0x0000000000b1d9e0" {
		t.Errorf("TXT()[0] = %q", txt[0])
	}
	if !strings.Contains(txt[4], "set_power") || !strings.Contains(txt[4], "toggle") {
		t.Errorf("support record = %q, want set_power and toggle", txt[4])
	}
}

func TestGateway_String(t *testing.T) {
	gw := &Gateway{ID: "0x01", Name: "hall", Model: "mono", IP: "10.0.0.2", Port: 55443}

	if got, want := gw.String(), "Bulb hall (0x01, mono) at 10.0.0.2:55443"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := gw.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata() on nil map = %q, want empty", got)
	}
}
