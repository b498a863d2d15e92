package stations

import "testing"

func TestFind(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"北京", "BJP"},
		{"上海虹桥", "AOH"},
		{"广州南", "IZQ"},
	}

	for _, tt := range tests {
		got, err := Find(tt.name)
		if err != nil {
			t.Errorf("Find(%s) failed: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Find(%s) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestFindPassesThroughTelecodes(t *testing.T) {
	got, err := Find("XXY")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got != "XXY" {
		t.Errorf("Expected telecode passthrough, got %s", got)
	}
}

func TestFindUnknownStation(t *testing.T) {
	if _, err := Find("不存在站"); err == nil {
		t.Error("Expected error for unknown station")
	}
	if _, err := Find("bjp"); err == nil {
		t.Error("Expected error for lowercase non-telecode")
	}
}
