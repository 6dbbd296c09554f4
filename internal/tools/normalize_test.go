package tools

import "testing"

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1990年7月22日", "1990-07-22", true},
		{"1990年12月3號", "1990-12-03", true},
		{"1990-07-22", "1990-07-22", true},
		{"1990/7/22", "1990-07-22", true},
		{"1990.07.22", "1990-07-22", true},
		{"我是1985年3月5日生的", "1985-03-05", true},
		{"7月22日", "", false},
		{"1990年13月1日", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeDate(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizeDate(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"14:15", "14:15", true},
		{"8:30", "08:30", true},
		{"早上8點30分", "08:30", true},
		{"下午2點15分", "14:15", true},
		{"晚上11點", "23:00", true},
		{"中午12點半", "12:30", true},
		{"凌晨1點", "01:00", true},
		{"下午2:15", "14:15", true},
		{"傍晚6點", "18:00", true},
		{"8點半", "08:30", true},
		{"亥時", "", false},
		{"25:00", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeTime(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizeTime(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeGender(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"男", "male", true},
		{"男生", "male", true},
		{"女生", "female", true},
		{"Female", "female", true},
		{"M", "male", true},
		{"其他", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeGender(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizeGender(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
