package emergency

import "testing"

func TestParseAlertType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want AlertType
		ok   bool
	}{
		{"empty defaults to medical", "", TypeMedical, true},
		{"medical", "medical", TypeMedical, true},
		{"accident", "accident", TypeAccident, true},
		{"fire", "fire", TypeFire, true},
		{"police", "police", TypePolice, true},
		{"other", "other", TypeOther, true},
		{"mixed case", "Fire", TypeFire, true},
		{"surrounding whitespace", "  police  ", TypePolice, true},
		{"unknown", "earthquake", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseAlertType(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseAlertType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseContact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Contact
		ok   bool
	}{
		{"name and phone", "Jane Doe: +15551234567", Contact{Name: "Jane Doe", Phone: "+15551234567"}, true},
		{"bare phone", "+15551234567", Contact{Name: "Emergency Contact", Phone: "+15551234567"}, true},
		{"extra whitespace", "  Bob :  555-0100 ", Contact{Name: "Bob", Phone: "555-0100"}, true},
		{"empty", "", Contact{}, false},
		{"whitespace only", "   ", Contact{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseContact(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseContact(%q) = (%+v, %v), want (%+v, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
