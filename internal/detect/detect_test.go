package detect

import (
	"reflect"
	"testing"

	"github.com/finopslabs/apinbox/internal/models"
)

func TestDetectPONumbersExplicitForms(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"dash", "Please quote PO-123456 on all correspondence", []string{"PO-123456"}},
		{"dash with spaces", "PO - 123456", []string{"PO-123456"}},
		{"unicode hyphen", "PO‐123456", []string{"PO-123456"}},
		{"en dash", "PO – 123456", []string{"PO-123456"}},
		{"colon", "PO: 123456", []string{"PO-123456"}},
		{"hash colon", "PO #: 123456", []string{"PO-123456"}},
		{"purchase order", "Purchase Order: 123456", []string{"PO-123456"}},
		{"purchase order with po prefix", "Purchase Order PO-123456", []string{"PO-123456"}},
		{"lowercase", "po-123456", []string{"PO-123456"}},
		{"bare six digits", "Your reference 654321 applies", []string{"PO-654321"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectPONumbers(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DetectPONumbers(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectPONumbersNoDoubleCount(t *testing.T) {
	// The bare-digit rule must not count the digits of an explicit
	// PO reference a second time.
	got := DetectPONumbers("Invoice for PO-123456, thank you")
	want := []string{"PO-123456"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DetectPONumbers = %v, want %v", got, want)
	}
}

func TestDetectPONumbersDedupAcrossForms(t *testing.T) {
	got := DetectPONumbers("PO: 123456 ... reference 123456 again")
	want := []string{"PO-123456"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DetectPONumbers = %v, want %v", got, want)
	}
}

func TestDetectPONumbersMultiple(t *testing.T) {
	got := DetectPONumbers("covers PO-111111 and PO-222222")
	want := []string{"PO-111111", "PO-222222"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DetectPONumbers = %v, want %v", got, want)
	}
}

func TestDetectPONumbersRejectsWrongLength(t *testing.T) {
	for _, text := range []string{"PO-12345", "PO-1234567", "ref 12345 only"} {
		if got := DetectPONumbers(text); got != nil {
			t.Errorf("DetectPONumbers(%q) = %v, want none", text, got)
		}
	}
}

func TestDetectPONumbersDeterministic(t *testing.T) {
	text := "PO-333333 then 444444 then Purchase Order: 555555"
	first := DetectPONumbers(text)
	for i := 0; i < 10; i++ {
		if got := DetectPONumbers(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: DetectPONumbers = %v, want %v", i, got, first)
		}
	}
}

func TestAllowBareMatchSuppressionWindow(t *testing.T) {
	// Marker followed by mixed whitespace and dashes still suppresses.
	text := "PO -— 123456"
	start := len(text) - 6
	if allowBareMatch(text, start) {
		t.Errorf("expected bare match at %d in %q to be suppressed", start, text)
	}

	text = "Account 123456"
	start = len(text) - 6
	if !allowBareMatch(text, start) {
		t.Errorf("expected bare match at %d in %q to be allowed", start, text)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  []string
		want string
	}{
		{"blank text", "   \n\t ", nil, models.POMatchNoTextLayer},
		{"no pos", "some invoice text", nil, models.POMatchMissingPO},
		{"single", "text", []string{"PO-123456"}, models.POMatchSinglePO},
		{"multiple", "text", []string{"PO-111111", "PO-222222"}, models.POMatchMultiplePOs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text, tt.pos)
			if got.MatchStatus != tt.want {
				t.Errorf("Classify status = %s, want %s", got.MatchStatus, tt.want)
			}
			if got.POCount != len(got.PONumbers) {
				t.Errorf("POCount %d does not match PONumbers %v", got.POCount, got.PONumbers)
			}
		})
	}
}

func TestFileMissing(t *testing.T) {
	got := FileMissing()
	if got.MatchStatus != models.POMatchFileMissing {
		t.Errorf("FileMissing status = %s, want %s", got.MatchStatus, models.POMatchFileMissing)
	}
	if got.POCount != 0 || got.PONumbers != nil {
		t.Errorf("FileMissing should carry no PO identifiers, got %+v", got)
	}
}

func TestNormalizePODigits(t *testing.T) {
	if got, err := NormalizePODigits("123456"); err != nil || got != "PO-123456" {
		t.Errorf("NormalizePODigits(123456) = %q, %v", got, err)
	}
	if _, err := NormalizePODigits("12345"); err == nil {
		t.Errorf("expected error for five digits")
	}
}
