package value

import "testing"

func TestMoneyToMinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1,796.25", 179625},
		{"16,618.44", 1661844},
		{"500", 50000},
		{"10.5", 1050},
		{"0.99", 99},
		{"£120.00", 12000},
		{"10.999", 1099}, // truncated, never rounded
	}

	for _, tt := range tests {
		got, err := MoneyToMinorUnits(tt.in)
		if err != nil {
			t.Errorf("MoneyToMinorUnits(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("MoneyToMinorUnits(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if _, err := MoneyToMinorUnits(""); err == nil {
		t.Errorf("expected error for blank amount")
	}
	if _, err := MoneyToMinorUnits("abc"); err == nil {
		t.Errorf("expected error for non-numeric amount")
	}
}

func TestExtractExplicitBlock(t *testing.T) {
	text := "Invoice 42\nNet Amount: 100.00\nVAT Amount: 20.00\nTotal Amount: 120.00\n"
	got := Extract(text)

	if got.Rule != RuleExplicitBlock {
		t.Fatalf("rule = %s, want %s", got.Rule, RuleExplicitBlock)
	}
	if got.Net == nil || *got.Net != 10000 {
		t.Errorf("net = %v, want 10000", got.Net)
	}
	if got.Vat == nil || *got.Vat != 2000 {
		t.Errorf("vat = %v, want 2000", got.Vat)
	}
	if got.Gross == nil || *got.Gross != 12000 {
		t.Errorf("gross = %v, want 12000", got.Gross)
	}
}

func TestExtractExplicitBlockDueFallback(t *testing.T) {
	text := "Net Amount 250.00\nVAT Amount 50.00\nDue Amount £300.00"
	got := Extract(text)

	if got.Rule != RuleExplicitBlock {
		t.Fatalf("rule = %s, want %s", got.Rule, RuleExplicitBlock)
	}
	if got.Gross == nil || *got.Gross != 30000 {
		t.Errorf("gross = %v, want 30000", got.Gross)
	}
}

func TestExtractSingleTotalLine(t *testing.T) {
	got := Extract("Services rendered\nTotal £16,618.44\n")

	if got.Rule != RuleSingleTotal {
		t.Fatalf("rule = %s, want %s", got.Rule, RuleSingleTotal)
	}
	if got.Gross == nil || *got.Gross != 1661844 {
		t.Errorf("gross = %v, want 1661844", got.Gross)
	}
	if got.Net != nil || got.Vat != nil {
		t.Errorf("single total must not set net/vat, got net=%v vat=%v", got.Net, got.Vat)
	}
}

func TestExtractLabeledTotal(t *testing.T) {
	got := Extract("Amount Due - 250.00")

	if got.Rule != RuleLabeledTotal {
		t.Fatalf("rule = %s, want %s", got.Rule, RuleLabeledTotal)
	}
	if got.Gross == nil || *got.Gross != 25000 {
		t.Errorf("gross = %v, want 25000", got.Gross)
	}
}

func TestExtractIntegerTotalIgnored(t *testing.T) {
	// A bare integer after a total label is likely an identifier, not an
	// amount. Decimals are required for total lines.
	got := Extract("Invoice total: 123456")

	if got.Rule != RuleNotFound {
		t.Fatalf("rule = %s, want %s", got.Rule, RuleNotFound)
	}
	if got.Net != nil || got.Vat != nil || got.Gross != nil {
		t.Errorf("expected no amounts, got %+v", got)
	}
}

func TestExtractNoText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		got := Extract(text)
		if got.Rule != RuleNoText {
			t.Errorf("Extract(%q) rule = %s, want %s", text, got.Rule, RuleNoText)
		}
	}
}
