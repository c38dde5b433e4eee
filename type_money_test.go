package collector

import (
	"testing"
)

func TestParseMoney(t *testing.T) {
	testCases := []struct {
		name     string
		amount   string
		currency string
		want     Money
		wantErr  bool
	}{
		{name: "plain", amount: "100000.00", currency: "RUB", want: M(100000, "RUB")},
		{name: "crypto precision", amount: "50.123456", currency: "USDT", want: M(50.123456, "USDT")},
		{name: "lowercase code is normalized", amount: "1", currency: "usd", want: M(1, "USD")},
		{name: "negative amount", amount: "-3.5", currency: "EUR", want: M(-3.5, "EUR")},
		{name: "empty currency", amount: "10", currency: "", wantErr: true},
		{name: "blank currency", amount: "10", currency: "   ", wantErr: true},
		{name: "not a decimal", amount: "10,5", currency: "EUR", wantErr: true},
		{name: "empty amount", amount: "", currency: "EUR", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseMoney(tc.amount, tc.currency)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseMoney(%q, %q) error = %v, wantErr %v", tc.amount, tc.currency, err, tc.wantErr)
			}
			if !tc.wantErr && !got.Equal(tc.want) {
				t.Errorf("ParseMoney(%q, %q) = %v, want %v", tc.amount, tc.currency, got, tc.want)
			}
		})
	}
}

func TestMoney_AddWeakCurrency(t *testing.T) {
	got := Money{}.Add(M(10, "USD"))
	if !got.Equal(M(10, "USD")) {
		t.Errorf("zero Money + 10 USD = %v, want 10 USD", got)
	}
}

func TestMoney_AddMismatchedCurrencyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("adding USD to EUR did not panic")
		}
	}()
	M(1, "USD").Add(M(1, "EUR"))
}

func TestMoney_Mul(t *testing.T) {
	got := M(250, "RUB").Mul(Q(10))
	if !got.Equal(M(2500, "RUB")) {
		t.Errorf("250 RUB * 10 = %v, want 2500 RUB", got)
	}
}
