package collector

import "testing"

func TestParseBroker(t *testing.T) {
	testCases := []struct {
		in      string
		want    Broker
		wantErr bool
	}{
		{in: "tinkoff", want: Tinkoff},
		{in: "binance", want: Binance},
		{in: "bybit", want: Bybit},
		{in: "ibkr", want: IBGateway},
		{in: "Tinkoff", wantErr: true},
		{in: "", wantErr: true},
		{in: "kraken", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := ParseBroker(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseBroker(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if tc.wantErr {
			continue
		}
		if got != tc.want {
			t.Errorf("ParseBroker(%q) = %v, want %v", tc.in, got, tc.want)
		}
		if round := got.String(); round != tc.in {
			t.Errorf("%v.String() = %q, want %q", got, round, tc.in)
		}
	}
}

func TestBalance_Equal(t *testing.T) {
	value := M(2500, "RUB")
	balance := func() Balance {
		return Balance{
			Broker:    Tinkoff,
			AccountID: "acc-1",
			Cash:      []CashEntry{{Amount: M(100000, "RUB"), Kind: Liquid}},
			Positions: []Position{{Symbol: "SBER", Quantity: Q(10), Currency: "RUB", MarketValue: &value}},
		}
	}

	if !balance().Equal(balance()) {
		t.Error("identical balances are not Equal")
	}

	other := balance()
	other.Cash[0].Kind = Locked
	if balance().Equal(other) {
		t.Error("balances with different cash kinds are Equal")
	}

	other = balance()
	other.Positions[0].MarketValue = nil
	if balance().Equal(other) {
		t.Error("balances with and without market value are Equal")
	}
}
