package collector

import (
	"reflect"
	"testing"
)

func TestLoadSettings(t *testing.T) {
	t.Setenv("TINKOFF_TOKEN", "t-token")
	t.Setenv("TINKOFF_ACCOUNT_IDS", "acc-1, acc-2 ,")
	t.Setenv("BINANCE_API_KEY", "b-key")
	t.Setenv("BINANCE_API_SECRET", "b-secret")
	t.Setenv("BYBIT_RECV_WINDOW", "7000")
	t.Setenv("IB_GATEWAY_HOST", "127.0.0.1")
	t.Setenv("IB_GATEWAY_PORT", "4002")

	settings := LoadSettings()

	if !settings.Tinkoff.IsConfigured() {
		t.Error("Tinkoff is not configured despite a token being set")
	}
	if want := []string{"acc-1", "acc-2"}; !reflect.DeepEqual(settings.Tinkoff.AccountIDs, want) {
		t.Errorf("Tinkoff.AccountIDs = %v, want %v", settings.Tinkoff.AccountIDs, want)
	}
	if settings.Tinkoff.BaseURL == "" {
		t.Error("Tinkoff.BaseURL default is empty")
	}
	if !settings.Binance.IsConfigured() {
		t.Error("Binance is not configured despite key and secret being set")
	}
	if settings.Bybit.IsConfigured() {
		t.Error("Bybit is configured without credentials")
	}
	if got, want := settings.Bybit.RecvWindow, 7000; got != want {
		t.Errorf("Bybit.RecvWindow = %d, want %d", got, want)
	}
	if !settings.IBGateway.IsConfigured() {
		t.Error("IBGateway is not configured despite host and port being set")
	}
	if got, want := settings.IBGateway.ClientID, "psc"; got != want {
		t.Errorf("IBGateway.ClientID default = %q, want %q", got, want)
	}
}

func TestSplitIDs(t *testing.T) {
	testCases := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "   ", want: nil},
		{in: "a", want: []string{"a"}},
		{in: "a,b", want: []string{"a", "b"}},
		{in: " a , b ,, ", want: []string{"a", "b"}},
	}
	for _, tc := range testCases {
		if got := splitIDs(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitIDs(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
