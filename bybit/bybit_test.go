package bybit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/etnz/collector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey        = "key-1234"
	testSecret     = "secret-5678"
	testRecvWindow = 5000
)

// newTestServer recomputes the v5 signature from the X-BAPI headers and the
// query string. Failures answer with retCode in a 200 body, the way the real
// gateway does.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timestamp := r.Header.Get("X-BAPI-TIMESTAMP")
		recvWindow := r.Header.Get("X-BAPI-RECV-WINDOW")
		if r.Header.Get("X-BAPI-API-KEY") != testKey {
			io.WriteString(w, `{"retCode":10003,"retMsg":"API key is invalid."}`)
			return
		}
		mac := hmac.New(sha256.New, []byte(testSecret))
		mac.Write([]byte(timestamp + testKey + recvWindow + r.URL.Query().Encode()))
		if r.Header.Get("X-BAPI-SIGN") != hex.EncodeToString(mac.Sum(nil)) {
			io.WriteString(w, `{"retCode":10004,"retMsg":"error sign!"}`)
			return
		}
		switch r.URL.Path {
		case pathWalletBalance:
			if got := r.URL.Query().Get("accountType"); got != "UNIFIED" {
				t.Errorf("wallet-balance accountType = %q, want UNIFIED", got)
			}
			io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"list":[
				{"accountType":"UNIFIED","coin":[
					{"coin":"USDT","walletBalance":"75.5","locked":"2.5"},
					{"coin":"DOGE","walletBalance":"0","locked":"0"}]}]}}`)
		case pathTransferBalance:
			if got := r.URL.Query().Get("accountType"); got != "FUND" {
				t.Errorf("transfer balance accountType = %q, want FUND", got)
			}
			io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"balance":[
				{"coin":"USDC","transferBalance":"12.25","walletBalance":"12.25"}]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAdapter(t *testing.T, srv *httptest.Server, secret string) *Adapter {
	t.Helper()
	a, err := New(collector.BybitConfig{
		APIKey:     testKey,
		APISecret:  secret,
		RecvWindow: testRecvWindow,
		BaseURL:    srv.URL,
	})
	require.NoError(t, err)
	a.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return a
}

func TestFetchBalances(t *testing.T) {
	a := newTestAdapter(t, newTestServer(t), testSecret)

	balances, err := a.FetchBalances(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, balances, 2)

	unified := collector.Balance{
		Broker:    collector.Bybit,
		AccountID: "unified",
		Cash: []collector.CashEntry{
			{Amount: collector.M(75.5, "USDT"), Kind: collector.Liquid},
			{Amount: collector.M(2.5, "USDT"), Kind: collector.Locked},
		},
	}
	funding := collector.Balance{
		Broker:    collector.Bybit,
		AccountID: "funding",
		Cash: []collector.CashEntry{
			{Amount: collector.M(12.25, "USDC"), Kind: collector.Liquid},
		},
	}
	assert.True(t, balances[0].Equal(unified), "unified balance mismatch:\ngot  %+v\nwant %+v", balances[0], unified)
	assert.True(t, balances[1].Equal(funding), "funding balance mismatch:\ngot  %+v\nwant %+v", balances[1], funding)
}

// Some gateways report a unified coin only under equity, and a funding coin
// only under balance. Neither amount may be dropped.
func TestFetchBalances_AmountFieldFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case pathWalletBalance:
			io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"list":[
				{"accountType":"UNIFIED","coin":[{"coin":"USDT","equity":"42.5"}]}]}}`)
		case pathTransferBalance:
			io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"balance":[
				{"coin":"USDC","balance":"3.75"}]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	a := newTestAdapter(t, srv, testSecret)

	balances, err := a.FetchBalances(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, balances, 2)

	unified := collector.Balance{
		Broker:    collector.Bybit,
		AccountID: "unified",
		Cash:      []collector.CashEntry{{Amount: collector.M(42.5, "USDT"), Kind: collector.Liquid}},
	}
	funding := collector.Balance{
		Broker:    collector.Bybit,
		AccountID: "funding",
		Cash:      []collector.CashEntry{{Amount: collector.M(3.75, "USDC"), Kind: collector.Liquid}},
	}
	assert.True(t, balances[0].Equal(unified), "unified balance mismatch:\ngot  %+v\nwant %+v", balances[0], unified)
	assert.True(t, balances[1].Equal(funding), "funding balance mismatch:\ngot  %+v\nwant %+v", balances[1], funding)
}

func TestFetchBalances_BadSignature(t *testing.T) {
	a := newTestAdapter(t, newTestServer(t), "wrong-secret")

	_, err := a.FetchBalances(context.Background(), nil)
	assert.True(t, collector.IsAuth(err), "error = %v, want an auth error", err)
}

func TestEnvelope_ErrorMapping(t *testing.T) {
	testCases := []struct {
		retCode int
		check   func(error) bool
		name    string
	}{
		{retCode: retInvalidKey, check: collector.IsAuth, name: "auth"},
		{retCode: retInvalidSign, check: collector.IsAuth, name: "auth"},
		{retCode: retTooManyVisit, check: collector.IsRateLimited, name: "rate limit"},
		{retCode: 10016, check: collector.IsProtocol, name: "protocol"},
	}
	for _, tc := range testCases {
		e := envelope{RetCode: tc.retCode, RetMsg: "boom"}
		err := e.err("test")
		assert.True(t, tc.check(err), "retCode %d: error = %v, want a %s error", tc.retCode, err, tc.name)
	}
	assert.NoError(t, envelope{RetCode: retOK}.err("test"))
}

func TestFetchBalances_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"retCode":10006,"retMsg":"Too many visits."}`)
	}))
	t.Cleanup(srv.Close)
	a := newTestAdapter(t, srv, testSecret)

	_, err := a.FetchBalances(context.Background(), nil)
	assert.True(t, collector.IsRateLimited(err), "error = %v, want a rate limit error", err)
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(collector.BybitConfig{APISecret: testSecret})
	assert.True(t, collector.IsConfig(err), "error = %v, want a configuration error", err)
}
