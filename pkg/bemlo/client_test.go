package bemlo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vacwatch/vacwatch/pkg/auth"
)

func makeJWT(exp int64) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"sub":"user-1","exp":%d}`, exp)))
	return header + "." + payload + ".signature"
}

// testBackend fakes the identity endpoints plus the GraphQL endpoint.
type testBackend struct {
	*httptest.Server
	refreshes atomic.Int64
	gqlCalls  atomic.Int64

	// graphql decides the response for each GraphQL call, by call number
	// starting at 1.
	graphql func(call int64, w http.ResponseWriter, r *http.Request)
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	tb := &testBackend{}
	exp := time.Now().Add(time.Hour).Unix()

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(auth.HeaderAccessToken, makeJWT(exp))
		w.Header().Set(auth.HeaderRefreshToken, "refresh-1")
		w.Write([]byte(`{"status":"OK"}`))
	})
	mux.HandleFunc("/auth/session/refresh", func(w http.ResponseWriter, r *http.Request) {
		tb.refreshes.Add(1)
		w.Header().Set(auth.HeaderAccessToken, makeJWT(exp))
		w.Write([]byte(`{"status":"OK"}`))
	})
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		tb.graphql(tb.gqlCalls.Add(1), w, r)
	})

	tb.Server = httptest.NewServer(mux)
	t.Cleanup(tb.Server.Close)
	return tb
}

func newTestClient(tb *testBackend) *Client {
	session := auth.NewSession("user@example.com", "hunter2")
	session.SignInURL = tb.URL + "/auth/signin"
	session.RefreshURL = tb.URL + "/auth/session/refresh"

	c := NewClient(session)
	c.GraphQLURL = tb.URL + "/graphql"
	return c
}

func TestExecuteReturnsData(t *testing.T) {
	tb := newTestBackend(t)
	tb.graphql = func(_ int64, w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			t.Error("expected bearer token on GraphQL request")
		}
		if r.Header.Get("st-auth-mode") != "header" {
			t.Error("expected st-auth-mode header")
		}
		w.Write([]byte(`{"data":{"answer":42}}`))
	}

	c := newTestClient(tb)
	data, err := c.Execute(context.Background(), "Test", "query Test { answer }", nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if got := data.Get("answer").Int(); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestExecuteRetriesOnceOn401(t *testing.T) {
	tb := newTestBackend(t)
	tb.graphql = func(call int64, w http.ResponseWriter, r *http.Request) {
		if call == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":{"ok":true}}`))
	}

	c := newTestClient(tb)
	data, err := c.Execute(context.Background(), "Test", "query Test { ok }", nil)
	if err != nil {
		t.Fatalf("expected the retry to succeed, got: %v", err)
	}
	if !data.Get("ok").Bool() {
		t.Error("expected the retried payload")
	}
	if got := tb.refreshes.Load(); got != 1 {
		t.Errorf("expected exactly one refresh, got %d", got)
	}
	if got := tb.gqlCalls.Load(); got != 2 {
		t.Errorf("expected exactly two GraphQL calls, got %d", got)
	}
}

func TestExecuteFailsOnSecond401(t *testing.T) {
	tb := newTestBackend(t)
	tb.graphql = func(_ int64, w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}

	c := newTestClient(tb)
	_, err := c.Execute(context.Background(), "Test", "query Test { ok }", nil)
	var authErr *auth.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if got := tb.gqlCalls.Load(); got != 2 {
		t.Errorf("expected exactly two GraphQL calls (no retry loop), got %d", got)
	}
	if got := tb.refreshes.Load(); got != 1 {
		t.Errorf("expected exactly one refresh, got %d", got)
	}
}

func TestExecuteTransportError(t *testing.T) {
	tb := newTestBackend(t)
	tb.graphql = func(_ int64, w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}

	c := newTestClient(tb)
	_, err := c.Execute(context.Background(), "Test", "query Test { ok }", nil)
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if tErr.Status != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", tErr.Status)
	}
	if got := tb.gqlCalls.Load(); got != 1 {
		t.Errorf("expected no retry on transport failure, got %d calls", got)
	}
}

func TestExecuteRemoteQueryError(t *testing.T) {
	tb := newTestBackend(t)
	tb.graphql = func(_ int64, w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"field does not exist"}]}`))
	}

	c := newTestClient(tb)
	_, err := c.Execute(context.Background(), "Test", "query Test { nope }", nil)
	var qErr *RemoteQueryError
	if !errors.As(err, &qErr) {
		t.Fatalf("expected RemoteQueryError, got %v", err)
	}
	if len(qErr.Messages) != 1 || qErr.Messages[0] != "field does not exist" {
		t.Errorf("unexpected messages: %v", qErr.Messages)
	}
}

func TestFetchDetailNotFound(t *testing.T) {
	tb := newTestBackend(t)
	tb.graphql = func(_ int64, w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"vacancy":null}}`))
	}

	c := newTestClient(tb)
	if _, err := c.FetchDetail(context.Background(), "missing-id"); err == nil {
		t.Fatal("expected an error for a null vacancy")
	}
}

func TestFetchDetailParsesChildren(t *testing.T) {
	tb := newTestBackend(t)
	tb.graphql = func(_ int64, w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"vacancy":{
			"id":"v1","title":"Night nurse","profession":"NURSE",
			"tender":{
				"id":"t1","fillRate":0.4,
				"shifts":[{"id":"s1","startsAt":100,"endsAt":200,"shiftType":"NIGHT","isUrgent":true}],
				"requirements":[{"id":"r1","category":"LICENSE","description":"Valid Swedish nursing license","isMandatory":true}],
				"priceRows":[{"id":"p1","priceType":"HOURLY","amount":650,"currency":"SEK"}]
			}
		}}}`))
	}

	c := newTestClient(tb)
	detail, err := c.FetchDetail(context.Background(), "v1")
	if err != nil {
		t.Fatalf("detail fetch failed: %v", err)
	}
	if detail.Vacancy.ID != "v1" {
		t.Errorf("unexpected id %q", detail.Vacancy.ID)
	}
	if len(detail.Shifts) != 1 || !detail.Shifts[0].IsUrgent {
		t.Errorf("unexpected shifts: %+v", detail.Shifts)
	}
	if len(detail.Requirements) != 1 || !detail.Requirements[0].IsMandatory {
		t.Errorf("unexpected requirements: %+v", detail.Requirements)
	}
	if len(detail.Pricing) != 1 || detail.Pricing[0].Amount != 650 {
		t.Errorf("unexpected pricing: %+v", detail.Pricing)
	}
}
