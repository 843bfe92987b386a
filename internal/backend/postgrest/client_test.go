package postgrest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/preston-bernstein/fightpicks/internal/backend"
	"github.com/preston-bernstein/fightpicks/internal/domain/events"
	"github.com/preston-bernstein/fightpicks/internal/domain/picks"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(t *testing.T, rt roundTripperFunc) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:    "https://project.example.co/",
		AnonKey:    "anon",
		ServiceKey: "service",
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientValidatesConfig(t *testing.T) {
	if _, err := NewClient(Config{AnonKey: "anon"}); err == nil {
		t.Fatal("expected missing base url error")
	}
	if _, err := NewClient(Config{BaseURL: "https://x"}); err == nil {
		t.Fatal("expected missing anon key error")
	}
	client, err := NewClient(Config{BaseURL: "https://x", AnonKey: "anon"})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if client.serviceKey != "anon" {
		t.Fatalf("expected service key to fall back to anon key, got %s", client.serviceKey)
	}
	if client.Name() != "postgrest" {
		t.Fatalf("unexpected name %s", client.Name())
	}
}

func TestSelectBuildsFiltersAndUsesUserToken(t *testing.T) {
	var captured *http.Request
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		return respond(http.StatusOK, `[{"id":"f1","event_id":"e1","red_name":"A","blue_name":"B","scheduled_rounds":3,"bout_order":1}]`), nil
	})

	ctx := backend.WithAccessToken(context.Background(), "user-token")
	var fights []events.Fight
	err := client.Select(ctx, backend.Query{
		Table:   backend.TableFights,
		Filters: []backend.Filter{backend.Eq("event_id", "e1"), backend.In("id", []string{"f1", "f2"})},
		Order:   []backend.Order{{Column: "bout_order"}},
		Limit:   10,
	}, &fights)
	if err != nil {
		t.Fatalf("select: %v", err)
	}

	if captured.URL.Path != "/rest/v1/fights" {
		t.Fatalf("unexpected path %s", captured.URL.Path)
	}
	q := captured.URL.Query()
	if q.Get("event_id") != "eq.e1" || q.Get("id") != `in.("f1","f2")` {
		t.Fatalf("unexpected filters %s", captured.URL.RawQuery)
	}
	if q.Get("order") != "bout_order.asc" || q.Get("limit") != "10" || q.Get("select") != "*" {
		t.Fatalf("unexpected query %s", captured.URL.RawQuery)
	}
	if captured.Header.Get("Authorization") != "Bearer user-token" || captured.Header.Get("apikey") != "anon" {
		t.Fatalf("unexpected auth headers %v", captured.Header)
	}
	if len(fights) != 1 || fights[0].ScheduledRounds != 3 {
		t.Fatalf("unexpected fights %+v", fights)
	}
}

func TestSelectWithoutTokenUsesServiceKey(t *testing.T) {
	var auth string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		auth = req.Header.Get("Authorization")
		return respond(http.StatusOK, `[]`), nil
	})
	var evs []events.Event
	if err := client.Select(context.Background(), backend.Query{Table: backend.TableEvents}, &evs); err != nil {
		t.Fatalf("select: %v", err)
	}
	if auth != "Bearer service" {
		t.Fatalf("expected service key, got %s", auth)
	}
}

func TestSelectSingleMapsNoRows(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Accept") != mediaSingle {
			t.Fatalf("expected single-object accept header, got %s", req.Header.Get("Accept"))
		}
		if req.URL.Query().Get("invite_code") != `ilike.ab\_cd` {
			t.Fatalf("expected escaped ilike filter, got %s", req.URL.RawQuery)
		}
		return respond(http.StatusNotAcceptable, `{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned","details":"The result contains 0 rows","hint":null}`), nil
	})

	err := client.Select(context.Background(), backend.Query{
		Table:   backend.TableLeagues,
		Filters: []backend.Filter{backend.EqualFold("invite_code", "ab_cd")},
		Single:  true,
	}, &struct{}{})
	if !errors.Is(err, backend.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestUpsertSendsConflictKeyAndPreferHeader(t *testing.T) {
	var captured *http.Request
	var body string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
		return respond(http.StatusCreated, `{"id":"p1","user_id":"u","league_id":"l","event_id":"e","fight_id":"f","winner":"blue","method":"KO","round":2}`), nil
	})

	round := 2
	var saved picks.Pick
	err := client.Upsert(context.Background(), backend.TablePicks, picks.Pick{
		UserID: "u", LeagueID: "l", EventID: "e", FightID: "f", Winner: picks.WinnerBlue, Method: "KO", Round: &round,
	}, picks.ConflictKey, &saved)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if captured.Method != http.MethodPost || captured.URL.Path != "/rest/v1/picks" {
		t.Fatalf("unexpected request %s %s", captured.Method, captured.URL.Path)
	}
	if captured.URL.Query().Get("on_conflict") != "user_id,league_id,fight_id" {
		t.Fatalf("unexpected on_conflict %s", captured.URL.RawQuery)
	}
	if captured.Header.Get("Prefer") != preferUpsert {
		t.Fatalf("unexpected prefer header %s", captured.Header.Get("Prefer"))
	}
	if !strings.Contains(body, `"winner":"blue"`) || !strings.Contains(body, `"round":2`) || strings.Contains(body, `"id"`) {
		t.Fatalf("unexpected body %s", body)
	}
	if saved.ID != "p1" || saved.RoundValue() != 2 {
		t.Fatalf("unexpected saved pick %+v", saved)
	}
}

func TestInsertSurfacesUniqueViolation(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusConflict, `{"code":"23505","message":"duplicate key value violates unique constraint \"league_members_pkey\"","details":"Key (league_id, user_id) already exists.","hint":null}`), nil
	})

	err := client.Insert(context.Background(), backend.TableMembers, map[string]string{"league_id": "l", "user_id": "u"}, nil)
	if !backend.IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	bErr, _ := backend.AsError(err)
	if bErr.Status != http.StatusConflict || bErr.Details == "" {
		t.Fatalf("unexpected error %+v", bErr)
	}
}

func TestRPCEnumValues(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/rest/v1/rpc/enum_values" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		raw, _ := io.ReadAll(req.Body)
		if string(raw) != `{"enum_name":"method"}` {
			t.Fatalf("unexpected body %s", raw)
		}
		return respond(http.StatusOK, `["KO","SUB","DEC"]`), nil
	})

	var labels []string
	if err := client.RPC(context.Background(), backend.RPCEnumValues, map[string]any{"enum_name": "method"}, &labels); err != nil {
		t.Fatalf("rpc: %v", err)
	}
	if strings.Join(labels, ",") != "KO,SUB,DEC" {
		t.Fatalf("unexpected labels %v", labels)
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusBadGateway, "upstream down"), nil
	})
	err := client.RPC(context.Background(), backend.RPCEnumValues, nil, nil)
	bErr, ok := backend.AsError(err)
	if !ok || bErr.Status != http.StatusBadGateway || bErr.Message != "upstream down" {
		t.Fatalf("unexpected error %v", err)
	}
	if backend.IsRejection(err) {
		t.Fatal("5xx without a code should not be a rejection")
	}
}

func TestTransportErrorPassesThrough(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, boom
	})
	if err := client.Select(context.Background(), backend.Query{Table: backend.TableEvents}, nil); !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestQueryParamsRejectsBadInFilter(t *testing.T) {
	_, err := queryParams(backend.Query{Filters: []backend.Filter{{Column: "id", Op: backend.OpIn, Value: 3}}})
	if err == nil {
		t.Fatal("expected error for non-slice in filter")
	}
	_, err = queryParams(backend.Query{Filters: []backend.Filter{{Column: "id", Op: "like"}}})
	if err == nil {
		t.Fatal("expected error for unsupported op")
	}
}
