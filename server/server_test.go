package server_test

import (
	"go/types"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nasa-jpl/hikcam/server"
)

func TestHumanPayloadShapes(t *testing.T) {
	cases := []struct {
		hp       server.HumanPayload
		expected string
	}{
		{server.HumanPayload{T: types.Bool, Bool: true}, `{"bool":true}`},
		{server.HumanPayload{T: types.Float64, Float: 2.5}, `{"f64":2.5}`},
		{server.HumanPayload{T: types.Int, Int: 7}, `{"int":7}`},
		{server.HumanPayload{T: types.String, String: "x"}, `{"str":"x"}`},
	}
	for _, c := range cases {
		w := httptest.NewRecorder()
		c.hp.EncodeAndRespond(w, httptest.NewRequest("GET", "/", nil))
		if got := strings.TrimSpace(w.Body.String()); got != c.expected {
			t.Errorf("expected %s got %s", c.expected, got)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json got %s", ct)
		}
	}
}

func TestHumanPayloadUnknownType(t *testing.T) {
	w := httptest.NewRecorder()
	server.HumanPayload{T: types.Complex128}.EncodeAndRespond(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != 500 {
		t.Errorf("expected 500 got %d", w.Code)
	}
}
