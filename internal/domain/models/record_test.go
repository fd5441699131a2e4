package models

import (
	"encoding/json"
	"testing"
)

func TestAsID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
		ok   bool
	}{
		{"json number", json.Number("42"), 42, true},
		{"float", float64(7), 7, true},
		{"fractional float", 7.5, 0, false},
		{"numeric string", " 12 ", 12, true},
		{"bad string", "abc", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsID(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("AsID(%v) = %d,%v want %d,%v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRecordKeys_IDFirst(t *testing.T) {
	r := Record{"name": "x", "id": 1, "code": "c"}
	got := r.Keys()
	want := []string{"id", "code", "name"}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPageEnvelopeNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       PageEnvelope
		wantCur  int
		wantLast int
	}{
		{"zero values", PageEnvelope{}, 1, 1},
		{"current beyond last", PageEnvelope{CurrentPage: 5, LastPage: 3}, 3, 3},
		{"valid", PageEnvelope{CurrentPage: 2, LastPage: 3}, 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if got.CurrentPage != tt.wantCur || got.LastPage != tt.wantLast {
				t.Errorf("Normalize() = %d/%d, want %d/%d", got.CurrentPage, got.LastPage, tt.wantCur, tt.wantLast)
			}
			if got.CurrentPage < 1 || got.CurrentPage > got.LastPage {
				t.Errorf("invariant broken: %d/%d", got.CurrentPage, got.LastPage)
			}
		})
	}
}

func TestPageEnvelopeNav(t *testing.T) {
	p := PageEnvelope{Data: []Record{{"id": json.Number("1")}}, CurrentPage: 1, LastPage: 3, PerPage: 10}.Normalize()
	if p.HasPrev() {
		t.Error("HasPrev() on first page should be false")
	}
	if !p.HasNext() {
		t.Error("HasNext() on page 1 of 3 should be true")
	}
	if _, ok := p.Find(1); !ok {
		t.Error("Find(1) should locate the loaded record")
	}
}
