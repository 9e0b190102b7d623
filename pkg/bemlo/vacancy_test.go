package bemlo

import (
	"testing"

	"github.com/tidwall/gjson"
)

const sampleNode = `{
	"id": "vac-123",
	"title": "Sjuksköterska natt",
	"profession": "NURSE",
	"specializations": ["ICU","ANESTHESIA"],
	"municipality": "Umeå",
	"region": "Västerbotten",
	"jobStartsAt": 1760000000,
	"jobEndsAt": 1765000000,
	"lastApplicationDate": 1759000000,
	"createdAt": 1758000000,
	"procuredAmount": 620.5,
	"procuredAmountCurrency": "SEK",
	"tender": {
		"id": "tender-9",
		"title": "Vinterbemanning",
		"announcedAt": 1757000000,
		"scope": 38.25,
		"fillRate": 0.6,
		"dynamicStatus": "OPEN",
		"unit": {"id": "unit-1", "name": "Akuten", "municipality": "Umeå"},
		"orderer": {"id": "ord-1", "displayName": "Region Västerbotten"}
	}
}`

func TestParseVacancy(t *testing.T) {
	v := ParseVacancy(gjson.Parse(sampleNode))

	if v.ID != "vac-123" {
		t.Errorf("id: %q", v.ID)
	}
	if v.Title != "Sjuksköterska natt" {
		t.Errorf("title: %q", v.Title)
	}
	if v.FillRate != 0.6 {
		t.Errorf("fill rate: %g", v.FillRate)
	}
	if v.DynamicStatus != "OPEN" {
		t.Errorf("status: %q", v.DynamicStatus)
	}
	if v.ProcuredAmount != 620.5 {
		t.Errorf("amount: %g", v.ProcuredAmount)
	}
	if v.ScopeHours != 38.25 {
		t.Errorf("scope hours: %g", v.ScopeHours)
	}
	if v.UnitName != "Akuten" {
		t.Errorf("unit name: %q", v.UnitName)
	}
	if v.OrdererName != "Region Västerbotten" {
		t.Errorf("orderer: %q", v.OrdererName)
	}
	if v.Specializations != `["ICU","ANESTHESIA"]` {
		t.Errorf("specializations: %q", v.Specializations)
	}
	if v.Raw == "" {
		t.Error("raw node should be retained")
	}
	if v.URL() != "https://app.bemlo.com/vacancies/vac-123" {
		t.Errorf("url: %q", v.URL())
	}
}

func TestParseVacancyDefaultsCurrency(t *testing.T) {
	v := ParseVacancy(gjson.Parse(`{"id":"x","procuredAmount":100}`))
	if v.ProcuredAmountCurrency != "SEK" {
		t.Errorf("expected SEK default, got %q", v.ProcuredAmountCurrency)
	}
}
