package bemlo

import (
	"github.com/tidwall/gjson"
)

// Vacancy is the flattened projection of one allVacancies node. The id is
// assigned by Bemlo and immutable; FillRate, DynamicStatus and
// ProcuredAmount are the volatile fields that drive change detection,
// everything else is descriptive and assumed stable after creation.
type Vacancy struct {
	ID                     string
	Title                  string
	Profession             string
	Specializations        string // JSON array as stored
	Municipality           string
	Region                 string
	JobStartsAt            int64
	JobEndsAt              int64
	ProcuredAmount         float64
	ProcuredAmountCurrency string
	ScopeHours             float64
	FillRate               float64
	DynamicStatus          string
	TenderID               string
	TenderTitle            string
	UnitID                 string
	UnitName               string
	OrdererID              string
	OrdererName            string
	LastApplicationDate    int64
	CreatedAt              int64
	AnnouncedAt            int64
	Raw                    string // full source node JSON
}

// URL returns the app link for the vacancy.
func (v Vacancy) URL() string {
	return "https://app.bemlo.com/vacancies/" + v.ID
}

// ParseVacancy flattens a raw allVacancies edge node.
func ParseVacancy(node gjson.Result) Vacancy {
	tender := node.Get("tender")
	currency := node.Get("procuredAmountCurrency").String()
	if currency == "" {
		currency = "SEK"
	}

	return Vacancy{
		ID:                     node.Get("id").String(),
		Title:                  node.Get("title").String(),
		Profession:             node.Get("profession").String(),
		Specializations:        node.Get("specializations").Raw,
		Municipality:           node.Get("municipality").String(),
		Region:                 node.Get("region").String(),
		JobStartsAt:            node.Get("jobStartsAt").Int(),
		JobEndsAt:              node.Get("jobEndsAt").Int(),
		ProcuredAmount:         node.Get("procuredAmount").Float(),
		ProcuredAmountCurrency: currency,
		ScopeHours:             tender.Get("scope").Float(),
		FillRate:               tender.Get("fillRate").Float(),
		DynamicStatus:          tender.Get("dynamicStatus").String(),
		TenderID:               tender.Get("id").String(),
		TenderTitle:            tender.Get("title").String(),
		UnitID:                 tender.Get("unit.id").String(),
		UnitName:               tender.Get("unit.name").String(),
		OrdererID:              tender.Get("orderer.id").String(),
		OrdererName:            tender.Get("orderer.displayName").String(),
		LastApplicationDate:    node.Get("lastApplicationDate").Int(),
		CreatedAt:              node.Get("createdAt").Int(),
		AnnouncedAt:            tender.Get("announcedAt").Int(),
		Raw:                    node.Raw,
	}
}

// Shift is one schedule row nested under a vacancy's tender.
type Shift struct {
	ID        string
	StartsAt  int64
	EndsAt    int64
	ShiftType string
	IsUrgent  bool
}

// Requirement is one qualification row nested under a vacancy's tender.
type Requirement struct {
	ID          string
	Category    string
	Description string
	IsMandatory bool
}

// PriceRow is one pricing row nested under a vacancy's tender.
type PriceRow struct {
	ID       string
	Type     string
	Amount   float64
	Currency string
}

// VacancyDetail is the full record returned by the detail query, with the
// nested sub-collections flattened out.
type VacancyDetail struct {
	Vacancy      Vacancy
	Shifts       []Shift
	Requirements []Requirement
	Pricing      []PriceRow
}

// ParseVacancyDetail flattens a raw vacancy detail node.
func ParseVacancyDetail(node gjson.Result) *VacancyDetail {
	d := &VacancyDetail{Vacancy: ParseVacancy(node)}

	node.Get("tender.shifts").ForEach(func(_, s gjson.Result) bool {
		d.Shifts = append(d.Shifts, Shift{
			ID:        s.Get("id").String(),
			StartsAt:  s.Get("startsAt").Int(),
			EndsAt:    s.Get("endsAt").Int(),
			ShiftType: s.Get("shiftType").String(),
			IsUrgent:  s.Get("isUrgent").Bool(),
		})
		return true
	})

	node.Get("tender.requirements").ForEach(func(_, r gjson.Result) bool {
		d.Requirements = append(d.Requirements, Requirement{
			ID:          r.Get("id").String(),
			Category:    r.Get("category").String(),
			Description: r.Get("description").String(),
			IsMandatory: r.Get("isMandatory").Bool(),
		})
		return true
	})

	node.Get("tender.priceRows").ForEach(func(_, p gjson.Result) bool {
		d.Pricing = append(d.Pricing, PriceRow{
			ID:       p.Get("id").String(),
			Type:     p.Get("priceType").String(),
			Amount:   p.Get("amount").Float(),
			Currency: p.Get("currency").String(),
		})
		return true
	})

	return d
}
