package storage

// Classification of one reconciled vacancy.
type Classification string

const (
	New       Classification = "new"
	Updated   Classification = "updated"
	Unchanged Classification = "unchanged"
)

// Outcome is the result of reconciling one incoming vacancy against its
// snapshot row. ChangedFields is only populated for Updated and lists
// exactly the volatile fields that differed.
type Outcome struct {
	Class         Classification
	ChangedFields []string
}

// VacancyRow is the persisted projection of a vacancy plus bookkeeping.
// FirstSeenAt is set once, on first sight of the id, and never changes.
type VacancyRow struct {
	ID                     string
	Title                  string
	Profession             string
	Specializations        string
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
	ScrapedAt              int64
	FirstSeenAt            int64
	LastUpdatedAt          int64
}

// Run is one appended scrape-run history row. Immutable once written.
type Run struct {
	ID              int64
	StartedAt       int64
	DurationSeconds float64
	TotalFetched    int
	NewCount        int
	UpdatedCount    int
	UnchangedCount  int
	Error           string
}

// ShiftRow, RequirementRow and PriceRowRecord are the child rows replaced
// wholesale on every detail fetch, scoped by parent vacancy id.
type ShiftRow struct {
	VacancyID string
	ShiftID   string
	StartsAt  int64
	EndsAt    int64
	ShiftType string
	IsUrgent  bool
}

type RequirementRow struct {
	VacancyID   string
	ReqID       string
	Category    string
	Description string
	IsMandatory bool
}

type PriceRowRecord struct {
	VacancyID string
	RowID     string
	PriceType string
	Amount    float64
	Currency  string
}
