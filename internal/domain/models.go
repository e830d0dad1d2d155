package domain

import "sort"

// DefaultPageID is the unrestricted dashboard page served at "/".
const DefaultPageID = "index"

// ScopeKind selects which reporting endpoint variant a load targets.
type ScopeKind int

const (
	ScopeAll ScopeKind = iota
	ScopeSector
	ScopeMunicipality
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeSector:
		return "sector"
	case ScopeMunicipality:
		return "municipality"
	default:
		return "all"
	}
}

// Scope is the resolved query restriction used to pick an API endpoint.
// Key is the sector key or the municipality name; empty for ScopeAll.
type Scope struct {
	Kind ScopeKind
	Key  string
}

func AllData() Scope                   { return Scope{Kind: ScopeAll} }
func BySector(key string) Scope        { return Scope{Kind: ScopeSector, Key: key} }
func ByMunicipality(name string) Scope { return Scope{Kind: ScopeMunicipality, Key: name} }

func (s Scope) String() string {
	if s.Kind == ScopeAll {
		return "all"
	}
	return s.Kind.String() + ":" + s.Key
}

// FilterState holds the visitor's current selections. Empty string means
// "none selected".
type FilterState struct {
	Sector       string
	Municipality string
}

// Features are per-page capability flags. The session-auth variant and the
// municipality-detail tables are the same dashboard with flags switched on.
type Features struct {
	Auth     bool `yaml:"auth"`
	Details  bool `yaml:"details"`
	Chart    bool `yaml:"chart"`
	Upload   bool `yaml:"upload"`
	Download bool `yaml:"download"`
}

// Page is one served dashboard page. A non-empty BoundSector makes it a
// sector page: filter selections are ignored and municipality filtering is off.
type Page struct {
	ID          string
	Path        string
	Title       string
	BoundSector string
	Features    Features
}

// IsSectorPage reports whether the page is permanently bound to one sector.
func (p Page) IsSectorPage() bool { return p.BoundSector != "" }

// Sector is one entry of the sector metadata served by /api/meta/sectors.
type Sector struct {
	Label          string   `json:"label"`
	Municipalities []string `json:"municipalities"`
}

// SectorMeta maps sector key to its label and ordered municipalities.
// Loaded once at startup and never mutated afterwards.
type SectorMeta map[string]Sector

// Keys returns the sector keys in a stable order.
func (m SectorMeta) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasMunicipality reports whether name belongs to the given sector.
func (m SectorMeta) HasMunicipality(sector, name string) bool {
	s, ok := m[sector]
	if !ok {
		return false
	}
	for _, mu := range s.Municipalities {
		if mu == name {
			return true
		}
	}
	return false
}

// Label returns the display label for a sector key, falling back to the key.
func (m SectorMeta) Label(key string) string {
	if s, ok := m[key]; ok && s.Label != "" {
		return s.Label
	}
	return key
}

// Totals is the card payload of /api/totals. Prev* and Delta* are nil when no
// prior comparison run exists.
type Totals struct {
	Visited    int
	NotVisited int
	Total      int

	PrevVisited    *int
	PrevNotVisited *int
	PrevTotal      *int

	DeltaVisited    *int
	DeltaNotVisited *int
	DeltaTotal      *int

	PrevRunDate string
}

// ChartData is the payload of /api/chart-data/compare. All slices are
// parallel to Labels.
type ChartData struct {
	Labels         []string
	CurrentVisited []int
	CurrentNot     []int
	PrevVisited    []int
	PrevNot        []int
	HasPrev        bool
}

// Dataset is one bar series handed to a chart.
type Dataset struct {
	Label  string
	Values []float64
}

// Details is the payload of /api/municipality/:name/details.
type Details struct {
	Summary []TableRow
	Raw     []TableRow
}

// RunTotals is a visited/not-visited pair reported by /api/process.
type RunTotals struct {
	Visited    int
	NotVisited int
}

// ProcessResult is the response of /api/process. Prev and Delta are nil on
// the first ever run.
type ProcessResult struct {
	RunID string
	Today RunTotals
	Prev  *RunTotals
	Delta *RunTotals
}

// Upload is one multipart file forwarded to /api/process.
type Upload struct {
	Field    string
	Filename string
	Data     []byte
}

// DeltaKind classifies a comparison against the previous reporting run.
type DeltaKind int

const (
	NoPriorRun DeltaKind = iota
	Increased
	Decreased
	Unchanged
)

func (k DeltaKind) String() string {
	switch k {
	case Increased:
		return "increased"
	case Decreased:
		return "decreased"
	case Unchanged:
		return "unchanged"
	default:
		return "no-prior-run"
	}
}

// Delta is the display form of a classified comparison.
type Delta struct {
	Kind  DeltaKind
	Text  string
	Class string
}

// Card is one numeric summary card.
type Card struct {
	Key   string // visited, not_visited, total
	Label string
	Value int
	Delta Delta
}
