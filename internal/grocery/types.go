package grocery

// RawIngredient is a single ingredient entry pulled out of a backend payload
// before any merging. Free-text entries arrive with only Name set; structured
// entries carry whatever the backend included.
type RawIngredient struct {
	Name     string
	Quantity *float64
	Unit     string
	Notes    string
	Source   string // meal that contributed the entry, when known
}

// Item is an aggregated shelf item: everything sharing a merge key folded
// into one row.
type Item struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Checked  bool     `json:"checked"`
}

type CategoryGroup struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// List is the presenter output consumed by the display and cart layers.
// Categories are alphabetical with "Other" always last; items within a
// category are sorted case-insensitively by name.
type List struct {
	Categories []CategoryGroup `json:"categories"`
}

func (l List) Empty() bool {
	return len(l.Categories) == 0
}

// Phase is the externally visible pipeline state. The only transitions are
// loading -> ready and loading -> error; a re-run always re-enters loading.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

type ListState struct {
	Phase   Phase  `json:"phase"`
	List    List   `json:"list"`
	Message string `json:"message,omitempty"`
}

// Build runs the whole pipeline on a decoded JSON payload.
func Build(payload any) List {
	return Present(Aggregate(Extract(payload)))
}
