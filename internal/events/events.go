package events

// Patch types.
const (
	TypeText     = "text"
	TypeClass    = "class"
	TypeFlash    = "flash"
	TypeDisabled = "disabled"
	TypeBoard    = "board"
	TypeAlert    = "alert"
)

// Patch is one UI update addressed to a DOM element id.
type Patch struct {
	Type   string   `json:"t"`
	ID     string   `json:"id,omitempty"`
	Text   string   `json:"text,omitempty"`
	Class  string   `json:"c,omitempty"`
	On     bool     `json:"on,omitempty"`
	Ms     int      `json:"ms,omitempty"`
	Size   int      `json:"size,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

type Bus struct {
	Patches chan Patch
}

func NewBus() *Bus {
	return &Bus{
		Patches: make(chan Patch, 64),
	}
}
