package types

// Input configuration supplied on topic "config/input".

type InputConfig struct {
	Buttons  []ButtonDef  `json:"buttons,omitempty"`
	Encoders []EncoderDef `json:"encoders,omitempty"`

	// Sampling parameters; zero means default (1000 us period, 5000 us
	// debounce window, 64-slot queue).
	SamplePeriodUs   uint32 `json:"sample_period_us,omitempty"`
	DebounceWindowUs uint32 `json:"debounce_window_us,omitempty"`
	QueueCapacity    uint16 `json:"queue_capacity,omitempty"`
}

// InputStats is the reply payload for the "stats" control verb.
type InputStats struct {
	Ticks       uint32 `json:"ticks"`
	Events      uint32 `json:"events"`
	Overflows   uint32 `json:"overflows"`
	ReadErrors  uint32 `json:"read_errors"`
	UnknownIDs  uint32 `json:"unknown_ids"`
	QueueLength int    `json:"queue_length"`
}
