package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

// Control surface of the development panel: three detented encoders plus
// their push switches and two extra buttons on the expander.
const cfgPico = `{
  "input": {
    "buttons": [
      {"id": 10, "pin": {"pin": 2}, "active_low": true},
      {"id": 11, "pin": {"pin": 3}, "active_low": true},
      {"id": 12, "pin": {"pin": 4}, "active_low": true},
      {"id": 20, "pin": {"pin": 0, "bank": 1}, "active_low": true},
      {"id": 21, "pin": {"pin": 1, "bank": 1}, "active_low": true}
    ],
    "encoders": [
      {"id": 100, "pin_a": 10, "pin_b": 11},
      {"id": 101, "pin_a": 12, "pin_b": 13},
      {"id": 102, "pin_a": 14, "pin_b": 15, "invert_direction": true}
    ],
    "sample_period_us": 1000,
    "debounce_window_us": 5000,
    "queue_capacity": 64
  },
  "bridge": {
    "transport": "uart0",
    "baud": 115200
  },
  "heartbeat": {
    "interval": 2
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
}
