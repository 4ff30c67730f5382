package midi

// NoteEvent is a key pressed on a MIDI input
type NoteEvent struct {
	Port     string
	Note     uint8
	Velocity uint8
	Channel  uint8
}

// NoteHandler receives notes on the driver's goroutine and must not block
type NoteHandler func(NoteEvent)

// DeviceEvent is emitted when keyboards connect/disconnect
type DeviceEvent struct {
	Type DeviceEventType
	ID   string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

func (t DeviceEventType) String() string {
	if t == DeviceConnected {
		return "connected"
	}
	return "disconnected"
}
