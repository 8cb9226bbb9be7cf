package ipsp

// Advertisement is a single advertising report received while scanning.
type Advertisement struct {
	Addr      Addr
	AddrType  uint8
	EventType uint8
	RSSI      int8
	Data      []byte
}
