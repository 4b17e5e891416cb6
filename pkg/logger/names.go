package logger

const (
	Main      = "main"
	Bridge    = "bridge"
	LinkWatch = "linkwatch"
	Events    = "events"
	Monitor   = "monitor"
	Config    = "confmgr"
	TAP       = "tap"
	AFPacket  = "afpacket"
)
