package ethernet

const (
	HeaderLen = 14
	AddrLen   = 6
)

const (
	// EtherTypeMin is the smallest type field value that names a protocol;
	// anything below is an 802.3 length field.
	EtherTypeMin uint16 = 0x0600

	// Pseudo protocol ids for length-framed payloads.
	EtherType8023 uint16 = 0x0001
	EtherType8022 uint16 = 0x0004

	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806
	EtherTypeVLAN uint16 = 0x8100
	EtherTypeIPv6 uint16 = 0x86DD

	// EtherTypeAX25 is the link protocol id used for raw AX.25 sockets.
	EtherTypeAX25 uint16 = 0x0002
)
