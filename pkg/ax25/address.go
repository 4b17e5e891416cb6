package ax25

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	AddrLen     = 7
	CallsignLen = 6

	SSIDOffset = 1
)

const (
	CBit      byte = 0x80
	EBit      byte = 0x01
	SSIDSpare byte = 0x60
	SSIDMask  byte = 0x1E
)

var ErrInvalidAddress = errors.New("invalid ax25 address")

// Address is an AX.25 station address in on-air form: six callsign bytes
// shifted left by one and an SSID octet.
type Address [AddrLen]byte

var (
	// Broadcast is QST-0, the all-stations address.
	Broadcast = Address{'Q' << 1, 'S' << 1, 'T' << 1, ' ' << 1, ' ' << 1, ' ' << 1, 0}
	Null      = Address{' ' << 1, ' ' << 1, ' ' << 1, ' ' << 1, ' ' << 1, ' ' << 1, 0}
)

func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddrLen {
		return a, fmt.Errorf("%w: length %d", ErrInvalidAddress, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// ParseAddress accepts the text form CALL or CALL-SSID.
func ParseAddress(s string) (Address, error) {
	var a Address

	call, ssidStr, hasSSID := strings.Cut(strings.ToUpper(strings.TrimSpace(s)), "-")
	if call == "" || len(call) > CallsignLen {
		return a, fmt.Errorf("%w: callsign %q", ErrInvalidAddress, s)
	}

	for i := 0; i < CallsignLen; i++ {
		c := byte(' ')
		if i < len(call) {
			c = call[i]
			if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
				return a, fmt.Errorf("%w: character %q in %q", ErrInvalidAddress, c, s)
			}
		}
		a[i] = c << 1
	}

	if hasSSID {
		ssid, err := strconv.Atoi(ssidStr)
		if err != nil || ssid < 0 || ssid > 15 {
			return a, fmt.Errorf("%w: ssid %q", ErrInvalidAddress, ssidStr)
		}
		a[6] = byte(ssid) << SSIDOffset
	}

	return a, nil
}

func (a Address) Callsign() string {
	var sb strings.Builder
	for i := 0; i < CallsignLen; i++ {
		c := a[i] >> 1
		if c == ' ' {
			break
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func (a Address) SSID() int {
	return int((a[6] & SSIDMask) >> SSIDOffset)
}

func (a Address) String() string {
	if ssid := a.SSID(); ssid != 0 {
		return fmt.Sprintf("%s-%d", a.Callsign(), ssid)
	}
	return a.Callsign()
}

// Equal compares callsign and SSID, ignoring the C, E and reserved bits.
func (a Address) Equal(b Address) bool {
	for i := 0; i < CallsignLen; i++ {
		if a[i]&0xFE != b[i]&0xFE {
			return false
		}
	}
	return a[6]&SSIDMask == b[6]&SSIDMask
}
