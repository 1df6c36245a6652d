package protocol

import (
	"fmt"
	"time"
)

// ChannelID is the one-byte logical channel identifier.
// Bit 7 requests FEC, bits 6:4 carry the spectrum class, bits 3:0 the
// center-frequency index.
type ChannelID uint8

const (
	channelFECBit     = 0x80
	channelClassMask  = 0x70
	channelCenterMask = 0x0F

	// WildcardChannel keeps the active spectrum.
	WildcardChannel ChannelID = 0x7F
)

func NewChannelID(class, center uint8, fec bool) ChannelID {
	id := ChannelID(class<<4)&channelClassMask | ChannelID(center)&channelCenterMask
	if fec {
		id |= channelFECBit
	}
	return id
}

func (c ChannelID) FEC() bool { return c&channelFECBit != 0 }

func (c ChannelID) Class() uint8 { return uint8(c&channelClassMask) >> 4 }

func (c ChannelID) Center() uint8 { return uint8(c & channelCenterMask) }

// Spectrum strips the FEC bit; it is the key of the channel table.
func (c ChannelID) Spectrum() uint8 { return uint8(c &^ channelFECBit) }

func (c ChannelID) IsWildcard() bool { return c.Spectrum() == uint8(WildcardChannel) }

// HighRate reports whether the class runs at 200 kbps rather than 55.555 kbps.
func (c ChannelID) HighRate() bool { return c.Class()&0x2 != 0 }

func (c ChannelID) WithFEC(fec bool) ChannelID {
	if fec {
		return c | channelFECBit
	}
	return c &^ channelFECBit
}

func (c ChannelID) GuardTime() time.Duration {
	if c.HighRate() {
		return GuardTimeHighRate
	}
	return GuardTimeBaseRate
}

func (c ChannelID) String() string {
	return fmt.Sprintf("ch%02X(class=%d center=%d fec=%t)", uint8(c), c.Class(), c.Center(), c.FEC())
}
