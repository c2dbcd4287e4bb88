package hardware

import (
	"fmt"
	"time"

	"gobot.io/x/gobot/v2/drivers/i2c"
)

// PCF8574 backpack bits and HD44780 commands.
const (
	lcdBacklight = 0x08
	lcdEnable    = 0x04
	lcdRegSelect = 0x01

	lcdCmdClear       = 0x01
	lcdCmdEntryMode   = 0x06
	lcdCmdDisplayOn   = 0x0C
	lcdCmdFunction4x2 = 0x28

	lcdEnablePulse = time.Microsecond
	lcdClearDelay  = 2 * time.Millisecond
)

// lcdLineAddress holds the DDRAM address of each display row.
var lcdLineAddress = [LCDRows]byte{0x80, 0xC0}

// lcdDisplay is an HD44780 character display behind a PCF8574 I2C expander,
// driven in 4-bit mode.
type lcdDisplay struct {
	conn i2c.Connection
}

func (d *lcdDisplay) init() error {
	// Force 8-bit mode three times, then switch to 4-bit.
	for _, nibble := range []byte{0x30, 0x30, 0x30, 0x20} {
		if err := d.writeNibble(nibble); err != nil {
			return err
		}
		time.Sleep(5 * time.Millisecond)
	}
	for _, cmd := range []byte{lcdCmdFunction4x2, lcdCmdDisplayOn, lcdCmdEntryMode} {
		if err := d.command(cmd); err != nil {
			return err
		}
	}
	return d.clear()
}

func (d *lcdDisplay) show(lines []string) error {
	if err := d.clear(); err != nil {
		return err
	}
	for i, line := range lines {
		if i >= LCDRows {
			break
		}
		if err := d.command(lcdLineAddress[i]); err != nil {
			return err
		}
		for _, ch := range []byte(line) {
			if err := d.send(ch, lcdRegSelect); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *lcdDisplay) clear() error {
	if err := d.command(lcdCmdClear); err != nil {
		return err
	}
	time.Sleep(lcdClearDelay)
	return nil
}

func (d *lcdDisplay) command(cmd byte) error {
	return d.send(cmd, 0)
}

func (d *lcdDisplay) send(value, mode byte) error {
	if err := d.writeNibble(value&0xF0 | mode); err != nil {
		return err
	}
	return d.writeNibble((value<<4)&0xF0 | mode)
}

func (d *lcdDisplay) writeNibble(b byte) error {
	if err := d.conn.WriteByte(b | lcdBacklight | lcdEnable); err != nil {
		return fmt.Errorf("%w: lcd write: %w", ErrHardware, err)
	}
	time.Sleep(lcdEnablePulse)
	if err := d.conn.WriteByte((b | lcdBacklight) &^ lcdEnable); err != nil {
		return fmt.Errorf("%w: lcd write: %w", ErrHardware, err)
	}
	return nil
}
