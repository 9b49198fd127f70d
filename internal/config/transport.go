package config

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/quaylabs/tropicdrv/internal/serialport"
	"github.com/quaylabs/tropicdrv/internal/spiport"
	"github.com/quaylabs/tropicdrv/pkg/tropic"
)

// OpenPort materialises the transport named by c.Transport.Kind. The
// returned closer releases the underlying bus/device; callers should
// defer it alongside the tropic.Handle's own Deinit.
func OpenPort(c *Config) (tropic.Port, func() error, error) {
	switch c.Transport.Kind {
	case "spi":
		speed := physic.Frequency(c.Transport.SPI.SpeedHz) * physic.Hertz
		if speed == 0 {
			speed = 1 * physic.MegaHertz
		}
		p, err := spiport.Open(spiport.Config{
			BusName:  c.Transport.SPI.BusName,
			Speed:    speed,
			Mode:     spi.Mode0,
			CsnPin:   c.Transport.SPI.CsnPin,
			ReadyPin: c.Transport.SPI.ReadyPin,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open spi transport: %w", err)
		}
		return p, p.Close, nil
	case "serial":
		p, err := serialport.Open(c.Transport.Serial.Device)
		if err != nil {
			return nil, nil, fmt.Errorf("open serial transport: %w", err)
		}
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport kind %q", c.Transport.Kind)
	}
}
