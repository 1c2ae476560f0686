package infra

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"
	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// serialAck is the line the bridge firmware prints after executing a command.
const serialAck = "received"

// SerialClicker implements domain.Clicker through an Arduino acting as a USB
// HID mouse. Each click is one "click:x,y" line answered by "received".
type SerialClicker struct {
	mu     sync.Mutex
	port   io.ReadWriteCloser
	reader *bufio.Reader
	logger *zap.Logger
}

// OpenSerialClicker opens the serial port and wraps it in a clicker.
// With a read timeout set, a silent bridge surfaces as an error instead of a hang.
func OpenSerialClicker(name string, baud int, ackTimeout time.Duration, logger *zap.Logger) (*SerialClicker, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: ackTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	logger.Info("serial clicker connected", zap.String("port", name), zap.Int("baud", baud))
	return NewSerialClicker(port, logger), nil
}

// NewSerialClicker wraps an already open connection.
func NewSerialClicker(port io.ReadWriteCloser, logger *zap.Logger) *SerialClicker {
	return &SerialClicker{
		port:   port,
		reader: bufio.NewReader(port),
		logger: logger,
	}
}

// Click sends the coordinates and waits for the bridge to acknowledge.
// After a failed exchange any buffered input is dropped, so a late ack is
// never taken as the next click's.
func (c *SerialClicker) Click(p image.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.port, "click:%d,%d\n", p.X, p.Y); err != nil {
		return fmt.Errorf("failed to write click command: %w", err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.reader.Reset(c.port)
		return fmt.Errorf("no acknowledgement from serial bridge: %w", err)
	}
	if resp := strings.TrimSpace(line); resp != serialAck {
		c.reader.Reset(c.port)
		return fmt.Errorf("unexpected serial bridge response %q", resp)
	}

	c.logger.Debug("click sent to serial bridge", zap.Int("x", p.X), zap.Int("y", p.Y))
	return nil
}

// Close releases the serial port.
func (c *SerialClicker) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port.Close()
}

// Ensure SerialClicker implements domain.Clicker.
var _ domain.Clicker = (*SerialClicker)(nil)
