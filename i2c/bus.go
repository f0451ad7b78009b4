package i2c

import (
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// From linux/i2c-dev.h
const i2cSlave = 0x0703

const (
	// Range of valid 7 bit slave addresses, excluding the reserved ones
	FirstAddress = byte(0x03)
	LastAddress  = byte(0x77)
)

type Bus interface {
	I2cWrite(addr byte, data ...byte) error
	I2cRead(addr byte, data []byte) error
}

// Linux is an I2C adapter exposed as character device, e.g. /dev/i2c-1.
type Linux struct {
	path string
	file *os.File
	lock sync.Mutex
	addr int // Currently selected slave, -1 if none
}

func OpenLinux(path string) (*Linux, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open I2C device %v: %v", path, err)
	}
	log.Printf("Opened I2C device %v", path)
	return &Linux{
		path: path,
		file: file,
		addr: -1,
	}, nil
}

func (b *Linux) selectSlave(addr byte) error {
	if b.addr == int(addr) {
		return nil
	}
	if err := unix.IoctlSetInt(int(b.file.Fd()), i2cSlave, int(addr)); err != nil {
		b.addr = -1
		return fmt.Errorf("Could not set I2C slave address %#02x on %v: %v", addr, b.path, err)
	}
	b.addr = int(addr)
	return nil
}

func (b *Linux) I2cWrite(addr byte, data ...byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.selectSlave(addr); err != nil {
		return err
	}
	n, err := b.file.Write(data)
	if err == nil && n != len(data) {
		err = fmt.Errorf("i2c: short write to %#02x (%v instead of %v byte)", addr, n, len(data))
	}
	return err
}

func (b *Linux) I2cRead(addr byte, data []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.selectSlave(addr); err != nil {
		return err
	}
	n, err := b.file.Read(data)
	if err == nil && n != len(data) {
		err = fmt.Errorf("i2c: short read from %#02x (%v instead of %v byte)", addr, n, len(data))
	}
	return err
}

func (b *Linux) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.file.Close()
}

// DummyBus only logs the data that would be written. Reads return zeros.
type DummyBus struct {
}

func (b *DummyBus) I2cWrite(addr byte, data ...byte) error {
	log.Printf("Dummy I2C write to %#02x: %#02x", addr, data)
	return nil
}

func (b *DummyBus) I2cRead(addr byte, data []byte) error {
	for i := range data {
		data[i] = 0
	}
	log.Printf("Dummy I2C read of %v byte from %#02x", len(data), addr)
	return nil
}

// Scan returns the addresses of all slaves that acknowledge a single byte read.
func Scan(bus Bus) ([]byte, error) {
	var result []byte
	buf := make([]byte, 1)
	for addr := FirstAddress; addr <= LastAddress; addr++ {
		if err := bus.I2cRead(addr, buf); err == nil {
			result = append(result, addr)
		} else {
			log.Debugf("No response from I2C slave %#02x: %v", addr, err)
		}
	}
	return result, nil
}
