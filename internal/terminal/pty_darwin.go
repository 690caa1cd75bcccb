//go:build darwin

package terminal

import (
	"os"
	"syscall"
	"unsafe"
)

// ioctl numbers for macOS.
const (
	tiocswinsz   = 0x80087467
	tiocptygname = 0x40807467
)

// openPTY opens a master/slave pseudo-terminal pair via /dev/ptmx.
func openPTY() (master, slave *os.File, err error) {
	master, err = os.OpenFile("/dev/ptmx", os.O_RDWR, 0)
	if err != nil {
		return nil, nil, err
	}

	slavePath, err := ptsName(master)
	if err != nil {
		master.Close()
		return nil, nil, err
	}
	slave, err = os.OpenFile(slavePath, os.O_RDWR, 0)
	if err != nil {
		master.Close()
		return nil, nil, err
	}
	return master, slave, nil
}

// ptsName returns the path of the slave pty via TIOCPTYGNAME.
func ptsName(master *os.File) (string, error) {
	var name [128]byte
	_, _, errno := syscall.Syscall(
		syscall.SYS_IOCTL,
		master.Fd(),
		tiocptygname,
		uintptr(unsafe.Pointer(&name[0])),
	)
	if errno != 0 {
		return "", errno
	}
	end := 0
	for end < len(name) && name[end] != 0 {
		end++
	}
	return string(name[:end]), nil
}

// setWinSize applies TIOCSWINSZ to the master.
func setWinSize(f *os.File, cols, rows uint16) error {
	ws := &winSize{Row: rows, Col: cols}
	_, _, errno := syscall.Syscall(
		syscall.SYS_IOCTL,
		f.Fd(),
		tiocswinsz,
		uintptr(unsafe.Pointer(ws)),
	)
	if errno != 0 {
		return errno
	}
	return nil
}

// winSize is the struct TIOCSWINSZ expects.
type winSize struct {
	Row    uint16
	Col    uint16
	Xpixel uint16
	Ypixel uint16
}
