//go:build linux

package terminal

import (
	"os"
	"strconv"
	"syscall"
	"unsafe"
)

// openPTY opens a master/slave pseudo-terminal pair via /dev/ptmx.
func openPTY() (master, slave *os.File, err error) {
	master, err = os.OpenFile("/dev/ptmx", os.O_RDWR, 0)
	if err != nil {
		return nil, nil, err
	}

	if err := unlockPT(master); err != nil {
		master.Close()
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

// unlockPT unlocks the slave side of the pty.
func unlockPT(master *os.File) error {
	var unlock int32
	_, _, errno := syscall.Syscall(
		syscall.SYS_IOCTL,
		master.Fd(),
		syscall.TIOCSPTLCK,
		uintptr(unsafe.Pointer(&unlock)),
	)
	if errno != 0 {
		return errno
	}
	return nil
}

// ptsName returns the path of the slave pty.
func ptsName(master *os.File) (string, error) {
	var ptyno uint32
	_, _, errno := syscall.Syscall(
		syscall.SYS_IOCTL,
		master.Fd(),
		syscall.TIOCGPTN,
		uintptr(unsafe.Pointer(&ptyno)),
	)
	if errno != 0 {
		return "", errno
	}
	return "/dev/pts/" + strconv.Itoa(int(ptyno)), nil
}

// setWinSize applies TIOCSWINSZ to the master.
func setWinSize(f *os.File, cols, rows uint16) error {
	ws := &winSize{Row: rows, Col: cols}
	_, _, errno := syscall.Syscall(
		syscall.SYS_IOCTL,
		f.Fd(),
		syscall.TIOCSWINSZ,
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
