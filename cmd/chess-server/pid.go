package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

var errInstanceRunning = errors.New("another server instance is running")

// pidFile records the server process id, optionally holding an flock so a
// second server started with the same path refuses to run.
type pidFile struct {
	path   string
	locked bool
	file   *os.File
}

// acquirePIDFile writes the current pid to path. With lock set, a file left by
// a dead process is reclaimed and a live holder is reported as errInstanceRunning.
func acquirePIDFile(path string, lock bool) (*pidFile, error) {
	if lock {
		if pid, alive := readPID(path); alive {
			return nil, fmt.Errorf("%w (pid %d)", errInstanceRunning, pid)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open pid file: %w", err)
	}

	p := &pidFile{path: path, locked: lock, file: file}

	if lock {
		if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			file.Close()
			if errors.Is(err, syscall.EWOULDBLOCK) {
				return nil, errInstanceRunning
			}
			return nil, fmt.Errorf("lock pid file: %w", err)
		}
	}

	if err := p.write(os.Getpid()); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func (p *pidFile) write(pid int) error {
	if err := p.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate pid file: %w", err)
	}
	if _, err := p.file.WriteAt([]byte(strconv.Itoa(pid)+"\n"), 0); err != nil {
		return fmt.Errorf("write pid: %w", err)
	}
	return p.file.Sync()
}

// Release unlocks and removes the file. Safe to call more than once.
func (p *pidFile) Release() {
	if p == nil || p.file == nil {
		return
	}
	if p.locked {
		syscall.Flock(int(p.file.Fd()), syscall.LOCK_UN)
	}
	p.file.Close()
	os.Remove(p.path)
	p.file = nil
}

// readPID returns the pid stored at path and whether that process still
// answers signal 0. A missing or corrupt file reads as not alive.
func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, false
	}
	err = proc.Signal(syscall.Signal(0))
	// EPERM means the process exists under another user
	return pid, err == nil || errors.Is(err, syscall.EPERM)
}
