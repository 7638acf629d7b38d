package ipc

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/m-mizutani/goerr/v2"
)

// Connect opens the "session" or "system" bus. A session bus address missing
// from the environment (e.g. when started from a bare autostart entry) is
// taken from the parent process or the per-user runtime socket.
func Connect(bus string) (*dbus.Conn, error) {
	switch bus {
	case "system":
		conn, err := dbus.ConnectSystemBus()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to connect to system bus")
		}
		return conn, nil

	case "session", "":
		if os.Getenv("DBUS_SESSION_BUS_ADDRESS") != "" {
			conn, err := dbus.ConnectSessionBus()
			if err != nil {
				return nil, goerr.Wrap(err, "failed to connect to session bus")
			}
			return conn, nil
		}
		addr, err := sessionBusAddress(os.Getppid(), os.Getuid())
		if err != nil {
			return nil, err
		}
		conn, err := dbus.Connect(addr)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to connect to session bus", goerr.V("address", addr))
		}
		return conn, nil

	default:
		return nil, goerr.New("unknown bus", goerr.V("bus", bus))
	}
}

func sessionBusAddress(ppid, uid int) (string, error) {
	if addr, err := getEnvFromProc(ppid, "DBUS_SESSION_BUS_ADDRESS"); err == nil && addr != "" {
		return addr, nil
	}
	sock := fmt.Sprintf("/run/user/%d/bus", uid)
	if _, err := os.Stat(sock); err != nil {
		return "", goerr.Wrap(err, "no session bus found", goerr.V("socket", sock))
	}
	return "unix:path=" + sock, nil
}

// getEnvFromProc reads an environment variable from /proc/<pid>/environ
func getEnvFromProc(pid int, envVar string) (string, error) {
	path := fmt.Sprintf("/proc/%d/environ", pid)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read environ", goerr.V("path", path))
	}

	// environ file contains null-separated key=value pairs
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Split(scanNullTerminated)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, envVar+"=") {
			return strings.TrimPrefix(line, envVar+"="), nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", goerr.Wrap(err, "error scanning environ", goerr.V("path", path))
	}

	return "", goerr.New("environment variable not found", goerr.V("name", envVar), goerr.V("pid", pid))
}

// scanNullTerminated is a split function for bufio.Scanner that splits on null bytes
func scanNullTerminated(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexByte(data, 0); i >= 0 {
		return i + 1, data[0:i], nil
	}

	// If we're at EOF, return what we have
	if atEOF {
		return len(data), data, nil
	}

	// Request more data
	return 0, nil, nil
}
