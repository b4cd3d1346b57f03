// Package board holds the host side glue needed by the receiver: which
// Raspberry Pi it runs on and the reference clock it feeds the chip.
package board

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// CPUInfo is where the board revision is read from.
const CPUInfo = "/proc/cpuinfo"

// Board revisions, in the sense of i2c bus numbering and header layout.
const (
	RevisionUnknown = 0
	Revision1       = 1 // PCB rev 1.0, model B, 256MB, i2c bus 0, 26 pin
	Revision2       = 2 // PCB rev 2.0, model A/B, i2c bus 1, 26 pin
	Revision3       = 3 // A+/B+ and later, 40 pin
)

// Revision returns the board revision of the host, or RevisionUnknown
// when it cannot be read.
func Revision() int {
	f, err := os.Open(CPUInfo)
	if err != nil {
		return RevisionUnknown
	}
	defer f.Close()

	return RevisionFrom(f)
}

// RevisionFrom parses the Revision line of a cpuinfo file. The last four
// hex digits of the revision code decide. Any failure is RevisionUnknown.
func RevisionFrom(r io.Reader) int {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if !strings.HasPrefix(line, "Revision") {
			continue
		}

		idx := strings.LastIndexByte(line, ':')
		code := strings.TrimSpace(line[idx+1:])
		if len(code) > 4 {
			code = code[len(code)-4:]
		}
		val, err := strconv.ParseUint(code, 16, 16)
		if err != nil || code == "" {
			return RevisionUnknown
		}

		switch {
		case val <= 3:
			return Revision1
		case val < 16:
			return Revision2
		default:
			return Revision3
		}
	}
	return RevisionUnknown
}

// DefaultI2CBus is the bus wired to the header pins 3 and 5.
func DefaultI2CBus(revision int) int {
	if revision == Revision1 {
		return 0
	}
	return 1
}
