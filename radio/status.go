package radio

import (
	"fmt"
)

// Send command to the receiver chip as one write transaction.
func (s *Si473xDriver) sendCommand(cmd command) error {
	if s.debugMode {
		s.debugLog("*** Command: %s\n", cmd)
	}
	n, err := s.conn.Write(cmd)
	if err != nil {
		return &BusError{Op: fmt.Sprintf("write 0x%02x", cmd[0]), Err: err}
	}
	if n != len(cmd) {
		return &BusError{
			Op:  fmt.Sprintf("write 0x%02x", cmd[0]),
			Err: fmt.Errorf("short write, %d of %d bytes", n, len(cmd)),
		}
	}
	return nil
}

// sendWait sends the command and then waits for the device to accept the next one.
func (s *Si473xDriver) sendWait(cmd command) error {
	if err := s.sendCommand(cmd); err != nil {
		return err
	}
	return s.waitForClearToSend()
}

func (s *Si473xDriver) buffRead(size int) ([]byte, error) {
	values := make([]byte, size)
	nValues, err := s.conn.Read(values)
	if err != nil {
		return nil, &BusError{Op: "read", Err: err}
	}

	if nValues != size {
		return nil, &BusError{
			Op:  "read",
			Err: fmt.Errorf("failed to read %d bytes from the line, read %d", size, nValues),
		}
	}

	return values, nil
}

// readResponse reads size bytes until the first one, the status, has CTS set.
// The device keeps answering with a not-ready status until the response is valid.
func (s *Si473xDriver) readResponse(op string, size int) ([]byte, error) {
	var status byte
	for attempt := 1; attempt <= s.ctsAttempts; attempt++ {
		values, err := s.buffRead(size)
		if err != nil {
			return nil, err
		}

		status = values[0]
		s.status = status
		if s.debugMode {
			s.debugLog("status: 0x%02x (%d)\n", status, status)
		}
		if status&STATUS_CTS != 0 {
			if status&STATUS_ERR != 0 {
				s.log("%s: device reported an error, status 0x%02x\n", op, status)
			}
			return values, nil
		}

		s.sleep(s.ctsPollInterval)
	}

	return nil, &TimeoutError{Op: op, Attempts: s.ctsAttempts, Status: status}
}

// Wait for status CTS bit. No command is sent, the device answers any read with its status.
func (s *Si473xDriver) waitForClearToSend() error {
	_, err := s.readResponse("clear-to-send", 1)
	return err
}

// waitForInterrupt keeps asking for the interrupt status until a bit in mask is set.
func (s *Si473xDriver) waitForInterrupt(mask byte) error {
	var status byte
	for attempt := 1; attempt <= s.interruptAttempts; attempt++ {
		if err := s.sendCommand(encodeGetIntStatus()); err != nil {
			return err
		}
		s.sleep(s.interruptPollInterval)

		values, err := s.buffRead(1)
		if err != nil {
			return err
		}

		status = values[0]
		s.status = status
		if status&mask != 0 {
			return nil
		}
		if s.debugMode {
			s.debugLog("Still waiting. Got status 0x%02x\n", status)
		}
	}

	return &TimeoutError{
		Op:       fmt.Sprintf("interrupt 0x%02x", mask),
		Attempts: s.interruptAttempts,
		Status:   status,
	}
}
