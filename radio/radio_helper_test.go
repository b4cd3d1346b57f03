package radio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gobot.io/x/gobot/drivers/i2c"
)

type pinLevel struct {
	pin   string
	level byte
}

// I2CTestAdaptor is useful to implement tests for
// passing i2c messages back and forth. Every Write is recorded as
// one transaction and every DigitalWrite as one pin level.
type I2CTestAdaptor struct {
	name            string
	writes          [][]byte
	lastWritten     []byte
	tuned           [2]byte
	pins            []pinLevel
	mtx             sync.Mutex
	i2cConnectErr   bool
	digitalWriteErr error
	i2cReadImpl     func(*I2CTestAdaptor, []byte) (int, error)
	i2cWriteImpl    func(*I2CTestAdaptor, []byte) (int, error)
}

func (t *I2CTestAdaptor) DigitalWrite(pin string, level byte) (err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.digitalWriteErr != nil {
		return t.digitalWriteErr
	}
	t.pins = append(t.pins, pinLevel{pin: pin, level: level})
	return nil
}

func (t *I2CTestAdaptor) Read(b []byte) (count int, err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.i2cReadImpl(t, b)
}

func (t *I2CTestAdaptor) Write(b []byte) (count int, err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.i2cWriteImpl(t, b)
}

func (t *I2CTestAdaptor) Close() error {
	return nil
}

func (t *I2CTestAdaptor) ReadByte() (val byte, err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	bytes := []byte{0}
	bytesRead, err := t.i2cReadImpl(t, bytes)
	if err != nil {
		return 0, err
	}
	if bytesRead != 1 {
		return 0, fmt.Errorf("buffer underrun")
	}
	val = bytes[0]
	return
}

func (t *I2CTestAdaptor) ReadByteData( /* reg */ uint8) (val uint8, err error) {
	return t.ReadByte()
}

func (t *I2CTestAdaptor) ReadWordData( /* reg */ uint8) (val uint16, err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	bytes := []byte{0, 0}
	bytesRead, err := t.i2cReadImpl(t, bytes)
	if err != nil {
		return 0, err
	}
	if bytesRead != 2 {
		return 0, fmt.Errorf("buffer underrun")
	}
	l, h := bytes[0], bytes[1]
	return (uint16(h) << 8) | uint16(l), err
}

func (t *I2CTestAdaptor) WriteByte(val byte) (err error) {
	_, err = t.Write([]byte{val})
	return
}

func (t *I2CTestAdaptor) WriteByteData(reg uint8, val uint8) (err error) {
	_, err = t.Write([]byte{reg, val})
	return
}

func (t *I2CTestAdaptor) WriteWordData(reg uint8, val uint16) (err error) {
	_, err = t.Write([]byte{reg, uint8(val & 0xff), uint8(val >> 8)})
	return
}

func (t *I2CTestAdaptor) WriteBlockData(reg uint8, b []byte) (err error) {
	_, err = t.Write(append([]byte{reg}, b...))
	return
}

func (t *I2CTestAdaptor) GetConnection( /* address */ int, /* bus */ int) (connection i2c.Connection, err error) {
	if t.i2cConnectErr {
		return nil, errors.New("invalid i2c connection")
	}
	return t, nil
}

func (t *I2CTestAdaptor) GetDefaultBus() int {
	return 1
}

func (t *I2CTestAdaptor) Name() string          { return t.name }
func (t *I2CTestAdaptor) SetName(n string)      { t.name = n }
func (t *I2CTestAdaptor) Connect() (err error)  { return }
func (t *I2CTestAdaptor) Finalize() (err error) { return }

// Writes returns a copy of the write transactions seen so far.
func (t *I2CTestAdaptor) Writes() [][]byte {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	res := make([][]byte, len(t.writes))
	for i, w := range t.writes {
		res[i] = append([]byte(nil), w...)
	}
	return res
}

func (t *I2CTestAdaptor) Pins() []pinLevel {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return append([]pinLevel(nil), t.pins...)
}

func (t *I2CTestAdaptor) ClearWrites() {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.writes = nil
	t.pins = nil
}

// recordWrite is the default write implementation.
func recordWrite(t *I2CTestAdaptor, buff []byte) (int, error) {
	t.lastWritten = append([]byte(nil), buff...)
	t.writes = append(t.writes, t.lastWritten)
	if len(buff) >= 4 && (buff[0] == CMD_AM_TUNE_FREQ || buff[0] == CMD_FM_TUNE_FREQ) {
		t.tuned = [2]byte{buff[2], buff[3]}
	}
	return len(buff), nil
}

// answer replies like a healthy receiver: always clear to send, tuning
// completes on the first interrupt poll.
func answer(t *I2CTestAdaptor, buff []byte) (int, error) {
	for i := range buff {
		buff[i] = 0
	}
	buff[0] = STATUS_CTS
	if len(t.lastWritten) == 0 {
		return len(buff), nil
	}

	switch t.lastWritten[0] {
	case CMD_GET_INT_STATUS:
		buff[0] = STATUS_CTS | STATUS_STCINT

	case CMD_AM_TUNE_STATUS, CMD_FM_TUNE_STATUS:
		resp := []byte{STATUS_CTS, 0x01, t.tuned[0], t.tuned[1], 32, 12, 0x00, 0x2a}
		copy(buff, resp)

	case CMD_AM_RSQ_STATUS, CMD_FM_RSQ_STATUS:
		resp := []byte{STATUS_CTS, 0x00, 0x00, 0x00, 41, 17, 0x00, 0x00}
		copy(buff, resp)

	case CMD_GET_REV:
		resp := []byte{STATUS_CTS, 35, '6', '0', 0x00, 0x00, '6', '0', 'D'}
		copy(buff, resp)
	}
	return len(buff), nil
}

// scriptedStatus answers each read with the next status byte, repeating the last one.
func scriptedStatus(statuses ...byte) func(*I2CTestAdaptor, []byte) (int, error) {
	idx := 0
	return func(t *I2CTestAdaptor, buff []byte) (int, error) {
		buff[0] = statuses[idx]
		if idx < len(statuses)-1 {
			idx++
		}
		return len(buff), nil
	}
}

func NewI2cTestAdaptor() *I2CTestAdaptor {
	return &I2CTestAdaptor{
		i2cReadImpl:  answer,
		i2cWriteImpl: recordWrite,
	}
}

type sleepRecorder struct {
	mtx   sync.Mutex
	calls []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.calls = append(r.calls, d)
}

func (r *sleepRecorder) Calls() []time.Duration {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]time.Duration(nil), r.calls...)
}

type testLogger interface {
	Logf(format string, args ...interface{})
}

func testConfig(t testLogger, mode Mode) Si473xConfig {
	return Si473xConfig{
		Mode:              mode,
		Volume:            20,
		CTSAttempts:       5,
		InterruptAttempts: 3,
		Log:               t.Logf,
	}
}

// newTestDriver builds a driver whose connection is already acquired
// but which has not talked to the device yet.
func newTestDriver(t testLogger, cfg Si473xConfig) (*Si473xDriver, *I2CTestAdaptor, *sleepRecorder) {
	a := NewI2cTestAdaptor()
	rec := &sleepRecorder{}
	cfg.Sleep = rec.sleep

	d, err := NewSi473xDriver(a, cfg)
	if err != nil {
		panic(err)
	}
	d.conn, _ = a.GetConnection(Address, a.GetDefaultBus())
	return d, a, rec
}
