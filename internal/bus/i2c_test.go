package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

type call struct {
	addr uint16
	w    []byte
	rLen int
}

type fakeTxer struct {
	calls  []call
	fill   byte
	err    error
	closed bool
}

func (f *fakeTxer) Tx(addr uint16, w, r []byte) error {
	f.calls = append(f.calls, call{addr: addr, w: w, rLen: len(r)})
	for i := range r {
		r[i] = f.fill
	}
	return f.err
}

func (f *fakeTxer) Close() error {
	f.closed = true
	return nil
}

func TestBus_WriteIsWriteOnlyTransaction(t *testing.T) {
	f := &fakeTxer{}
	b := New(f)

	require.NoError(t, b.Write(0x69, []byte{0x01, 0x04}))
	require.Len(t, f.calls, 1)
	assert.Equal(t, uint16(0x69), f.calls[0].addr)
	assert.Equal(t, []byte{0x01, 0x04}, f.calls[0].w)
	assert.Zero(t, f.calls[0].rLen)
}

func TestBus_ReadFillsBuffer(t *testing.T) {
	f := &fakeTxer{fill: 0xAB}
	b := New(f)

	buf := make([]byte, 6)
	require.NoError(t, b.Read(0x69, buf))
	assert.Equal(t, []byte{0xAB, 0xAB, 0xAB, 0xAB, 0xAB, 0xAB}, buf)
	assert.Nil(t, f.calls[0].w)
	assert.Equal(t, 6, f.calls[0].rLen)
}

func TestBus_ErrorPassThrough(t *testing.T) {
	want := errors.New("remote i/o error")
	b := New(&fakeTxer{err: want})

	assert.Same(t, want, b.Write(0x69, []byte{0x11, 0x03}))
	assert.Same(t, want, b.Read(0x69, make([]byte, 3)))
}

func TestBus_Close(t *testing.T) {
	f := &fakeTxer{}
	b := New(f)

	require.NoError(t, b.Close())
	assert.True(t, f.closed)
	assert.Error(t, b.Write(0x69, nil))
	require.NoError(t, b.Close())
}

// sysfsTxer mirrors periph.io sysfs.I2C: a Tx with nothing to write or
// read returns nil without touching the bus.
type sysfsTxer struct {
	fakeTxer
	busCalls int
}

func (s *sysfsTxer) Tx(addr uint16, w, r []byte) error {
	if len(w) == 0 && len(r) == 0 {
		return nil
	}
	s.busCalls++
	return s.fakeTxer.Tx(addr, w, r)
}

type fakePinger struct {
	addrs []uint16
	err   error
}

func (p *fakePinger) Ping(addr uint16) error {
	p.addrs = append(p.addrs, addr)
	return p.err
}

func TestBus_ZeroLengthWriteWithoutPingerFails(t *testing.T) {
	tx := &sysfsTxer{}
	b := New(tx)

	err := b.Write(0x69, []byte{})
	assert.ErrorIs(t, err, ErrNoAddressOnlyWrite)
	assert.Zero(t, tx.busCalls)
}

func TestBus_ZeroLengthWriteUsesPinger(t *testing.T) {
	tx := &sysfsTxer{}
	p := &fakePinger{}
	b := New(tx, WithPinger(p))

	require.NoError(t, b.Write(0x69, nil))
	require.NoError(t, b.Write(0x69, []byte{0x11, 0x03}))

	assert.Equal(t, []uint16{0x69}, p.addrs)
	assert.Equal(t, 1, tx.busCalls)
	require.Len(t, tx.calls, 1)
	assert.Equal(t, []byte{0x11, 0x03}, tx.calls[0].w)
}

func TestBus_PingErrorPassThrough(t *testing.T) {
	want := errors.New("remote i/o error")
	b := New(&sysfsTxer{}, WithPinger(&fakePinger{err: want}))

	assert.Same(t, want, b.Write(0x69, nil))
}

type pingingTxer struct {
	fakeTxer
	fakePinger
}

func TestBus_TxerPingerServesZeroLengthWrite(t *testing.T) {
	tx := &pingingTxer{}
	b := New(tx)

	require.NoError(t, b.Write(0x69, nil))
	assert.Equal(t, []uint16{0x69}, tx.addrs)
	assert.Empty(t, tx.calls)
}

func TestDevNode(t *testing.T) {
	require.NoError(t, i2creg.Register("SPS30TEST", []string{"sps30-test"}, 97, func() (i2c.BusCloser, error) {
		return nil, errors.New("not openable")
	}))
	t.Cleanup(func() { _ = i2creg.Unregister("SPS30TEST") })

	for _, name := range []string{"SPS30TEST", "sps30-test", "97"} {
		node, ok := devNode(name)
		assert.True(t, ok, name)
		assert.Equal(t, "/dev/i2c-97", node, name)
	}

	node, ok := devNode("/dev/i2c-3")
	assert.True(t, ok)
	assert.Equal(t, "/dev/i2c-3", node)

	_, ok = devNode("nope")
	assert.False(t, ok)
}
