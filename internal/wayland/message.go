package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const headerSize = 8

// ErrShortMessage is recorded when an event body ends before all of its
// arguments were read.
var ErrShortMessage = errors.New("wayland: message shorter than its arguments")

var order = binary.NativeEndian

// Message is one decoded event. Argument readers consume the body in order;
// the first failure is sticky and every later read returns a zero value, so
// handlers can read all arguments and check Err once.
type Message struct {
	Sender uint32
	Opcode uint16
	data   []byte
	off    int
	err    error
}

// NewMessage wraps an event body. It is exported for protocol tests.
func NewMessage(sender uint32, opcode uint16, body []byte) *Message {
	return &Message{Sender: sender, Opcode: opcode, data: body}
}

// Err returns the first decoding failure.
func (m *Message) Err() error {
	return m.err
}

func (m *Message) take(n int) []byte {
	if m.err != nil {
		return nil
	}
	if n < 0 || m.off+n > len(m.data) {
		m.err = fmt.Errorf("%w: object %d opcode %d", ErrShortMessage, m.Sender, m.Opcode)
		return nil
	}
	b := m.data[m.off : m.off+n]
	m.off += n
	return b
}

// Uint reads a uint argument.
func (m *Message) Uint() uint32 {
	b := m.take(4)
	if b == nil {
		return 0
	}
	return order.Uint32(b)
}

// Int reads an int argument.
func (m *Message) Int() int32 {
	return int32(m.Uint())
}

// Fixed reads a 24.8 fixed-point argument.
func (m *Message) Fixed() float64 {
	return float64(m.Int()) / 256.0
}

// Object reads an object id (0 for null).
func (m *Message) Object() uint32 {
	return m.Uint()
}

// NewID reads a server-allocated new_id.
func (m *Message) NewID() uint32 {
	return m.Uint()
}

// String reads a string argument without its terminating NUL.
func (m *Message) String() string {
	n := int(m.Uint())
	if m.err != nil || n == 0 {
		return ""
	}
	b := m.take(padded(n))
	if b == nil {
		return ""
	}
	if b[n-1] != 0 {
		m.err = fmt.Errorf("wayland: unterminated string in object %d opcode %d", m.Sender, m.Opcode)
		return ""
	}
	return string(b[:n-1])
}

// Array reads an array argument. The returned slice aliases the message body.
func (m *Message) Array() []byte {
	n := int(m.Uint())
	if m.err != nil {
		return nil
	}
	b := m.take(padded(n))
	if b == nil {
		return nil
	}
	return b[:n]
}

// Uint32s decodes an array argument of uint32 values.
func (m *Message) Uint32s() []uint32 {
	raw := m.Array()
	if m.err != nil {
		return nil
	}
	if len(raw)%4 != 0 {
		m.err = fmt.Errorf("wayland: array length %d is not a multiple of 4", len(raw))
		return nil
	}
	out := make([]uint32, 0, len(raw)/4)
	for i := 0; i+4 <= len(raw); i += 4 {
		out = append(out, order.Uint32(raw[i:]))
	}
	return out
}

func padded(n int) int {
	return (n + 3) &^ 3
}

// Request builds one outgoing message.
type Request struct {
	buf []byte
}

// NewRequest starts a request for opcode on object id.
func NewRequest(id uint32, opcode uint16) *Request {
	r := &Request{buf: make([]byte, headerSize, 64)}
	order.PutUint32(r.buf[0:], id)
	order.PutUint32(r.buf[4:], uint32(opcode))
	return r
}

// Uint appends a uint argument.
func (r *Request) Uint(v uint32) *Request {
	r.buf = order.AppendUint32(r.buf, v)
	return r
}

// Int appends an int argument.
func (r *Request) Int(v int32) *Request {
	return r.Uint(uint32(v))
}

// Object appends an object id (0 for null).
func (r *Request) Object(id uint32) *Request {
	return r.Uint(id)
}

// NewID appends a typed new_id.
func (r *Request) NewID(id uint32) *Request {
	return r.Uint(id)
}

// String appends a NUL-terminated, padded string.
func (r *Request) String(s string) *Request {
	n := len(s) + 1
	r.Uint(uint32(n))
	r.buf = append(r.buf, s...)
	r.buf = append(r.buf, make([]byte, padded(n)-len(s))...)
	return r
}

// Array appends a padded array.
func (r *Request) Array(b []byte) *Request {
	r.Uint(uint32(len(b)))
	r.buf = append(r.buf, b...)
	r.buf = append(r.buf, make([]byte, padded(len(b))-len(b))...)
	return r
}

// Bytes finalizes the size field and returns the encoded message.
func (r *Request) Bytes() ([]byte, error) {
	if len(r.buf) > 0xffff {
		return nil, fmt.Errorf("wayland: request too large: %d bytes", len(r.buf))
	}
	word := order.Uint32(r.buf[4:])
	order.PutUint32(r.buf[4:], uint32(len(r.buf))<<16|word&0xffff)
	return r.buf, nil
}
