package wire

import (
	"strconv"
)

// maxLengthDigits bounds the decimal digits accepted for a bytestring length
// prefix, guarding against integer overflow on adversarial input. VT6 core
// 1.0 messages are capped at 1024 bytes end to end, so ten digits (up to
// 9,999,999,999) is already generous headroom.
const maxLengthDigits = 10

// Parse consumes exactly one message from the front of b.
//
// On success it returns the parsed message and the number of bytes consumed
// (b[:consumed] is exactly the message's wire form, including the outer
// braces). The returned Message's Arg byte slices alias b directly — Parse
// performs no copying — so callers must not mutate or discard the
// underlying buffer while the message is still in use.
//
// On ErrUnexpectedEOF, b holds a (possibly empty) prefix of a message; the
// caller must read more bytes and retry. On a *MalformedError, b does not
// begin with a well-formed message and more data will not fix it; the
// caller applies the resync policy instead of retrying.
func Parse(b []byte) (msg *Message, consumed int, err error) {
	p := &parser{b: b}
	m, err := p.parseMessage()
	if err != nil {
		return nil, 0, err
	}
	return m, p.pos, nil
}

type parser struct {
	b   []byte
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.b) }

func (p *parser) peek() (byte, bool) {
	if p.eof() {
		return 0, false
	}
	return p.b[p.pos], true
}

func (p *parser) skipSpaces() {
	for {
		c, ok := p.peek()
		if !ok || c != ' ' {
			return
		}
		p.pos++
	}
}

func (p *parser) parseMessage() (*Message, error) {
	c, ok := p.peek()
	if !ok {
		return nil, ErrUnexpectedEOF
	}
	if c != '{' {
		return nil, &MalformedError{Reason: "expected '{'", Offset: p.pos}
	}
	p.pos++

	p.skipSpaces()
	module, name, err := p.parseType()
	if err != nil {
		return nil, err
	}

	msg := &Message{Module: module, Name: name}
	for {
		p.skipSpaces()
		c, ok := p.peek()
		if !ok {
			return nil, ErrUnexpectedEOF
		}
		if c == '}' {
			p.pos++
			return msg, nil
		}
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		msg.Args = append(msg.Args, arg)
	}
}

func (p *parser) parseType() (module, name string, err error) {
	module, err = p.parseIdent()
	if err != nil {
		return "", "", err
	}
	c, ok := p.peek()
	if !ok {
		return "", "", ErrUnexpectedEOF
	}
	if c != '.' {
		return "", "", &MalformedError{Reason: "expected '.' in type", Offset: p.pos}
	}
	p.pos++
	name, err = p.parseIdent()
	if err != nil {
		return "", "", err
	}
	return module, name, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '-'
}

func (p *parser) parseIdent() (string, error) {
	start := p.pos
	c, ok := p.peek()
	if !ok {
		return "", ErrUnexpectedEOF
	}
	if !isIdentStart(c) {
		return "", &MalformedError{Reason: "expected identifier", Offset: p.pos}
	}
	p.pos++
	for {
		c, ok := p.peek()
		if !ok {
			return "", ErrUnexpectedEOF
		}
		if !isIdentCont(c) {
			break
		}
		p.pos++
	}
	return string(p.b[start:p.pos]), nil
}

func (p *parser) parseArg() (Arg, error) {
	c, ok := p.peek()
	if !ok {
		return Arg{}, ErrUnexpectedEOF
	}
	switch {
	case c == '{':
		sub, err := p.parseMessage()
		if err != nil {
			return Arg{}, err
		}
		return SubArg(sub), nil
	case c >= '0' && c <= '9':
		return p.parseBytestring()
	default:
		return Arg{}, &MalformedError{Reason: "expected bytestring or sub-message", Offset: p.pos}
	}
}

func (p *parser) parseBytestring() (Arg, error) {
	start := p.pos
	for {
		c, ok := p.peek()
		if !ok {
			return Arg{}, ErrUnexpectedEOF
		}
		if c < '0' || c > '9' {
			break
		}
		p.pos++
		if p.pos-start > maxLengthDigits {
			return Arg{}, &MalformedError{Reason: "length prefix too long", Offset: start}
		}
	}
	if p.pos == start {
		return Arg{}, &MalformedError{Reason: "expected length digit", Offset: start}
	}
	length, convErr := strconv.Atoi(string(p.b[start:p.pos]))
	if convErr != nil {
		return Arg{}, &MalformedError{Reason: "invalid length prefix", Offset: start}
	}
	c, ok := p.peek()
	if !ok {
		return Arg{}, ErrUnexpectedEOF
	}
	if c != ':' {
		return Arg{}, &MalformedError{Reason: "expected ':' after length prefix", Offset: p.pos}
	}
	p.pos++
	if len(p.b)-p.pos < length {
		return Arg{}, ErrUnexpectedEOF
	}
	data := p.b[p.pos : p.pos+length]
	p.pos += length
	return BytesArg(data), nil
}
