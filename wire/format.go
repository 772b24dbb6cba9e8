package wire

import "strconv"

// Format writes exactly one well-formed message to dst: "{module.name arg...}".
// On success it returns the number of bytes written. If dst is too small to
// hold the encoded message, it returns a *BufferTooSmallError and leaves dst
// untouched.
func Format(dst []byte, module, name string, args ...Arg) (written int, err error) {
	need := encodedLen(module, name, args)
	if need > len(dst) {
		return 0, &BufferTooSmallError{Missing: need - len(dst)}
	}
	pos := 0
	pos += copy(dst[pos:], "{")
	pos += copy(dst[pos:], module)
	pos += copy(dst[pos:], ".")
	pos += copy(dst[pos:], name)
	for _, a := range args {
		pos += copy(dst[pos:], " ")
		pos += encodeArg(dst[pos:], a)
	}
	pos += copy(dst[pos:], "}")
	return pos, nil
}

func encodedLen(module, name string, args []Arg) int {
	n := 1 + len(module) + 1 + len(name) // '{' module '.' name
	for _, a := range args {
		n += 1 + argLen(a) // leading space
	}
	n += 1 // '}'
	return n
}

func argLen(a Arg) int {
	if a.IsSub() {
		return subMessageLen(a.Sub())
	}
	b := a.Bytes()
	return len(strconv.Itoa(len(b))) + 1 + len(b) // <len>:<bytes>
}

func subMessageLen(m *Message) int {
	n := 1 + len(m.Module) + 1 + len(m.Name)
	for _, a := range m.Args {
		n += 1 + argLen(a)
	}
	n += 1
	return n
}

func encodeArg(dst []byte, a Arg) int {
	if a.IsSub() {
		return encodeSubMessage(dst, a.Sub())
	}
	b := a.Bytes()
	pos := copy(dst, strconv.Itoa(len(b)))
	pos += copy(dst[pos:], ":")
	pos += copy(dst[pos:], b)
	return pos
}

func encodeSubMessage(dst []byte, m *Message) int {
	pos := copy(dst, "{")
	pos += copy(dst[pos:], m.Module)
	pos += copy(dst[pos:], ".")
	pos += copy(dst[pos:], m.Name)
	for _, a := range m.Args {
		pos += copy(dst[pos:], " ")
		pos += encodeArg(dst[pos:], a)
	}
	pos += copy(dst[pos:], "}")
	return pos
}

// FormatBool encodes a boolean as VT6's two fixed property tokens, "t"/"f".
func FormatBool(v bool) Arg {
	if v {
		return BytesArg([]byte{'t'})
	}
	return BytesArg([]byte{'f'})
}

// DecodeBool decodes the two fixed boolean tokens. ok is false for any other
// value, in which case the caller must leave the property unchanged: an
// unrecognized value on a set is ignored rather than rejected.
func DecodeBool(b []byte) (value bool, ok bool) {
	if len(b) == 1 {
		switch b[0] {
		case 't':
			return true, true
		case 'f':
			return false, true
		}
	}
	return false, false
}
