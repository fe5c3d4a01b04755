package dnsmsg

import "strings"

// isPointer reports whether b is the first byte of an RFC 1035 compression
// pointer: its top two bits are both set.
func isPointer(b byte) bool {
	return b&0xC0 == 0xC0
}

func pointerTarget(hi, lo byte) int {
	return int(hi&0x3F)<<8 | int(lo)
}

func sanitizeLabel(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// decodeName decodes a DNS name starting at offset 0 of data. Pointers
// encountered while reading data are resolved against pointerBuf — callers
// control a deliberate asymmetry: for questions, pointerBuf is the same
// local slice as data (pointer offsets are tolerated as payload-relative
// even though the buffer handed in is only the local remainder); for
// answers, pointerBuf is the full payload.
//
// It returns the decoded, lower-cased, dot-joined name and the number of
// bytes consumed from data: 2 when the name begins with a pointer (literal
// bytes are never resumed after), or the offset of the byte following the
// terminating zero (or the pointer's second byte, for a name that mixes
// literal labels with a terminal pointer).
func decodeName(data []byte, pointerBuf []byte) (string, int, error) {
	if len(data) == 0 {
		return "", 0, ErrTruncatedLabel
	}

	if isPointer(data[0]) {
		if len(data) < 2 {
			return "", 0, ErrTruncatedLabel
		}
		ptr := pointerTarget(data[0], data[1])
		if ptr >= len(pointerBuf) {
			return "", 0, ErrOffsetOutOfRange
		}
		visited := map[int]struct{}{ptr: {}}
		name, err := followChain(pointerBuf, ptr, visited)
		if err != nil {
			return "", 0, err
		}
		return name, 2, nil
	}

	var labels []string
	cursor := 0
	for {
		if cursor >= len(data) {
			return "", 0, ErrTruncatedLabel
		}

		length := data[cursor]

		if isPointer(length) {
			if cursor+1 >= len(data) {
				return "", 0, ErrTruncatedLabel
			}
			ptr := pointerTarget(data[cursor], data[cursor+1])
			if ptr >= len(pointerBuf) {
				return "", 0, ErrOffsetOutOfRange
			}
			visited := map[int]struct{}{ptr: {}}
			tail, err := followChain(pointerBuf, ptr, visited)
			if err != nil {
				return "", 0, err
			}
			consumed := cursor + 2
			return joinLabels(labels, tail), consumed, nil
		}

		if length == 0 {
			consumed := cursor + 1
			return joinLabels(labels, ""), consumed, nil
		}

		cursor++
		end := cursor + int(length)
		if end > len(data) {
			return "", 0, ErrTruncatedLabel
		}
		labels = append(labels, sanitizeLabel(data[cursor:end]))
		cursor = end
	}
}

// followChain reads labels starting at offset within buf, chasing further
// compression pointers as encountered, until a zero-length (root) label.
// visited accumulates every pointer target followed so far during the
// decoding of the enclosing name; a repeat offset is a cycle.
func followChain(buf []byte, offset int, visited map[int]struct{}) (string, error) {
	var labels []string
	cursor := offset

	for {
		if cursor >= len(buf) {
			return "", ErrTruncatedLabel
		}

		length := buf[cursor]

		if isPointer(length) {
			if cursor+1 >= len(buf) {
				return "", ErrTruncatedLabel
			}
			ptr := pointerTarget(buf[cursor], buf[cursor+1])
			if ptr >= len(buf) {
				return "", ErrOffsetOutOfRange
			}
			if _, seen := visited[ptr]; seen {
				return "", ErrRecursivePointer
			}
			visited[ptr] = struct{}{}
			cursor = ptr
			continue
		}

		if length == 0 {
			return joinLabels(labels, ""), nil
		}

		cursor++
		end := cursor + int(length)
		if end > len(buf) {
			return "", ErrTruncatedLabel
		}
		labels = append(labels, sanitizeLabel(buf[cursor:end]))
		cursor = end
	}
}

func joinLabels(labels []string, tail string) string {
	all := labels
	if tail != "" {
		all = append(append([]string{}, labels...), tail)
	}
	return strings.ToLower(strings.Join(all, "."))
}
