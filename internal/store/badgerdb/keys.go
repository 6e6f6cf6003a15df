package badgerdb

import (
	"bytes"
	"encoding/binary"
)

// Key prefixes.
const (
	tagPrefix         = "tag:"
	tagBySlugPrefix   = "idx:tags:slug:"
	assignmentPrefix  = "asg:"
	itemTagsPrefix    = "idx:items:tags:"
	objectTypePrefix  = "otype:"
	typeBySlugPrefix  = "idx:otypes:slug:"
	objectPrefix      = "obj:"
	objectsByTypePref = "idx:objects:type:"
	relOutPrefix      = "rel:out:"
	relInPrefix       = "rel:in:"
)

// key joins parts with ':' after prefix. The last part gets no trailing separator.
func key(prefix string, parts ...string) []byte {
	var b bytes.Buffer
	b.WriteString(prefix)
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(p)
	}
	return b.Bytes()
}

// scope returns key(prefix, parts...) followed by ':' for prefix scans.
func scope(prefix string, parts ...string) []byte {
	return append(key(prefix, parts...), ':')
}

// lastSegment returns the bytes after the final ':' of k.
func lastSegment(k []byte) string {
	i := bytes.LastIndexByte(k, ':')
	return string(k[i+1:])
}

func encodeSeq(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

func decodeSeq(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
