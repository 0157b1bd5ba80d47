// Package wire implements the peer-mesh framing and message dispatch
// vocabulary: a 32-bit big-endian length prefix followed by UTF-8 bytes,
// and the six message kinds peers exchange over it.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"strings"
)

// Kind identifies one of the six peer-to-peer message kinds by its ASCII
// prefix.
type Kind int

// The six peer-mesh message kinds.
const (
	KindUnknown Kind = iota
	KindPeerList
	KindRequestBC
	KindReceiveBC
	KindNewBlock
	KindTransaction
	KindReqChange
)

// Wire prefixes, exactly as specified.
const (
	prefixPeerList    = "PEER_LIST:"
	prefixRequestBC   = "REQUEST_BC"
	prefixReceiveBC   = "RECEIVE_BC:"
	prefixNewBlock    = "NEW_BLOCK:"
	prefixTransaction = "TRANSACTION:"
	prefixReqChange   = "REQ_CHANGE:"
)

// Tracker message bodies. These travel unframed, one per connection.
const (
	TrackerJoin      = "JOIN"
	TrackerKeepalive = "KEEPALIVE"
	TrackerLeave     = "LEAVE"
)

// TrackerPeerListPrefix is the prefix the tracker puts on its
// PEER_LIST broadcast. It is the same value as prefixPeerList: the
// tracker frames that broadcast like any other mesh message and peers
// parse it with Parse.
const TrackerPeerListPrefix = prefixPeerList

// chainDumpEnd is the literal marker placed after each serialized block
// in a chain-dump payload (RECEIVE_BC:/REQ_CHANGE: bodies).
const chainDumpEnd = "END"

// ErrUnframeable is returned by maxFrameLen guard when a declared frame
// length is larger than any legitimate chain dump could be.
var ErrUnframeable = errors.New("wire: frame length exceeds maximum")

// maxFrameLen bounds how large a single framed message may declare
// itself to be, guarding against a corrupt or hostile length prefix
// causing an unbounded allocation.
const maxFrameLen = 256 << 20 // 256 MiB

// Encode builds the full wire payload (prefix + body) for kind.
func Encode(kind Kind, body string) string {
	switch kind {
	case KindPeerList:
		return prefixPeerList + body
	case KindRequestBC:
		return prefixRequestBC
	case KindReceiveBC:
		return prefixReceiveBC + body
	case KindNewBlock:
		return prefixNewBlock + body
	case KindTransaction:
		return prefixTransaction + body
	case KindReqChange:
		return prefixReqChange + body
	default:
		return body
	}
}

// Parse identifies the message kind from payload's prefix and returns
// the remaining body.
func Parse(payload string) (Kind, string) {
	switch {
	case strings.HasPrefix(payload, prefixPeerList):
		return KindPeerList, payload[len(prefixPeerList):]
	case strings.HasPrefix(payload, prefixReceiveBC):
		return KindReceiveBC, payload[len(prefixReceiveBC):]
	case strings.HasPrefix(payload, prefixNewBlock):
		return KindNewBlock, payload[len(prefixNewBlock):]
	case strings.HasPrefix(payload, prefixTransaction):
		return KindTransaction, payload[len(prefixTransaction):]
	case strings.HasPrefix(payload, prefixReqChange):
		return KindReqChange, payload[len(prefixReqChange):]
	case strings.HasPrefix(payload, prefixRequestBC):
		return KindRequestBC, ""
	default:
		return KindUnknown, payload
	}
}

// WriteFramed writes a 32-bit big-endian length prefix followed by
// payload's UTF-8 bytes to w.
func WriteFramed(w io.Writer, payload string) error {
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFramed reads one length-prefixed message from r. It returns
// io.EOF, unwrapped, when the connection is closed cleanly between
// messages (no length prefix at all), matching the original protocol's
// "empty recv means the peer hung up" convention. A stream that ends
// partway through the length prefix also yields io.EOF.
func ReadFramed(r io.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return "", io.EOF
		}
		return "", err
	}

	size := binary.BigEndian.Uint32(lenBuf[:])
	if size > maxFrameLen {
		return "", ErrUnframeable
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return "", err
	}

	return string(body), nil
}

// SplitChainDump splits a RECEIVE_BC:/REQ_CHANGE: body into its
// individual serialized-block strings, each of which was terminated by
// the literal "END" marker.
func SplitChainDump(data string) []string {
	parts := strings.Split(data, chainDumpEnd)
	// The trailing split element after the final END is always empty;
	// drop it. If data was empty, parts is [""] and this yields an empty
	// slice.
	if len(parts) > 0 {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// JoinChainDump concatenates serialized block strings back into a
// chain-dump body, terminating each with the literal "END" marker.
func JoinChainDump(serializedBlocks []string) string {
	var b strings.Builder
	for _, s := range serializedBlocks {
		b.WriteString(s)
		b.WriteString(chainDumpEnd)
	}
	return b.String()
}
