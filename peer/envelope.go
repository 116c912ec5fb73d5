// Package peer implements the peer transport surface (§6): a
// PeerConnection interface, a PeerDriver registry, an AddressResolver
// with failover strategies, and the length-prefixed envelope framing
// used to carry opaque binary payloads. The hub package does not call
// into it; remote children are not dispatched through it. Concrete
// transport codecs (TCP/UDP sockets, WebSockets, RSocket framing) are
// explicitly out of scope (§1); this package stops at the interface
// and in-process loopback level.
package peer

import (
	"encoding/binary"
	"fmt"
)

// Envelope carries an opaque binary payload tagged with a contentId,
// framed as a 4-byte big-endian length, a UTF-8 contentId, then the
// body (§6).
type Envelope struct {
	ContentID string
	Body      []byte
}

// Encode renders env in the wire framing described in §6.
func Encode(env Envelope) []byte {
	idBytes := []byte(env.ContentID)
	out := make([]byte, 4+len(idBytes)+len(env.Body))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(idBytes)))
	copy(out[4:4+len(idBytes)], idBytes)
	copy(out[4+len(idBytes):], env.Body)
	return out
}

// Decode parses the wire framing produced by Encode.
func Decode(data []byte) (Envelope, error) {
	if len(data) < 4 {
		return Envelope{}, fmt.Errorf("peer: envelope too short for length header: %d bytes", len(data))
	}
	idLen := int(binary.BigEndian.Uint32(data[0:4]))
	if len(data) < 4+idLen {
		return Envelope{}, fmt.Errorf("peer: envelope truncated: declared contentId length %d exceeds remaining %d bytes", idLen, len(data)-4)
	}
	return Envelope{
		ContentID: string(data[4 : 4+idLen]),
		Body:      data[4+idLen:],
	}, nil
}
