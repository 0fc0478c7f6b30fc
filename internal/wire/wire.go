// Package wire implements the line-delimited record protocol spoken between
// the server and its clients.
//
// Every record on the stream is laid out as:
//
//	<1 type byte> <payload bytes> <end-of-record marker>
//
// The marker doubles as the separator and terminator for records. Payloads
// with multiple fields join them with the field separator byte. Payload bytes
// are opaque to this package; there is no escaping, so the marker sequence is
// reserved and may not appear inside a payload.
package wire

import (
	"bytes"
	"errors"
)

// EOR is the end-of-record marker terminating every record on the stream.
var EOR = []byte{'\r', '\n'}

// FieldSep separates fields within a record payload.
const FieldSep byte = 0x1F

// Request type bytes sent by clients. The same values head the mirrored
// server responses.
const (
	TypeHello          byte = 0x01
	TypePing           byte = 0x02
	TypePingResponse   byte = 0x03
	TypeSearchOpponent byte = 0x04
	TypeGameInfo       byte = 0x05
)

// Sub-type bytes carried as the first payload byte of a TypeGameInfo record.
// The client-originated actions and the server-originated events share the
// space since several of them are echoed back verbatim.
const (
	GameReadyToStart byte = 0x10
	GameBet          byte = 0x11
	GameFold         byte = 0x12
	GameSitOut       byte = 0x13
	GameChat         byte = 0x14

	GamePlayerChair      byte = 0x20
	GamePlayerChips      byte = 0x21
	GamePlayerChipsInPot byte = 0x22
	GamePlayerCardCount  byte = 0x23
	GamePlayerHand       byte = 0x24
	GameDealTable        byte = 0x25
	GameDealHand         byte = 0x26
	GamePlayerTurn       byte = 0x27
	GameButtonsChairs    byte = 0x28
	GameBlinds           byte = 0x29
	GamePot              byte = 0x2A
	GameHandEnded        byte = 0x2B
	GameTableFull        byte = 0x2C
	GameNotEnoughPlayers byte = 0x2D
	GameDisconnect       byte = 0x2E
)

// Payload codes for TypeSearchOpponent responses.
const (
	SearchAcknowledged byte = 0x30
	OpponentFound      byte = 0x31
)

// Game type bytes carried in a TypeSearchOpponent request payload.
const (
	GameTypeNone   byte = 0x00
	GameTypeHoldEm byte = 0x01
)

// Typed error codes returned as single-byte payloads on validation failures.
const (
	ErrCodeInvalidUsername  byte = 0xE0
	ErrCodeUsernameTooShort byte = 0xE1
	ErrCodeUsernameTooLong  byte = 0xE2
	ErrCodeNameTaken        byte = 0xE3
	ErrCodeAlreadyConnected byte = 0xE4
)

// ErrMarkerInTypePosition indicates that a record began with the end-of-record
// marker where a type byte was expected. The connection cannot be resynced and
// should be dropped.
var ErrMarkerInTypePosition = errors.New("wire: end-of-record marker in type position")

// Request is one complete decoded record.
type Request struct {
	// Type is the request type byte.
	Type byte
	// Payload holds the record's bytes between the type byte and the marker.
	Payload []byte
	// ID increases by one for every record decoded on the connection.
	ID uint64
}

// Fields splits the payload on the field separator. An empty payload yields
// no fields.
func (r *Request) Fields() [][]byte {
	if len(r.Payload) == 0 {
		return nil
	}
	return bytes.Split(r.Payload, []byte{FieldSep})
}

// Decoder reassembles the record stream for a single connection. Chunks of any
// size may be fed in; complete records are returned as they finish and partial
// records buffer until the marker arrives.
//
// The zero value is ready to use. A Decoder is not safe for concurrent use;
// each connection owns exactly one.
type Decoder struct {
	hasType bool
	current Request
	pending []byte
	nextID  uint64
}

// Feed consumes the next chunk read off the socket and returns every record
// completed by it, in arrival order. A non-nil error means the stream is
// corrupt and the connection should be closed; the Decoder must not be fed
// again after an error.
func (d *Decoder) Feed(chunk []byte) ([]Request, error) {
	d.pending = append(d.pending, chunk...)

	var completed []Request
	for {
		if !d.hasType {
			if len(d.pending) == 0 {
				break
			}
			// A record can never legally begin with the marker. Erroring on
			// the first marker byte alone keeps the check unambiguous without
			// waiting for the second byte to arrive.
			if d.pending[0] == EOR[0] {
				return completed, ErrMarkerInTypePosition
			}
			d.nextID++
			d.current = Request{Type: d.pending[0], ID: d.nextID}
			d.pending = d.pending[1:]
			d.hasType = true
		}

		// The marker must be searched for against the full buffered remainder
		// rather than the latest chunk so a marker straddling two reads is
		// still found.
		idx := bytes.Index(d.pending, EOR)
		if idx < 0 {
			// Everything except a possible marker prefix at the tail is known
			// to be payload; move it out of the scan window.
			keep := len(d.pending) - (len(EOR) - 1)
			if keep > 0 {
				d.current.Payload = append(d.current.Payload, d.pending[:keep]...)
				d.pending = d.pending[keep:]
			}
			break
		}

		d.current.Payload = append(d.current.Payload, d.pending[:idx]...)
		d.pending = d.pending[idx+len(EOR):]
		completed = append(completed, d.current)
		d.current = Request{}
		d.hasType = false
	}

	return completed, nil
}
