package wire

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecoderFeed(t *testing.T) {
	tests := []struct {
		name    string
		chunks  [][]byte
		want    []Request
		wantErr error
	}{
		{
			name:   "single complete record",
			chunks: [][]byte{{TypeHello, 'b', 'o', 'b', '\r', '\n'}},
			want: []Request{
				{Type: TypeHello, Payload: []byte("bob"), ID: 1},
			},
		},
		{
			name: "payload split across two reads",
			chunks: [][]byte{
				{TypeHello, 'b', 'o'},
				{'b', '\r', '\n', TypePing, 'x', 'y', '\r', '\n'},
			},
			want: []Request{
				{Type: TypeHello, Payload: []byte("bob"), ID: 1},
				{Type: TypePing, Payload: []byte("xy"), ID: 2},
			},
		},
		{
			name: "marker split across two reads",
			chunks: [][]byte{
				{TypePing, 'a', 'b', '\r'},
				{'\n'},
			},
			want: []Request{
				{Type: TypePing, Payload: []byte("ab"), ID: 1},
			},
		},
		{
			name: "lone carriage return inside payload is not a marker",
			chunks: [][]byte{
				{TypePing, 'a', '\r'},
				{'b', '\r', '\n'},
			},
			want: []Request{
				{Type: TypePing, Payload: []byte{'a', '\r', 'b'}, ID: 1},
			},
		},
		{
			name: "multiple records in one chunk",
			chunks: [][]byte{
				{TypeHello, 'a', '\r', '\n', TypeSearchOpponent, '\r', '\n', TypePing, 'z', '\r', '\n'},
			},
			want: []Request{
				{Type: TypeHello, Payload: []byte("a"), ID: 1},
				{Type: TypeSearchOpponent, ID: 2},
				{Type: TypePing, Payload: []byte("z"), ID: 3},
			},
		},
		{
			name:   "empty payload",
			chunks: [][]byte{{TypeSearchOpponent, '\r', '\n'}},
			want: []Request{
				{Type: TypeSearchOpponent, ID: 1},
			},
		},
		{
			name:    "marker in type position",
			chunks:  [][]byte{{'\r', '\n', TypeHello}},
			wantErr: ErrMarkerInTypePosition,
		},
		{
			name: "marker in type position after a valid record",
			chunks: [][]byte{
				{TypeHello, 'a', '\r', '\n'},
				{'\r', '\n'},
			},
			want: []Request{
				{Type: TypeHello, Payload: []byte("a"), ID: 1},
			},
			wantErr: ErrMarkerInTypePosition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decoder
			var got []Request
			var err error

			for _, chunk := range tt.chunks {
				var reqs []Request
				reqs, err = d.Feed(chunk)
				got = append(got, reqs...)
				if err != nil {
					break
				}
			}

			if err != tt.wantErr {
				t.Fatalf("Feed() error = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Feed() requests mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Feeding [type][chunk1] then [chunk2][marker][type2][payload2][marker] must
// yield exactly two correctly separated requests.
func TestDecoderTwoRecordsAcrossTwoReads(t *testing.T) {
	var d Decoder

	first, err := d.Feed([]byte{TypeGameInfo, GameChat, 'h', 'e'})
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(first) != 0 {
		t.Fatalf("expected no complete requests after partial read, got %d", len(first))
	}

	second, err := d.Feed(append([]byte{'y', '\r', '\n', TypePing, 'o', 'k'}, EOR...))
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}

	want := []Request{
		{Type: TypeGameInfo, Payload: []byte{GameChat, 'h', 'e', 'y'}, ID: 1},
		{Type: TypePing, Payload: []byte("ok"), ID: 2},
	}
	if diff := cmp.Diff(want, second); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestDecoderByteAtATime(t *testing.T) {
	record := append([]byte{TypeHello, 'a', 'n', 'n'}, EOR...)

	var d Decoder
	var got []Request
	for _, b := range record {
		reqs, err := d.Feed([]byte{b})
		if err != nil {
			t.Fatalf("Feed() error = %v", err)
		}
		got = append(got, reqs...)
	}

	want := []Request{{Type: TypeHello, Payload: []byte("ann"), ID: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestFields(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    [][]byte
	}{
		{
			name:    "no payload",
			payload: nil,
			want:    nil,
		},
		{
			name:    "single field",
			payload: []byte("alice"),
			want:    [][]byte{[]byte("alice")},
		},
		{
			name:    "multiple fields",
			payload: []byte{'a', FieldSep, '4', '2'},
			want:    [][]byte{[]byte("a"), []byte("42")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Request{Payload: tt.payload}
			if diff := cmp.Diff(tt.want, r.Fields()); diff != "" {
				t.Errorf("Fields() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name   string
		header byte
		fields []string
		want   []byte
	}{
		{
			name:   "no fields",
			header: TypePing,
			want:   []byte{TypePing, '\r', '\n'},
		},
		{
			name:   "one field",
			header: TypeHello,
			fields: []string{"bob"},
			want:   []byte{TypeHello, 'b', 'o', 'b', '\r', '\n'},
		},
		{
			name:   "joins fields with the separator",
			header: TypeHello,
			fields: []string{"bob", "3"},
			want:   []byte{TypeHello, 'b', 'o', 'b', FieldSep, '3', '\r', '\n'},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.header, tt.fields...); !bytes.Equal(got, tt.want) {
				t.Errorf("Message() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGameMessage(t *testing.T) {
	got := GameMessage(GamePot, "bob", "30")
	want := []byte{TypeGameInfo, GamePot, 'b', 'o', 'b', FieldSep, '3', '0', '\r', '\n'}
	if !bytes.Equal(got, want) {
		t.Errorf("GameMessage() = %v, want %v", got, want)
	}
}

// A round trip through the encoder and decoder preserves record boundaries.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	stream := append(GameMessage(GameBet, "bob", "20"), Message(TypeHello, "ann")...)

	var d Decoder
	reqs, err := d.Feed(stream)
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	want := []Request{
		{Type: TypeGameInfo, Payload: []byte{GameBet, 'b', 'o', 'b', FieldSep, '2', '0'}, ID: 1},
		{Type: TypeHello, Payload: []byte("ann"), ID: 2},
	}
	if diff := cmp.Diff(want, reqs); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
