package probe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/serverwatch/internal/domain"
)

// Minecraft probes a Java Edition server with the Server List Ping protocol:
// a varint-framed handshake and status request over TCP, answered with a JSON
// status document. This is the same exchange the vanilla client performs to
// populate its server list.
type Minecraft struct {
	Timeout time.Duration
	Dialer  net.Dialer
}

const minecraftDefaultPort = 25565

// Protocol version -1 asks the server to answer for any client version.
const slpProtocolVersion = -1

func NewMinecraft(timeout time.Duration) *Minecraft {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Minecraft{Timeout: timeout}
}

type slpStatus struct {
	Version struct {
		Name string `json:"name"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
		Sample []struct {
			Name string `json:"name"`
		} `json:"sample"`
	} `json:"players"`
	Description json.RawMessage `json:"description"`
}

func (m *Minecraft) Probe(ctx context.Context, endpoint string) (domain.ServiceStatus, error) {
	host, port := splitAddress(endpoint)
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	start := time.Now()
	conn, err := m.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return domain.ServiceStatus{}, Classify(endpoint, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	raw, err := m.exchange(conn, host, port)
	if err != nil {
		return domain.ServiceStatus{}, err
	}
	latency := time.Since(start)

	var st slpStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return domain.ServiceStatus{}, protocolErr(endpoint, "decode status JSON: %v", err)
	}

	members := domain.Set{}
	for _, p := range st.Players.Sample {
		if p.Name != "" {
			members[p.Name] = struct{}{}
		}
	}
	// A server with players but no sample is configured to hide its list.
	hidden := len(members) == 0 && st.Players.Online > 0

	return domain.ServiceStatus{
		Online:         true,
		MemberCount:    st.Players.Online,
		MemberCapacity: st.Players.Max,
		Members:        members,
		MembersHidden:  hidden,
		Descriptor:     describeServer(st.Version.Name, decodeMOTD(st.Description)),
		Latency:        latency,
	}, nil
}

// exchange runs the handshake + status request and returns the raw JSON body.
func (m *Minecraft) exchange(conn net.Conn, host string, port int) ([]byte, error) {
	endpoint := net.JoinHostPort(host, strconv.Itoa(port))

	var hs bytes.Buffer
	hs.WriteByte(0x00) // handshake packet id
	writeVarInt(&hs, slpProtocolVersion)
	writeVarInt(&hs, len(host))
	hs.WriteString(host)
	_ = binary.Write(&hs, binary.BigEndian, uint16(port))
	writeVarInt(&hs, 1) // next state: status

	if err := writeFrame(conn, hs.Bytes()); err != nil {
		return nil, Classify(endpoint, err)
	}
	if err := writeFrame(conn, []byte{0x00}); err != nil { // status request
		return nil, Classify(endpoint, err)
	}

	r := bufio.NewReader(conn)
	frameLen, err := readVarInt(r)
	if err != nil {
		return nil, Classify(endpoint, err)
	}
	if frameLen <= 0 || frameLen > 1<<21 {
		return nil, protocolErr(endpoint, "bad frame length %d", frameLen)
	}
	packetID, err := readVarInt(r)
	if err != nil {
		return nil, Classify(endpoint, err)
	}
	if packetID != 0x00 {
		return nil, protocolErr(endpoint, "unexpected packet id 0x%02x", packetID)
	}
	strLen, err := readVarInt(r)
	if err != nil {
		return nil, Classify(endpoint, err)
	}
	if strLen <= 0 || strLen > 1<<21 {
		return nil, protocolErr(endpoint, "bad status length %d", strLen)
	}
	body := make([]byte, strLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, Classify(endpoint, err)
	}
	return body, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	var frame bytes.Buffer
	writeVarInt(&frame, len(payload))
	frame.Write(payload)
	_, err := w.Write(frame.Bytes())
	return err
}

func writeVarInt(buf *bytes.Buffer, v int) {
	u := uint32(v)
	for {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		if u == 0 {
			return
		}
	}
}

func readVarInt(r io.ByteReader) (int, error) {
	var v uint32
	for i := 0; i < 5; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return int(int32(v)), nil
		}
	}
	return 0, fmt.Errorf("varint too long")
}

func splitAddress(endpoint string) (string, int) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, minecraftDefaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return host, minecraftDefaultPort
	}
	return host, port
}

var motdCodes = regexp.MustCompile(`(?i)§[0-9a-fklmnor]`)

// decodeMOTD handles both the plain-string and chat-component forms of the
// description field and strips § formatting codes.
func decodeMOTD(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var obj struct {
			Text  string `json:"text"`
			Extra []struct {
				Text string `json:"text"`
			} `json:"extra"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return ""
		}
		var b strings.Builder
		b.WriteString(obj.Text)
		for _, e := range obj.Extra {
			b.WriteString(e.Text)
		}
		s = b.String()
	}
	return strings.TrimSpace(motdCodes.ReplaceAllString(s, ""))
}

func describeServer(version, motd string) string {
	switch {
	case version != "" && motd != "":
		return fmt.Sprintf("%s (%s)", motd, version)
	case version != "":
		return version
	default:
		return motd
	}
}
