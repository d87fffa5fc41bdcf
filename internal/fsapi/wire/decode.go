package wire

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

type xmlTyped struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

type xmlValue struct {
	Children []xmlTyped `xml:",any"`
}

type xmlField struct {
	Name     string     `xml:"name,attr"`
	Children []xmlTyped `xml:",any"`
}

type xmlItem struct {
	Key    string     `xml:"key,attr"`
	Fields []xmlField `xml:"field"`
}

type xmlNotify struct {
	Node  string    `xml:"node,attr"`
	Value *xmlValue `xml:"value"`
}

type xmlResponse struct {
	Status    *string     `xml:"status"`
	SessionID string      `xml:"sessionId"`
	Value     *xmlValue   `xml:"value"`
	Items     []xmlItem   `xml:"item"`
	ListEnd   *struct{}   `xml:"listend"`
	Notifies  []xmlNotify `xml:"notify"`
}

// DecodeResponse parses an FSAPI response body. It is a pure function of its
// input. Only responses with an OK status have their payload decoded.
func DecodeResponse(raw []byte) (*Response, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	decoder.CharsetReader = charsetReader

	var doc xmlResponse
	if err := decoder.Decode(&doc); err != nil {
		return nil, &ProtocolError{Reason: "malformed response", Err: err}
	}
	if doc.Status == nil {
		return nil, &ProtocolError{Reason: "response has no status"}
	}

	rawStatus := strings.TrimSpace(*doc.Status)
	resp := &Response{Status: parseStatus(rawStatus), RawStatus: rawStatus}
	if !resp.Status.IsOK() {
		return resp, nil
	}

	resp.SessionID = strings.TrimSpace(doc.SessionID)
	resp.ListEnd = doc.ListEnd != nil

	if doc.Value != nil {
		value, err := decodeValue(doc.Value.Children)
		if err != nil {
			return nil, err
		}
		resp.Value = &value
	}

	if len(doc.Items) > 0 {
		resp.Items = make([]ListItem, 0, len(doc.Items))
		for _, item := range doc.Items {
			decoded, err := decodeItem(item)
			if err != nil {
				return nil, err
			}
			resp.Items = append(resp.Items, decoded)
		}
	}

	for _, n := range doc.Notifies {
		if n.Value == nil {
			return nil, &ProtocolError{Node: n.Node, Reason: "notification without value"}
		}
		value, err := decodeValue(n.Value.Children)
		if err != nil {
			return nil, annotate(err, n.Node)
		}
		resp.Notifications = append(resp.Notifications, Notification{Node: n.Node, Value: value})
	}

	return resp, nil
}

func parseStatus(raw string) Status {
	status := Status(raw)
	if _, ok := knownStatuses[status]; ok {
		return status
	}
	return StatusUnknown
}

func decodeValue(children []xmlTyped) (Value, error) {
	if len(children) != 1 {
		return Value{}, &ProtocolError{Reason: fmt.Sprintf("value element has %d typed children, want 1", len(children))}
	}
	child := children[0]
	text := child.Text
	if kind, ok := typeKinds[child.XMLName.Local]; ok && kind == KindInt {
		text = strings.TrimSpace(text)
	}
	return decodeTyped(child.XMLName.Local, text)
}

func decodeItem(item xmlItem) (ListItem, error) {
	key, err := strconv.Atoi(strings.TrimSpace(item.Key))
	if err != nil {
		return ListItem{}, &ProtocolError{Reason: fmt.Sprintf("invalid item key %q", item.Key), Err: err}
	}

	decoded := ListItem{Key: key, Fields: make(map[string]Value, len(item.Fields))}
	for _, field := range item.Fields {
		if field.Name == "" {
			return ListItem{}, &ProtocolError{Reason: fmt.Sprintf("item %d has a field without name", key)}
		}
		// Firmware leaves unused fields empty; they carry no value.
		if len(field.Children) == 0 {
			continue
		}
		value, err := decodeValue(field.Children)
		if err != nil {
			return ListItem{}, err
		}
		decoded.Fields[field.Name] = value
	}
	return decoded, nil
}

func annotate(err error, node string) error {
	if pe, ok := err.(*ProtocolError); ok && pe.Node == "" {
		copied := *pe
		copied.Node = node
		return &copied
	}
	return err
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
