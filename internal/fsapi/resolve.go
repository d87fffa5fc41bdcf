package fsapi

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ResolveWebFSAPI reads the device descriptor at deviceURL (for example
// http://192.168.1.50:80/device) and returns its webfsapi endpoint.
func ResolveWebFSAPI(ctx context.Context, doer Doer, deviceURL string) (string, error) {
	descriptorURL := strings.TrimSpace(deviceURL)
	if !strings.Contains(descriptorURL, "://") {
		descriptorURL = "http://" + descriptorURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, descriptorURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := doer.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ProtocolError{Reason: fmt.Sprintf("device descriptor %s answered HTTP %d", descriptorURL, resp.StatusCode)}
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	endpoint := parseTextValue(payload, "webfsapi")
	if endpoint == "" {
		return "", &ProtocolError{Reason: "device descriptor " + descriptorURL + " has no webfsapi element"}
	}
	return strings.TrimRight(endpoint, "/"), nil
}

func parseTextValue(payload []byte, element string) string {
	decoder := xml.NewDecoder(bytes.NewReader(payload))
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == element {
			var value string
			if err := decoder.DecodeElement(&value, &se); err == nil {
				return strings.TrimSpace(value)
			}
		}
	}
	return ""
}
