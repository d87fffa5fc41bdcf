package wire

// Status is the value of the <status> element in every FSAPI response.
type Status string

const (
	StatusOK               Status = "FS_OK"
	StatusFail             Status = "FS_FAIL"
	StatusNodeDoesNotExist Status = "FS_NODE_DOES_NOT_EXIST"
	StatusNodeBlocked      Status = "FS_NODE_BLOCKED"
	StatusTimeout          Status = "FS_TIMEOUT"
	StatusSessionExpired   Status = "FS_SESSION_EXPIRED"
	StatusInvalidSession   Status = "INVALID_SESSION"
	StatusPacketBad        Status = "FS_PACKET_BAD"
	StatusListEnd          Status = "FS_LIST_END"
	StatusUnknown          Status = "FS_UNKNOWN"
)

var knownStatuses = map[Status]struct{}{
	StatusOK:               {},
	StatusFail:             {},
	StatusNodeDoesNotExist: {},
	StatusNodeBlocked:      {},
	StatusTimeout:          {},
	StatusSessionExpired:   {},
	StatusInvalidSession:   {},
	StatusPacketBad:        {},
	StatusListEnd:          {},
	StatusUnknown:          {},
}

// IsOK reports whether the response carries data (FS_LIST_END is a successful
// final list page).
func (s Status) IsOK() bool {
	return s == StatusOK || s == StatusListEnd
}

// IsSessionInvalid reports whether the device rejected the session id.
func (s Status) IsSessionInvalid() bool {
	return s == StatusSessionExpired || s == StatusInvalidSession
}

// Op identifies an FSAPI operation, the first path segment after the base URL.
type Op string

const (
	OpCreateSession Op = "CREATE_SESSION"
	OpDeleteSession Op = "DELETE_SESSION"
	OpGet           Op = "GET"
	OpSet           Op = "SET"
	OpListGetNext   Op = "LIST_GET_NEXT"
	OpGetNotifies   Op = "GET_NOTIFIES"
)

// RequiresSession reports whether the operation must carry a sid.
func (op Op) RequiresSession() bool {
	return op != OpCreateSession
}

// ListItem is one entry of a list-valued node.
type ListItem struct {
	Key    int
	Fields map[string]Value
}

// Text returns the named string field, or "" when absent or not a string.
func (item ListItem) Text(name string) string {
	if v, ok := item.Fields[name]; ok {
		if s, ok := v.Text(); ok {
			return s
		}
	}
	return ""
}

// Int returns the named integer field.
func (item ListItem) Int(name string) (int64, bool) {
	if v, ok := item.Fields[name]; ok {
		return v.Int()
	}
	return 0, false
}

// Notification is one entry of a GET_NOTIFIES response.
type Notification struct {
	Node  string
	Value Value
}

// Response is a decoded FSAPI response body.
type Response struct {
	Status        Status
	RawStatus     string
	Value         *Value
	Items         []ListItem
	ListEnd       bool
	SessionID     string
	Notifications []Notification
}
