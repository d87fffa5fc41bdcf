package fsapi

import (
	"sort"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// Operation names a device capability.
type Operation string

const (
	// sys
	OpPower        Operation = "power"
	OpMode         Operation = "mode"
	OpFriendlyName Operation = "friendly_name"
	OpRadioID      Operation = "radio_id"
	OpVersion      Operation = "version"
	OpSleep        Operation = "sleep"

	// sys.caps
	OpValidModes  Operation = "valid_modes"
	OpEqualisers  Operation = "equalisers"
	OpVolumeSteps Operation = "volume_steps"

	// sys.audio
	OpVolume     Operation = "volume"
	OpMute       Operation = "mute"
	OpEqPreset   Operation = "eq_preset"
	OpEqLoudness Operation = "eq_loudness"
	OpBass       Operation = "bass"
	OpTreble     Operation = "treble"

	// play
	OpPlayStatus   Operation = "play_status"
	OpPlayControl  Operation = "play_control"
	OpPlayName     Operation = "play_name"
	OpPlayText     Operation = "play_text"
	OpPlayArtist   Operation = "play_artist"
	OpPlayAlbum    Operation = "play_album"
	OpPlayGraphic  Operation = "play_graphic"
	OpPlayDuration Operation = "play_duration"
	OpPlayPosition Operation = "play_position"
	OpPlayRate     Operation = "play_rate"
	OpShuffle      Operation = "shuffle"
	OpRepeat       Operation = "repeat"

	// nav
	OpNavState     Operation = "nav_state"
	OpNavNumItems  Operation = "nav_numitems"
	OpNavList      Operation = "nav_list"
	OpNavigate     Operation = "navigate"
	OpSelectItem   Operation = "select_item"
	OpPresets      Operation = "presets"
	OpSelectPreset Operation = "select_preset"
)

// Access describes whether a capability may be read, written or both.
type Access int

const (
	AccessRead Access = iota + 1
	AccessReadWrite
	AccessWrite
)

func (a Access) Readable() bool { return a == AccessRead || a == AccessReadWrite }

func (a Access) Writable() bool { return a == AccessWrite || a == AccessReadWrite }

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessReadWrite:
		return "read_write"
	case AccessWrite:
		return "write"
	default:
		return "none"
	}
}

// Range bounds integer values accepted by Set.
type Range struct {
	Min int64
	Max int64
}

// Capability maps an operation onto its FSAPI node.
type Capability struct {
	Operation Operation
	Node      string
	Kind      wire.Kind
	Access    Access
	// Labels names the list operation that resolves integer codes to labels.
	Labels Operation
	Range  *Range
	// Slow commands need the longer settle delay after a SET.
	Slow bool
	// List capabilities are read with LIST_GET_NEXT.
	List bool
}

var capabilities = map[Operation]Capability{
	OpPower:        {Node: "netRemote.sys.power", Kind: wire.KindBool, Access: AccessReadWrite, Slow: true},
	OpMode:         {Node: "netRemote.sys.mode", Kind: wire.KindInt, Access: AccessReadWrite, Labels: OpValidModes, Slow: true},
	OpFriendlyName: {Node: "netRemote.sys.info.friendlyName", Kind: wire.KindString, Access: AccessReadWrite},
	OpRadioID:      {Node: "netRemote.sys.info.radioId", Kind: wire.KindString, Access: AccessRead},
	OpVersion:      {Node: "netRemote.sys.info.version", Kind: wire.KindString, Access: AccessRead},
	OpSleep:        {Node: "netRemote.sys.sleep", Kind: wire.KindInt, Access: AccessReadWrite, Range: &Range{Min: 0, Max: 1<<32 - 1}},

	OpValidModes:  {Node: "netRemote.sys.caps.validModes", Access: AccessRead, List: true},
	OpEqualisers:  {Node: "netRemote.sys.caps.eqPresets", Access: AccessRead, List: true},
	OpVolumeSteps: {Node: "netRemote.sys.caps.volumeSteps", Kind: wire.KindInt, Access: AccessRead},

	OpVolume:     {Node: "netRemote.sys.audio.volume", Kind: wire.KindInt, Access: AccessReadWrite, Range: &Range{Min: 0, Max: 255}},
	OpMute:       {Node: "netRemote.sys.audio.mute", Kind: wire.KindBool, Access: AccessReadWrite},
	OpEqPreset:   {Node: "netRemote.sys.audio.eqpreset", Kind: wire.KindInt, Access: AccessReadWrite, Labels: OpEqualisers},
	OpEqLoudness: {Node: "netRemote.sys.audio.eqloudness", Kind: wire.KindBool, Access: AccessReadWrite},
	OpBass:       {Node: "netRemote.sys.audio.eqcustom.param0", Kind: wire.KindInt, Access: AccessReadWrite, Range: &Range{Min: -14, Max: 14}},
	OpTreble:     {Node: "netRemote.sys.audio.eqcustom.param1", Kind: wire.KindInt, Access: AccessReadWrite, Range: &Range{Min: -14, Max: 14}},

	OpPlayStatus:   {Node: "netRemote.play.status", Kind: wire.KindInt, Access: AccessRead},
	OpPlayControl:  {Node: "netRemote.play.control", Kind: wire.KindInt, Access: AccessWrite, Range: &Range{Min: 0, Max: 4}},
	OpPlayName:     {Node: "netRemote.play.info.name", Kind: wire.KindString, Access: AccessRead},
	OpPlayText:     {Node: "netRemote.play.info.text", Kind: wire.KindString, Access: AccessRead},
	OpPlayArtist:   {Node: "netRemote.play.info.artist", Kind: wire.KindString, Access: AccessRead},
	OpPlayAlbum:    {Node: "netRemote.play.info.album", Kind: wire.KindString, Access: AccessRead},
	OpPlayGraphic:  {Node: "netRemote.play.info.graphicUri", Kind: wire.KindString, Access: AccessRead},
	OpPlayDuration: {Node: "netRemote.play.info.duration", Kind: wire.KindInt, Access: AccessRead},
	OpPlayPosition: {Node: "netRemote.play.position", Kind: wire.KindInt, Access: AccessReadWrite, Range: &Range{Min: 0, Max: 1<<32 - 1}},
	OpPlayRate:     {Node: "netRemote.play.rate", Kind: wire.KindInt, Access: AccessReadWrite, Range: &Range{Min: -127, Max: 127}},
	OpShuffle:      {Node: "netRemote.play.shuffle", Kind: wire.KindBool, Access: AccessReadWrite},
	OpRepeat:       {Node: "netRemote.play.repeat", Kind: wire.KindBool, Access: AccessReadWrite},

	OpNavState:     {Node: "netRemote.nav.state", Kind: wire.KindBool, Access: AccessReadWrite, Slow: true},
	OpNavNumItems:  {Node: "netRemote.nav.numitems", Kind: wire.KindInt, Access: AccessRead},
	OpNavList:      {Node: "netRemote.nav.list", Access: AccessRead, List: true},
	OpNavigate:     {Node: "netRemote.nav.action.navigate", Kind: wire.KindInt, Access: AccessWrite, Range: &Range{Min: 0, Max: 1<<32 - 1}, Slow: true},
	OpSelectItem:   {Node: "netRemote.nav.action.selectItem", Kind: wire.KindInt, Access: AccessWrite, Range: &Range{Min: 0, Max: 1<<32 - 1}, Slow: true},
	OpPresets:      {Node: "netRemote.nav.presets", Access: AccessRead, List: true},
	OpSelectPreset: {Node: "netRemote.nav.action.selectPreset", Kind: wire.KindInt, Access: AccessWrite, Range: &Range{Min: 0, Max: 1<<32 - 1}, Slow: true},
}

// Lookup returns the capability for an operation.
func Lookup(op Operation) (Capability, bool) {
	capability, ok := capabilities[op]
	if !ok {
		return Capability{}, false
	}
	capability.Operation = op
	return capability, true
}

// Capabilities returns the full table sorted by operation name.
func Capabilities() []Capability {
	result := make([]Capability, 0, len(capabilities))
	for op := range capabilities {
		capability, _ := Lookup(op)
		result = append(result, capability)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Operation < result[j].Operation
	})
	return result
}

// OperationForNode finds the operation bound to a node, ignoring case as
// GET_NOTIFIES reports nodes in lower case.
func OperationForNode(node string) (Operation, bool) {
	for op, capability := range capabilities {
		if equalNode(capability.Node, node) {
			return op, true
		}
	}
	return "", false
}

func lookupFor(op Operation) (Capability, error) {
	capability, ok := Lookup(op)
	if !ok {
		return Capability{}, &InvalidArgumentError{Operation: op, Reason: "unknown operation"}
	}
	return capability, nil
}

// validate checks a value against the capability before it is encoded.
func (c Capability) validate(value wire.Value) error {
	if c.List {
		return &InvalidArgumentError{Operation: c.Operation, Reason: "list capabilities cannot be set"}
	}
	if !c.Access.Writable() {
		return &InvalidArgumentError{Operation: c.Operation, Reason: "capability is read-only"}
	}
	if value.Kind() != c.Kind {
		return &InvalidArgumentError{
			Operation: c.Operation,
			Reason:    "expected " + c.Kind.String() + " value, got " + value.Kind().String(),
		}
	}
	if c.Range != nil {
		n, _ := value.Int()
		if n < c.Range.Min || n > c.Range.Max {
			return &InvalidArgumentError{
				Operation: c.Operation,
				Reason:    rangeReason(n, *c.Range),
			}
		}
	}
	return nil
}
