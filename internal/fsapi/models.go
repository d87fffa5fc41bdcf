package fsapi

import (
	"strconv"
	"strings"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// PlayState mirrors netRemote.play.status.
type PlayState int

const (
	PlayStateStopped PlayState = 0
	PlayStateLoading PlayState = 1
	PlayStatePlaying PlayState = 2
	PlayStatePaused  PlayState = 3
)

func (s PlayState) String() string {
	switch s {
	case PlayStateStopped:
		return "stopped"
	case PlayStateLoading:
		return "loading"
	case PlayStatePlaying:
		return "playing"
	case PlayStatePaused:
		return "paused"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// PlayControl values for netRemote.play.control.
type PlayControl int

const (
	PlayControlPlay  PlayControl = 1
	PlayControlPause PlayControl = 2
	// PlayControlNext skips to the next item, or the next station upwards in frequency.
	PlayControlNext PlayControl = 3
	// PlayControlPrevious skips to the previous item, or the next station downwards.
	PlayControlPrevious PlayControl = 4
)

// ParsePlayControl maps an action name onto a PlayControl.
func ParsePlayControl(action string) (PlayControl, bool) {
	switch strings.ToLower(action) {
	case "play":
		return PlayControlPlay, true
	case "pause":
		return PlayControlPause, true
	case "next", "forward":
		return PlayControlNext, true
	case "previous", "prev", "rewind":
		return PlayControlPrevious, true
	}
	return 0, false
}

// PlayerMode is an entry of netRemote.sys.caps.validModes (DAB, FM, Spotify, ...).
type PlayerMode struct {
	Key        int    `json:"key"`
	ID         string `json:"id"`
	Label      string `json:"label"`
	Selectable bool   `json:"selectable"`
	Streamable bool   `json:"streamable"`
	ModeType   int    `json:"mode_type"`
}

// Equaliser is an entry of netRemote.sys.caps.eqPresets.
type Equaliser struct {
	Key   int    `json:"key"`
	Label string `json:"label"`
}

// Preset is a stored station of the current mode.
type Preset struct {
	Key  int    `json:"key"`
	Type string `json:"type,omitempty"`
	Name string `json:"name"`
}

// NavItem is an entry of the navigation list of the current mode.
type NavItem struct {
	Key     int    `json:"key"`
	Name    string `json:"name"`
	Type    int    `json:"type"`
	SubType int    `json:"subtype"`
}

// PlayInfo collects the netRemote.play.info.* nodes.
type PlayInfo struct {
	Name       string `json:"name"`
	Text       string `json:"text"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	GraphicURI string `json:"graphic_uri"`
	DurationMs int64  `json:"duration_ms"`
}

func playerModeFromItem(item wire.ListItem) PlayerMode {
	mode := PlayerMode{
		Key:   item.Key,
		ID:    item.Text("id"),
		Label: item.Text("label"),
	}
	if v, ok := item.Int("selectable"); ok {
		mode.Selectable = v == 1
	}
	if v, ok := item.Int("streamable"); ok {
		mode.Streamable = v == 1
	}
	if v, ok := item.Int("modetype"); ok {
		mode.ModeType = int(v)
	}
	return mode
}

func equaliserFromItem(item wire.ListItem) Equaliser {
	return Equaliser{Key: item.Key, Label: item.Text("label")}
}

// presetFromItem returns false for empty preset slots.
func presetFromItem(item wire.ListItem) (Preset, bool) {
	name := strings.TrimSpace(item.Text("name"))
	if name == "" {
		return Preset{}, false
	}
	preset := Preset{Key: item.Key, Name: name}
	if v, ok := item.Fields["type"]; ok {
		if s, ok := v.Text(); ok {
			preset.Type = s
		} else if n, ok := v.Int(); ok {
			preset.Type = strconv.FormatInt(n, 10)
		}
	}
	return preset, true
}

func navItemFromItem(item wire.ListItem) NavItem {
	nav := NavItem{Key: item.Key, Name: strings.TrimSpace(item.Text("name"))}
	if v, ok := item.Int("type"); ok {
		nav.Type = int(v)
	}
	if v, ok := item.Int("subtype"); ok {
		nav.SubType = int(v)
	}
	return nav
}
