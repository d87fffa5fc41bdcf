package fsapi

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// navParent is the navigate value that moves up one folder.
const (
	navParent    = "0xffffffff"
	navParentKey = 1<<32 - 1
)

func (c *Client) getBool(ctx context.Context, op Operation) (bool, error) {
	v, err := c.Get(ctx, op)
	if err != nil {
		return false, err
	}
	b, _ := v.Bool()
	return b, nil
}

func (c *Client) getInt(ctx context.Context, op Operation) (int64, error) {
	v, err := c.Get(ctx, op)
	if err != nil {
		return 0, err
	}
	n, _ := v.Int()
	return n, nil
}

func (c *Client) getText(ctx context.Context, op Operation) (string, error) {
	v, err := c.Get(ctx, op)
	if err != nil {
		return "", err
	}
	s, _ := v.Text()
	return s, nil
}

func (c *Client) GetPower(ctx context.Context) (bool, error) { return c.getBool(ctx, OpPower) }

func (c *Client) SetPower(ctx context.Context, on bool) (bool, error) {
	return c.Set(ctx, OpPower, wire.BoolValue(on))
}

func (c *Client) GetFriendlyName(ctx context.Context) (string, error) {
	return c.getText(ctx, OpFriendlyName)
}

func (c *Client) SetFriendlyName(ctx context.Context, name string) (bool, error) {
	return c.Set(ctx, OpFriendlyName, wire.TextValue(name))
}

func (c *Client) GetRadioID(ctx context.Context) (string, error) { return c.getText(ctx, OpRadioID) }

func (c *Client) GetVersion(ctx context.Context) (string, error) { return c.getText(ctx, OpVersion) }

// GetSleep returns the seconds until the sleep timer fires, 0 when off.
func (c *Client) GetSleep(ctx context.Context) (int64, error) { return c.getInt(ctx, OpSleep) }

func (c *Client) SetSleep(ctx context.Context, seconds int64) (bool, error) {
	return c.Set(ctx, OpSleep, wire.IntValue(seconds))
}

// GetVolumeSteps returns the number of volume steps. The value is kept for
// the lifetime of the session.
func (c *Client) GetVolumeSteps(ctx context.Context) (int64, error) {
	capability, _ := Lookup(OpVolumeSteps)
	if n, ok := c.cache.int(c.session.Generation(), capability.Node); ok {
		return n, nil
	}
	v, gen, err := c.get(ctx, OpVolumeSteps)
	if err != nil {
		return 0, err
	}
	n, _ := v.Int()
	c.cache.storeInt(gen, capability.Node, n)
	return n, nil
}

func (c *Client) GetVolume(ctx context.Context) (int64, error) { return c.getInt(ctx, OpVolume) }

// SetVolume rejects levels above the device's step count before sending.
func (c *Client) SetVolume(ctx context.Context, level int64) (bool, error) {
	if level < 0 {
		return false, &InvalidArgumentError{Operation: OpVolume, Reason: fmt.Sprintf("volume %d is negative", level)}
	}
	steps, err := c.GetVolumeSteps(ctx)
	if err != nil {
		return false, err
	}
	if steps > 0 && level > steps-1 {
		return false, &InvalidArgumentError{Operation: OpVolume, Reason: rangeReason(level, Range{Min: 0, Max: steps - 1})}
	}
	return c.Set(ctx, OpVolume, wire.IntValue(level))
}

func (c *Client) GetMute(ctx context.Context) (bool, error) { return c.getBool(ctx, OpMute) }

func (c *Client) SetMute(ctx context.Context, mute bool) (bool, error) {
	return c.Set(ctx, OpMute, wire.BoolValue(mute))
}

// GetModes lists the modes the device supports (cached per session).
func (c *Client) GetModes(ctx context.Context) ([]PlayerMode, error) {
	items, err := c.cachedList(ctx, OpValidModes)
	if err != nil {
		return nil, err
	}
	modes := make([]PlayerMode, 0, len(items))
	for _, item := range items {
		modes = append(modes, playerModeFromItem(item))
	}
	return modes, nil
}

func (c *Client) GetMode(ctx context.Context) (PlayerMode, error) {
	code, err := c.getInt(ctx, OpMode)
	if err != nil {
		return PlayerMode{}, err
	}
	modes, err := c.GetModes(ctx)
	if err != nil {
		return PlayerMode{}, err
	}
	for _, mode := range modes {
		if int64(mode.Key) == code {
			return mode, nil
		}
	}
	return PlayerMode{}, &UnexpectedResponseError{Operation: OpMode, Reason: fmt.Sprintf("mode %d is not in valid_modes", code)}
}

// SetMode switches to the mode with the given key. The navigation path is
// reset as the device leaves its menus.
func (c *Client) SetMode(ctx context.Context, key int) (bool, error) {
	ok, err := c.Set(ctx, OpMode, wire.IntValue(int64(key)))
	c.resetNavPath()
	return ok, err
}

func (c *Client) GetEqualisers(ctx context.Context) ([]Equaliser, error) {
	items, err := c.cachedList(ctx, OpEqualisers)
	if err != nil {
		return nil, err
	}
	eqs := make([]Equaliser, 0, len(items))
	for _, item := range items {
		eqs = append(eqs, equaliserFromItem(item))
	}
	return eqs, nil
}

func (c *Client) GetEqPreset(ctx context.Context) (Equaliser, error) {
	v, err := c.Get(ctx, OpEqPreset)
	if err != nil {
		return Equaliser{}, err
	}
	n, _ := v.Int()
	return Equaliser{Key: int(n), Label: v.Label}, nil
}

func (c *Client) SetEqPreset(ctx context.Context, key int) (bool, error) {
	return c.Set(ctx, OpEqPreset, wire.IntValue(int64(key)))
}

func (c *Client) GetEqLoudness(ctx context.Context) (bool, error) {
	return c.getBool(ctx, OpEqLoudness)
}

func (c *Client) SetEqLoudness(ctx context.Context, on bool) (bool, error) {
	return c.Set(ctx, OpEqLoudness, wire.BoolValue(on))
}

func (c *Client) GetBass(ctx context.Context) (int64, error) { return c.getInt(ctx, OpBass) }

func (c *Client) SetBass(ctx context.Context, level int64) (bool, error) {
	return c.Set(ctx, OpBass, wire.IntValue(level))
}

func (c *Client) GetTreble(ctx context.Context) (int64, error) { return c.getInt(ctx, OpTreble) }

func (c *Client) SetTreble(ctx context.Context, level int64) (bool, error) {
	return c.Set(ctx, OpTreble, wire.IntValue(level))
}

func (c *Client) GetPlayStatus(ctx context.Context) (PlayState, error) {
	n, err := c.getInt(ctx, OpPlayStatus)
	return PlayState(n), err
}

// GetPlayInfo reads the play.info nodes concurrently. Nodes the current mode
// does not provide are left empty.
func (c *Client) GetPlayInfo(ctx context.Context) (PlayInfo, error) {
	var info PlayInfo
	g, ctx := errgroup.WithContext(ctx)

	text := func(op Operation, dst *string) {
		g.Go(func() error {
			s, err := c.getText(ctx, op)
			if optionalNode(err) {
				return nil
			}
			*dst = s
			return err
		})
	}
	text(OpPlayName, &info.Name)
	text(OpPlayText, &info.Text)
	text(OpPlayArtist, &info.Artist)
	text(OpPlayAlbum, &info.Album)
	text(OpPlayGraphic, &info.GraphicURI)
	g.Go(func() error {
		n, err := c.getInt(ctx, OpPlayDuration)
		if optionalNode(err) {
			return nil
		}
		info.DurationMs = n
		return err
	})

	if err := g.Wait(); err != nil {
		return PlayInfo{}, err
	}
	return info, nil
}

func optionalNode(err error) bool {
	return IsStatus(err, wire.StatusNodeDoesNotExist) || IsStatus(err, wire.StatusFail) || IsStatus(err, wire.StatusNodeBlocked)
}

// GetPlayPosition returns the position within the current track in ms.
func (c *Client) GetPlayPosition(ctx context.Context) (int64, error) {
	return c.getInt(ctx, OpPlayPosition)
}

func (c *Client) SetPlayPosition(ctx context.Context, ms int64) (bool, error) {
	return c.Set(ctx, OpPlayPosition, wire.IntValue(ms))
}

func (c *Client) GetPlayRate(ctx context.Context) (int64, error) { return c.getInt(ctx, OpPlayRate) }

func (c *Client) SetPlayRate(ctx context.Context, rate int64) (bool, error) {
	return c.Set(ctx, OpPlayRate, wire.IntValue(rate))
}

func (c *Client) GetShuffle(ctx context.Context) (bool, error) { return c.getBool(ctx, OpShuffle) }

func (c *Client) SetShuffle(ctx context.Context, on bool) (bool, error) {
	return c.Set(ctx, OpShuffle, wire.BoolValue(on))
}

func (c *Client) GetRepeat(ctx context.Context) (bool, error) { return c.getBool(ctx, OpRepeat) }

func (c *Client) SetRepeat(ctx context.Context, on bool) (bool, error) {
	return c.Set(ctx, OpRepeat, wire.BoolValue(on))
}

func (c *Client) PlayControl(ctx context.Context, control PlayControl) (bool, error) {
	return c.Set(ctx, OpPlayControl, wire.IntValue(int64(control)))
}

func (c *Client) Play(ctx context.Context) (bool, error) { return c.PlayControl(ctx, PlayControlPlay) }

func (c *Client) Pause(ctx context.Context) (bool, error) {
	return c.PlayControl(ctx, PlayControlPause)
}

func (c *Client) Next(ctx context.Context) (bool, error) { return c.PlayControl(ctx, PlayControlNext) }

func (c *Client) Previous(ctx context.Context) (bool, error) {
	return c.PlayControl(ctx, PlayControlPrevious)
}

// GetPresets returns the stored presets of the current mode. Empty slots are
// skipped. Presets change with the mode, so they are never cached.
func (c *Client) GetPresets(ctx context.Context) ([]Preset, error) {
	if err := c.NavEnable(ctx); err != nil {
		return nil, err
	}
	items, err := c.List(ctx, OpPresets)
	if err != nil {
		return nil, err
	}
	presets := make([]Preset, 0, len(items))
	for _, item := range items {
		if preset, ok := presetFromItem(item); ok {
			presets = append(presets, preset)
		}
	}
	return presets, nil
}

func (c *Client) SelectPreset(ctx context.Context, key int) (bool, error) {
	if err := c.NavEnable(ctx); err != nil {
		return false, err
	}
	return c.Set(ctx, OpSelectPreset, wire.IntValue(int64(key)))
}

// NavEnable switches the device into navigation mode if it is not already.
func (c *Client) NavEnable(ctx context.Context) error {
	on, err := c.getBool(ctx, OpNavState)
	if err != nil {
		return err
	}
	if on {
		return nil
	}

	ok, err := c.Set(ctx, OpNavState, wire.BoolValue(true))
	if err != nil {
		return err
	}
	if !ok {
		capability, _ := Lookup(OpNavState)
		return &StatusError{Op: wire.OpSet, Node: capability.Node, Status: wire.StatusFail, RawStatus: string(wire.StatusFail)}
	}
	c.resetNavPath()
	return nil
}

// NavReset leaves navigation mode.
func (c *Client) NavReset(ctx context.Context) (bool, error) {
	c.resetNavPath()
	return c.Set(ctx, OpNavState, wire.BoolValue(false))
}

func (c *Client) NavNumItems(ctx context.Context) (int64, error) {
	if err := c.NavEnable(ctx); err != nil {
		return 0, err
	}
	return c.getInt(ctx, OpNavNumItems)
}

func (c *Client) NavList(ctx context.Context) ([]NavItem, error) {
	if err := c.NavEnable(ctx); err != nil {
		return nil, err
	}
	items, err := c.List(ctx, OpNavList)
	if err != nil {
		return nil, err
	}
	nav := make([]NavItem, 0, len(items))
	for _, item := range items {
		nav = append(nav, navItemFromItem(item))
	}
	return nav, nil
}

// NavSelectFolder enters the folder with the given key.
func (c *Client) NavSelectFolder(ctx context.Context, key int) (bool, error) {
	if err := c.NavEnable(ctx); err != nil {
		return false, err
	}
	ok, err := c.Set(ctx, OpNavigate, wire.IntValue(int64(key)))
	if err == nil && ok {
		c.navMu.Lock()
		c.navPath = append(c.navPath, key)
		c.navMu.Unlock()
	}
	return ok, err
}

// NavSelectParent moves up one folder.
func (c *Client) NavSelectParent(ctx context.Context) (bool, error) {
	if err := c.NavEnable(ctx); err != nil {
		return false, err
	}
	capability, _ := Lookup(OpNavigate)
	ok, err := c.setEncoded(ctx, capability, navParent)
	if err == nil && ok {
		c.navMu.Lock()
		if len(c.navPath) > 0 {
			c.navPath = c.navPath[:len(c.navPath)-1]
		}
		c.navMu.Unlock()
	}
	return ok, err
}

// NavSelectItem plays the item with the given key in the current folder.
func (c *Client) NavSelectItem(ctx context.Context, key int) (bool, error) {
	if err := c.NavEnable(ctx); err != nil {
		return false, err
	}
	return c.Set(ctx, OpSelectItem, wire.IntValue(int64(key)))
}

// NavSelectFolderPath walks from the current folder to path, going up only
// as far as the paths differ.
func (c *Client) NavSelectFolderPath(ctx context.Context, path []int) (bool, error) {
	current := c.NavPath()

	common := 0
	for common < len(current) && common < len(path) && current[common] == path[common] {
		common++
	}
	for i := len(current); i > common; i-- {
		if ok, err := c.NavSelectParent(ctx); err != nil || !ok {
			return ok, err
		}
	}
	for _, key := range path[common:] {
		if ok, err := c.NavSelectFolder(ctx, key); err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

// NavSelectItemPath selects the last key of path after entering its folders.
func (c *Client) NavSelectItemPath(ctx context.Context, path []int) (bool, error) {
	if len(path) == 0 {
		return false, &InvalidArgumentError{Operation: OpSelectItem, Reason: "path is empty"}
	}
	if ok, err := c.NavSelectFolderPath(ctx, path[:len(path)-1]); err != nil || !ok {
		return ok, err
	}
	return c.NavSelectItem(ctx, path[len(path)-1])
}

// NavPath returns the folder keys entered since navigation was enabled.
func (c *Client) NavPath() []int {
	c.navMu.Lock()
	defer c.navMu.Unlock()
	return append([]int(nil), c.navPath...)
}

func (c *Client) resetNavPath() {
	c.navMu.Lock()
	c.navPath = nil
	c.navMu.Unlock()
}
