// Command fsapictl runs one FSAPI command against a radio and prints the
// result as JSON.
//
// Usage:
//
//	fsapictl [-device URL] [-pin PIN] [-timeout D] <command> [args]
//
// Commands:
//
//	get <op>                                read one operation
//	set <op> <value>                        write one operation
//	list <modes|equalisers|presets|nav>     read a list
//	notify <node|op> [timeout]              wait for the next change
//	caps                                    print the capability table
//	token <subject> [read|control]          mint a hub bearer token
//
// Flags default to FSAPI_DEVICE_URL, FSAPI_PIN and FSAPI_TIMEOUT_MS.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/strefethen/fsapi-hub-go/internal/auth"
	"github.com/strefethen/fsapi-hub-go/internal/config"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
	"github.com/strefethen/fsapi-hub-go/internal/logging"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr, nil))
}

// run executes one command. doer replaces the device transport when non-nil.
func run(ctx context.Context, cfg config.Config, args []string, stdout, stderr io.Writer, doer fsapi.Doer) int {
	fs := flag.NewFlagSet("fsapictl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	device := fs.String("device", cfg.Device.URL, "device host[:port][/path] or URL")
	pin := fs.String("pin", cfg.Device.PIN, "device PIN")
	timeout := fs.Duration("timeout", cfg.Device.Timeout(), "per-request timeout")
	resolve := fs.Bool("resolve", cfg.Device.ResolveEndpoint, "read the FSAPI endpoint from the device descriptor")
	verbose := fs.Bool("v", false, "log protocol traffic to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logger := zerolog.Nop()
	if *verbose {
		logger = logging.New("fsapictl", "debug", "console").Output(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339})
	}

	cmd := &command{
		cfg:    cfg,
		stdout: stdout,
		opts: fsapi.Options{
			DeviceURL:       *device,
			PIN:             *pin,
			Timeout:         *timeout,
			HTTPClient:      doer,
			Logger:          logger,
			ResolveEndpoint: *resolve,
			ListPageSize:    cfg.Device.ListPageSize,
			MaxListPages:    cfg.Device.MaxListPages,
			SetSettle:       cfg.Device.SetSettle(),
			SlowSetSettle:   cfg.Device.SlowSetSettle(),
		},
	}

	err := cmd.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "fsapictl: %v\n", err)
		fs.Usage()
		return 2
	default:
		fmt.Fprintf(stderr, "fsapictl: %v\n", err)
		return 1
	}
}

type command struct {
	cfg    config.Config
	opts   fsapi.Options
	stdout io.Writer
}

func (c *command) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "caps":
		return c.caps()
	case "token":
		return c.token(args)
	}

	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
		defer cancel()
		_ = client.Close(closeCtx)
	}()

	switch name {
	case "get":
		return c.get(ctx, client, args)
	case "set":
		return c.set(ctx, client, args)
	case "list":
		return c.list(ctx, client, args)
	case "notify":
		return c.notify(ctx, client, args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
}

func (c *command) connect(ctx context.Context) (*fsapi.Client, error) {
	if c.opts.DeviceURL == "" {
		return nil, fmt.Errorf("%w: -device or FSAPI_DEVICE_URL is required", errUsage)
	}
	return fsapi.Create(ctx, c.opts)
}

func (c *command) print(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *command) get(ctx context.Context, client *fsapi.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: get <op>", errUsage)
	}
	op := fsapi.Operation(args[0])
	capability, ok := fsapi.Lookup(op)
	if !ok {
		return fmt.Errorf("unknown operation %q", op)
	}
	if capability.List {
		items, err := client.List(ctx, op)
		if err != nil {
			return err
		}
		return c.print(listItems(items))
	}

	value, err := client.Get(ctx, op)
	if err != nil {
		return err
	}
	return c.print(map[string]any{
		"operation": string(op),
		"node":      capability.Node,
		"kind":      value.Kind().String(),
		"value":     value.Interface(),
	})
}

func (c *command) set(ctx context.Context, client *fsapi.Client, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: set <op> <value>", errUsage)
	}
	op := fsapi.Operation(args[0])
	value, err := fsapi.ParseValue(op, args[1])
	if err != nil {
		return err
	}
	accepted, err := client.Apply(ctx, op, value)
	if err != nil {
		return err
	}
	if err := c.print(map[string]any{"operation": string(op), "value": value.Interface(), "accepted": accepted}); err != nil {
		return err
	}
	if !accepted {
		return fmt.Errorf("device rejected %s=%s", op, args[1])
	}
	return nil
}

func (c *command) list(ctx context.Context, client *fsapi.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: list <modes|equalisers|presets|nav>", errUsage)
	}
	switch args[0] {
	case "modes":
		modes, err := client.GetModes(ctx)
		if err != nil {
			return err
		}
		return c.print(modes)
	case "equalisers":
		eqs, err := client.GetEqualisers(ctx)
		if err != nil {
			return err
		}
		return c.print(eqs)
	case "presets":
		presets, err := client.GetPresets(ctx)
		if err != nil {
			return err
		}
		return c.print(presets)
	case "nav":
		items, err := client.List(ctx, fsapi.OpNavList)
		if err != nil {
			return err
		}
		return c.print(listItems(items))
	default:
		return fmt.Errorf("%w: unknown list %q", errUsage, args[0])
	}
}

func (c *command) notify(ctx context.Context, client *fsapi.Client, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: notify <node|op> [timeout]", errUsage)
	}
	node := args[0]
	if capability, ok := fsapi.Lookup(fsapi.Operation(node)); ok {
		node = capability.Node
	}
	wait := 30 * time.Second
	if len(args) == 2 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("%w: invalid timeout %q", errUsage, args[1])
		}
		wait = d
	}

	result, err := client.Notify(ctx, node, wait)
	if err != nil {
		return err
	}
	out := map[string]any{"node": node, "timed_out": result.TimedOut}
	if !result.TimedOut {
		out["kind"] = result.Value.Kind().String()
		out["value"] = result.Value.Interface()
	}
	return c.print(out)
}

func (c *command) caps() error {
	caps := fsapi.Capabilities()
	out := make([]map[string]any, 0, len(caps))
	for _, capability := range caps {
		row := map[string]any{
			"operation": string(capability.Operation),
			"node":      capability.Node,
			"access":    capability.Access.String(),
		}
		if capability.List {
			row["list"] = true
		} else {
			row["kind"] = capability.Kind.String()
		}
		out = append(out, row)
	}
	return c.print(out)
}

func (c *command) token(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: token <subject> [read|control]", errUsage)
	}
	if !c.cfg.AuthEnabled() {
		return errors.New("JWT_SECRET is not set")
	}
	scope := auth.ScopeControl
	if len(args) == 2 {
		scope = args[1]
	}
	if scope != auth.ScopeRead && scope != auth.ScopeControl {
		return fmt.Errorf("%w: scope must be read or control", errUsage)
	}

	token, expiresIn, err := auth.GenerateToken(c.cfg, auth.TokenPayload{Sub: args[0], Scope: scope})
	if err != nil {
		return err
	}
	return c.print(map[string]any{"access_token": token, "token_type": "Bearer", "expires_in": expiresIn, "scope": scope})
}

func listItems(items []wire.ListItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		fields := make(map[string]any, len(item.Fields))
		for name, v := range item.Fields {
			fields[name] = v.Interface()
		}
		out = append(out, map[string]any{"key": item.Key, "fields": fields})
	}
	return out
}
