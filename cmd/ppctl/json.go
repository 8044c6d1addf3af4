package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

var cmdJSON = &cli.Command{
	Name:      "json",
	Usage:     "call the legacy portal JSON endpoint (no token or session check)",
	ArgsUsage: `<request-key> [<name>=<value>...]`,
	Action:    runJSON,
}

func parseKeyValueArgs(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument is not <name>=<value>: %q", arg)
		}
		out[k] = v
	}
	return out, nil
}

func runJSON(cctx *cli.Context) error {
	ctx := cctx.Context
	if cctx.Args().Len() < 1 {
		return fmt.Errorf("need request key argument")
	}
	key := cctx.Args().First()
	params, err := parseKeyValueArgs(cctx.Args().Tail())
	if err != nil {
		return err
	}

	c, err := loadPortalClient(cctx)
	if err != nil {
		return err
	}
	var out json.RawMessage
	if err := c.GetJSONData(ctx, key, params, &out); err != nil {
		return err
	}
	if len(out) == 0 {
		return nil
	}
	return printJSON(os.Stdout, out)
}
