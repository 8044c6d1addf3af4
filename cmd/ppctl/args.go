package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/portalcraft/pagesapi/portal/syntax"

	"github.com/urfave/cli/v2"
)

// Parses the leading "<entity-set> <record-id>" arguments of a command.
func recordArgs(cctx *cli.Context) (syntax.EntitySet, syntax.RecordID, error) {
	args := cctx.Args()
	if args.Len() < 2 {
		return "", "", fmt.Errorf("need entity set and record ID arguments")
	}
	set, err := syntax.ParseEntitySet(args.Get(0))
	if err != nil {
		return "", "", err
	}
	id, err := syntax.ParseRecordID(args.Get(1))
	if err != nil {
		return "", "", err
	}
	return set, id, nil
}

func logicalNameArg(cctx *cli.Context, idx int, what string) (syntax.LogicalName, error) {
	if cctx.Args().Len() <= idx {
		return "", fmt.Errorf("need %s argument", what)
	}
	return syntax.ParseLogicalName(cctx.Args().Get(idx))
}

// Reads a JSON document argument: inline JSON, "-" for stdin, or "@path" for a file.
func readJSONArg(arg string, stdin io.Reader) (json.RawMessage, error) {
	var b []byte
	var err error
	switch {
	case arg == "-":
		b, err = io.ReadAll(stdin)
	case strings.HasPrefix(arg, "@"):
		b, err = os.ReadFile(arg[1:])
	default:
		b = []byte(arg)
	}
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	if !json.Valid(b) {
		return nil, fmt.Errorf("argument is not valid JSON")
	}
	return json.RawMessage(b), nil
}

// Parses a column value: valid JSON is used as-is (numbers, booleans, null, quoted strings), anything else is sent as a string.
func parseColumnValue(arg string) any {
	if json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}
	return arg
}

func printJSON(w io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
