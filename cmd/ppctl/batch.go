package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/portalcraft/pagesapi/portal/syntax"
	"github.com/portalcraft/pagesapi/portal/webapi"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var cmdBatch = &cli.Command{
	Name:      "batch",
	Usage:     "run operations from a JSON Lines file",
	ArgsUsage: `<file.jsonl | ->`,
	Description: "Each line is an object like " +
		`{"op":"update","entity_set":"contacts","id":"<guid>","data":{"jobtitle":"Analyst"}}` + ".\n" +
		"Supported ops: get, create, update, set-column, refresh-cache, delete, delete-column, associate, disassociate.\n" +
		"One JSON result line is printed per operation, in input order.",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "number of operations in flight",
			Value: 4,
		},
		&cli.Float64Flag{
			Name:  "rate",
			Usage: "maximum operations started per second (0 for no limit)",
			Value: 10,
		},
	},
	Action: runBatch,
}

// One line of batch input.
type BatchOp struct {
	Op           string             `json:"op"`
	EntitySet    syntax.EntitySet   `json:"entity_set"`
	ID           syntax.RecordID    `json:"id,omitempty"`
	Column       syntax.LogicalName `json:"column,omitempty"`
	Value        json.RawMessage    `json:"value,omitempty"`
	Data         json.RawMessage    `json:"data,omitempty"`
	Select       []string           `json:"select,omitempty"`
	Relationship syntax.LogicalName `json:"relationship,omitempty"`
	TargetSet    syntax.EntitySet   `json:"target_set,omitempty"`
	TargetID     syntax.RecordID    `json:"target_id,omitempty"`
}

// One line of batch output.
type BatchResult struct {
	Line   int             `json:"line"`
	Op     string          `json:"op,omitempty"`
	OK     bool            `json:"ok"`
	ID     string          `json:"id,omitempty"`
	Record json.RawMessage `json:"record,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func runBatch(cctx *cli.Context) error {
	ctx := cctx.Context
	if cctx.Args().Len() != 1 {
		return fmt.Errorf("need batch file argument")
	}

	var in io.Reader = os.Stdin
	if p := cctx.Args().First(); p != "-" {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	c, err := loadPortalClient(cctx)
	if err != nil {
		return err
	}

	results, err := executeBatch(ctx, c, in, cctx.Int("concurrency"), cctx.Float64("rate"))
	if err != nil {
		return err
	}

	failed := 0
	enc := json.NewEncoder(os.Stdout)
	for _, res := range results {
		if !res.OK {
			failed++
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d operations failed", failed, len(results)), 1)
	}
	return nil
}

// Runs every operation in the input, returning one result per non-blank line in input order. Operation failures are recorded in the results; the returned error is only for unreadable input or context cancellation.
func executeBatch(ctx context.Context, c *webapi.Client, in io.Reader, concurrency int, perSecond float64) ([]BatchResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	var results []BatchResult
	var ops []*BatchOp

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res := BatchResult{Line: lineNum}
		var op BatchOp
		if err := json.Unmarshal([]byte(line), &op); err != nil {
			res.Error = fmt.Sprintf("invalid batch line: %v", err)
			results = append(results, res)
			ops = append(ops, nil)
			continue
		}
		res.Op = op.Op
		results = append(results, res)
		ops = append(ops, &op)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, op := range ops {
		if op == nil {
			continue
		}
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			res := &results[i]
			id, record, err := executeOp(gctx, c, op)
			if err != nil {
				slog.Debug("batch operation failed", "line", res.Line, "op", op.Op, "err", err)
				res.Error = err.Error()
				return nil
			}
			res.OK = true
			res.ID = id
			res.Record = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func executeOp(ctx context.Context, c *webapi.Client, op *BatchOp) (string, json.RawMessage, error) {
	if op.EntitySet == "" {
		return "", nil, errors.New("missing entity_set")
	}
	needID := func() error {
		if op.ID == "" {
			return errors.New("missing id")
		}
		return nil
	}
	needColumn := func() error {
		if op.Column == "" {
			return errors.New("missing column")
		}
		return nil
	}

	switch op.Op {
	case "get":
		if err := needID(); err != nil {
			return "", nil, err
		}
		cols := make([]syntax.LogicalName, 0, len(op.Select))
		for _, raw := range op.Select {
			col, err := syntax.ParseLogicalName(raw)
			if err != nil {
				return "", nil, err
			}
			cols = append(cols, col)
		}
		var out json.RawMessage
		if err := c.RetrieveEntity(ctx, op.EntitySet, op.ID, cols, &out); err != nil {
			return "", nil, err
		}
		return op.ID.String(), out, nil
	case "create":
		if len(op.Data) == 0 {
			return "", nil, errors.New("missing data")
		}
		id, err := c.CreateEntity(ctx, op.EntitySet, op.Data)
		return id.String(), nil, err
	case "update":
		if err := needID(); err != nil {
			return "", nil, err
		}
		if len(op.Data) == 0 {
			return "", nil, errors.New("missing data")
		}
		return op.ID.String(), nil, c.UpdateEntity(ctx, op.EntitySet, op.ID, op.Data)
	case "set-column":
		if err := errors.Join(needID(), needColumn()); err != nil {
			return "", nil, err
		}
		var value any = op.Value
		if len(op.Value) == 0 {
			value = nil
		}
		return op.ID.String(), nil, c.UpdateEntityColumn(ctx, op.EntitySet, op.ID, op.Column, value)
	case "refresh-cache":
		if err := needID(); err != nil {
			return "", nil, err
		}
		return op.ID.String(), nil, c.RefreshEntityCache(ctx, op.EntitySet, op.ID, op.Column)
	case "delete":
		if err := needID(); err != nil {
			return "", nil, err
		}
		return op.ID.String(), nil, c.DeleteEntity(ctx, op.EntitySet, op.ID)
	case "delete-column":
		if err := errors.Join(needID(), needColumn()); err != nil {
			return "", nil, err
		}
		return op.ID.String(), nil, c.DeleteEntityAttribute(ctx, op.EntitySet, op.ID, op.Column)
	case "associate", "disassociate":
		if err := needID(); err != nil {
			return "", nil, err
		}
		if op.Relationship == "" || op.TargetSet == "" || op.TargetID == "" {
			return "", nil, errors.New("missing relationship, target_set or target_id")
		}
		fn := c.AssociateEntity
		if op.Op == "disassociate" {
			fn = c.DisassociateEntity
		}
		return op.ID.String(), nil, fn(ctx, op.EntitySet, op.ID, op.Relationship, op.TargetSet, op.TargetID)
	default:
		return "", nil, fmt.Errorf("unsupported batch op: %q", op.Op)
	}
}
