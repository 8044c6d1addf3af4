package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/portalcraft/pagesapi/portal/syntax"

	"github.com/urfave/cli/v2"
)

var cmdGet = &cli.Command{
	Name:      "get",
	Usage:     "fetch a single record as JSON",
	ArgsUsage: `<entity-set> <record-id>`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "select",
			Aliases: []string{"s"},
			Usage:   "comma-separated column logical names",
		},
	},
	Action: runGet,
}

func runGet(cctx *cli.Context) error {
	ctx := cctx.Context
	set, id, err := recordArgs(cctx)
	if err != nil {
		return err
	}
	var cols []syntax.LogicalName
	if s := cctx.String("select"); s != "" {
		for _, raw := range strings.Split(s, ",") {
			col, err := syntax.ParseLogicalName(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			cols = append(cols, col)
		}
	}

	c, err := loadPortalClient(cctx)
	if err != nil {
		return err
	}
	var out json.RawMessage
	if err := c.RetrieveEntity(ctx, set, id, cols, &out); err != nil {
		return err
	}
	return printJSON(os.Stdout, out)
}

var cmdCreate = &cli.Command{
	Name:      "create",
	Usage:     "create a record, printing its ID",
	ArgsUsage: `<entity-set> <json | @file | ->`,
	Action:    runCreate,
}

func runCreate(cctx *cli.Context) error {
	ctx := cctx.Context
	if cctx.Args().Len() != 2 {
		return fmt.Errorf("need entity set and JSON data arguments")
	}
	set, err := syntax.ParseEntitySet(cctx.Args().Get(0))
	if err != nil {
		return err
	}
	data, err := readJSONArg(cctx.Args().Get(1), os.Stdin)
	if err != nil {
		return err
	}

	c, err := loadPortalClient(cctx)
	if err != nil {
		return err
	}
	id, err := c.CreateEntity(ctx, set, data)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

var cmdUpdate = &cli.Command{
	Name:      "update",
	Usage:     "update columns of a record",
	ArgsUsage: `<entity-set> <record-id> <json | @file | ->`,
	Action:    runUpdate,
}

func runUpdate(cctx *cli.Context) error {
	ctx := cctx.Context
	set, id, err := recordArgs(cctx)
	if err != nil {
		return err
	}
	if cctx.Args().Len() != 3 {
		return fmt.Errorf("need JSON data argument")
	}
	data, err := readJSONArg(cctx.Args().Get(2), os.Stdin)
	if err != nil {
		return err
	}

	c, err := loadPortalClient(cctx)
	if err != nil {
		return err
	}
	return c.UpdateEntity(ctx, set, id, data)
}

var cmdSetColumn = &cli.Command{
	Name:      "set-column",
	Usage:     "set a single column of a record",
	ArgsUsage: `<entity-set> <record-id> <column> <value>`,
	Action:    runSetColumn,
}

func runSetColumn(cctx *cli.Context) error {
	ctx := cctx.Context
	set, id, err := recordArgs(cctx)
	if err != nil {
		return err
	}
	col, err := logicalNameArg(cctx, 2, "column")
	if err != nil {
		return err
	}
	if cctx.Args().Len() != 4 {
		return fmt.Errorf("need column value argument")
	}

	c, err := loadPortalClient(cctx)
	if err != nil {
		return err
	}
	return c.UpdateEntityColumn(ctx, set, id, col, parseColumnValue(cctx.Args().Get(3)))
}

var cmdRefreshCache = &cli.Command{
	Name:      "refresh-cache",
	Usage:     "force the portal to reload its cached copy of a record",
	ArgsUsage: `<entity-set> <record-id>`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "column",
			Usage: "datetime column to touch",
			Value: "mnp_refreshcache",
		},
	},
	Action: runRefreshCache,
}

func runRefreshCache(cctx *cli.Context) error {
	ctx := cctx.Context
	set, id, err := recordArgs(cctx)
	if err != nil {
		return err
	}
	col, err := syntax.ParseLogicalName(cctx.String("column"))
	if err != nil {
		return err
	}

	c, err := loadPortalClient(cctx)
	if err != nil {
		return err
	}
	return c.RefreshEntityCache(ctx, set, id, col)
}

var cmdDelete = &cli.Command{
	Name:      "delete",
	Usage:     "delete a record, or clear one of its columns",
	ArgsUsage: `<entity-set> <record-id>`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "column",
			Usage: "only clear this column value",
		},
	},
	Action: runDelete,
}

func runDelete(cctx *cli.Context) error {
	ctx := cctx.Context
	set, id, err := recordArgs(cctx)
	if err != nil {
		return err
	}

	c, err := loadPortalClient(cctx)
	if err != nil {
		return err
	}
	if cctx.String("column") != "" {
		col, err := syntax.ParseLogicalName(cctx.String("column"))
		if err != nil {
			return err
		}
		return c.DeleteEntityAttribute(ctx, set, id, col)
	}
	return c.DeleteEntity(ctx, set, id)
}
